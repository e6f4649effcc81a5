package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"forumkit/internal/api"
	"forumkit/internal/model"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// AdminTab selects the active admin panel.
type AdminTab int

const (
	AdminTabInstagram AdminTab = iota
	AdminTabDiscord
	AdminTabUsers
)

var adminTabNames = []string{"Instagram 發布佇列", "Discord 機器人", "使用者管理"}

// AdminPageModel is the role-gated admin dashboard: the Instagram
// auto-publish queue, Discord bot bridge status and user/role management.
type AdminPageModel struct {
	client *api.Client
	styles Styles

	tab     AdminTab
	jobs    []api.InstagramJob
	discord api.DiscordStatus
	users   []api.AdminUser

	jobTable  table.Model
	userTable table.Model
	banner    string

	relayInput   textinput.Model
	editingRelay bool

	width  int
	height int
}

// NewAdminPageModel creates the admin page.
func NewAdminPageModel(client *api.Client, styles Styles) AdminPageModel {
	jt := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 14},
			{Title: "貼文", Width: 8},
			{Title: "狀態", Width: 10},
			{Title: "標題", Width: 40},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	ut := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 8},
			{Title: "暱稱", Width: 20},
			{Title: "角色", Width: 12},
			{Title: "狀態", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	ti := textinput.New()
	ti.Placeholder = "頻道 ID"
	ti.CharLimit = 32

	return AdminPageModel{
		client:     client,
		styles:     styles,
		jobTable:   jt,
		userTable:  ut,
		relayInput: ti,
	}
}

// Editing reports whether the relay-channel input has focus, so global
// shortcuts stay out of the way.
func (m AdminPageModel) Editing() bool {
	return m.editingRelay
}

// Init loads the active tab.
func (m AdminPageModel) Init() tea.Cmd {
	return loadAdminQueueCmd(m.client)
}

// SetSize updates the layout bounds.
func (m *AdminPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.jobTable.SetHeight(max(h-8, 4))
	m.userTable.SetHeight(max(h-8, 4))
}

// Update handles messages.
func (m AdminPageModel) Update(msg tea.Msg) (AdminPageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case adminQueueLoadedMsg:
		m.banner = ""
		m.jobs = msg.jobs
		rows := make([]table.Row, 0, len(msg.jobs))
		for _, j := range msg.jobs {
			rows = append(rows, table.Row{j.ID, strconv.FormatInt(j.PostID, 10), j.Status, j.Caption})
		}
		m.jobTable.SetRows(rows)
		return m, nil

	case adminDiscordLoadedMsg:
		m.banner = ""
		m.discord = msg.status
		return m, nil

	case adminUsersLoadedMsg:
		m.banner = ""
		m.users = msg.users
		rows := make([]table.Row, 0, len(msg.users))
		for _, u := range msg.users {
			status := "正常"
			if u.Banned {
				status = "停權"
			}
			rows = append(rows, table.Row{strconv.FormatInt(u.ID, 10), u.Label, string(u.Role), status})
		}
		m.userTable.SetRows(rows)
		return m, nil

	case errMsg:
		if msg.scope == scopeAdmin {
			m.banner = msg.banner()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m AdminPageModel) handleKey(msg tea.KeyMsg) (AdminPageModel, tea.Cmd) {
	if m.editingRelay {
		switch msg.String() {
		case "esc":
			m.editingRelay = false
			m.relayInput.Reset()
			return m, nil
		case "enter":
			channel := strings.TrimSpace(m.relayInput.Value())
			m.editingRelay = false
			m.relayInput.Reset()
			if channel == "" {
				return m, nil
			}
			return m, setDiscordRelayCmd(m.client, channel)
		}
		var cmd tea.Cmd
		m.relayInput, cmd = m.relayInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "tab":
		m.tab = (m.tab + 1) % 3
		return m, m.loadTab()
	case "r":
		return m, m.loadTab()
	}

	switch m.tab {
	case AdminTabInstagram:
		switch msg.String() {
		case "a":
			if job, ok := m.selectedJob(); ok && job.Status == "pending" {
				return m, resolveInstagramJobCmd(m.client, job.ID, true)
			}
		case "x":
			if job, ok := m.selectedJob(); ok && job.Status == "pending" {
				return m, resolveInstagramJobCmd(m.client, job.ID, false)
			}
		}
		var cmd tea.Cmd
		m.jobTable, cmd = m.jobTable.Update(msg)
		return m, cmd

	case AdminTabDiscord:
		if msg.String() == "c" {
			m.editingRelay = true
			return m, m.relayInput.Focus()
		}

	case AdminTabUsers:
		if role, ok := roleForKey(msg.String()); ok {
			if u, found := m.selectedUser(); found {
				return m, setUserRoleCmd(m.client, u.ID, role)
			}
		}
		if msg.String() == "b" {
			if u, found := m.selectedUser(); found {
				return m, setUserBannedCmd(m.client, u.ID, !u.Banned)
			}
		}
		var cmd tea.Cmd
		m.userTable, cmd = m.userTable.Update(msg)
		return m, cmd
	}
	return m, nil
}

func roleForKey(key string) (model.Role, bool) {
	switch key {
	case "1":
		return model.RoleStudent, true
	case "2":
		return model.RoleModerator, true
	case "3":
		return model.RoleAdmin, true
	}
	return "", false
}

func (m AdminPageModel) loadTab() tea.Cmd {
	switch m.tab {
	case AdminTabDiscord:
		return loadDiscordStatusCmd(m.client)
	case AdminTabUsers:
		return loadAdminUsersCmd(m.client)
	default:
		return loadAdminQueueCmd(m.client)
	}
}

func (m AdminPageModel) selectedJob() (api.InstagramJob, bool) {
	idx := m.jobTable.Cursor()
	if idx < 0 || idx >= len(m.jobs) {
		return api.InstagramJob{}, false
	}
	return m.jobs[idx], true
}

func (m AdminPageModel) selectedUser() (api.AdminUser, bool) {
	idx := m.userTable.Cursor()
	if idx < 0 || idx >= len(m.users) {
		return api.AdminUser{}, false
	}
	return m.users[idx], true
}

// View renders the page.
func (m AdminPageModel) View() string {
	var sb strings.Builder

	var tabs []string
	for i, name := range adminTabNames {
		style := m.styles.Tab
		if AdminTab(i) == m.tab {
			style = m.styles.TabOn
		}
		tabs = append(tabs, style.Render(name))
	}
	sb.WriteString(strings.Join(tabs, " "))
	sb.WriteString("\n\n")

	if m.banner != "" {
		sb.WriteString(m.styles.Error.Render(m.banner))
		sb.WriteString("\n")
	}

	switch m.tab {
	case AdminTabInstagram:
		sb.WriteString(m.jobTable.View())
		sb.WriteString("\n" + m.styles.Muted.Render("a: 核准 · x: 退回 · r: 重新整理 · tab: 切換面板"))
	case AdminTabDiscord:
		sb.WriteString(m.renderDiscord())
		if m.editingRelay {
			sb.WriteString("\n\n" + m.styles.Title.Render("設定轉送頻道") + "\n")
			sb.WriteString(m.relayInput.View())
			sb.WriteString("\n" + m.styles.Muted.Render("enter 儲存 · esc 取消"))
		} else {
			sb.WriteString("\n\n" + m.styles.Muted.Render("c: 設定轉送頻道 · r: 重新整理 · tab: 切換面板"))
		}
	case AdminTabUsers:
		sb.WriteString(m.userTable.View())
		sb.WriteString("\n" + m.styles.Muted.Render("1/2/3: 設為 student/moderator/admin · b: 停權/復權 · tab: 切換面板"))
	}
	return sb.String()
}

func (m AdminPageModel) renderDiscord() string {
	state := m.styles.Error.Render("離線")
	if m.discord.Online {
		state = m.styles.Success.Render("在線")
	}
	last := "-"
	if m.discord.LastEventAt > 0 {
		last = time.Unix(m.discord.LastEventAt, 0).Format("01/02 15:04:05")
	}
	return fmt.Sprintf("狀態: %s\n伺服器: %s\n轉送頻道: %s\n最後事件: %s",
		state, m.discord.GuildID, m.discord.RelayChannel, last)
}
