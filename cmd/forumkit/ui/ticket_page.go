package ui

import (
	"strings"

	"forumkit/internal/api"
	"forumkit/internal/model"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TicketPageModel is the support-ticket tracker: a ticket list on the
// left, the selected thread on the right. Admin roles additionally get
// status transitions.
type TicketPageModel struct {
	client  *api.Client
	styles  Styles
	isAdmin bool

	tickets []model.Ticket
	cursor  int
	open    *model.Ticket
	loading bool
	banner  string

	composer  textarea.Model
	composing bool

	width  int
	height int
}

// NewTicketPageModel creates the ticket page.
func NewTicketPageModel(client *api.Client, styles Styles, isAdmin bool) TicketPageModel {
	ta := textarea.New()
	ta.Placeholder = "回覆..."
	ta.CharLimit = 2000
	ta.SetHeight(3)

	return TicketPageModel{
		client:   client,
		styles:   styles,
		isAdmin:  isAdmin,
		composer: ta,
	}
}

// Init triggers the first load.
func (m TicketPageModel) Init() tea.Cmd {
	return loadTicketsCmd(m.client)
}

// Composing reports whether the reply composer is open.
func (m TicketPageModel) Composing() bool {
	return m.composing
}

// SetSize updates the layout bounds.
func (m *TicketPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.composer.SetWidth(w/2 - 4)
}

// Update handles messages.
func (m TicketPageModel) Update(msg tea.Msg) (TicketPageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ticketsLoadedMsg:
		m.loading = false
		m.banner = ""
		m.tickets = msg.tickets
		if m.cursor >= len(m.tickets) {
			m.cursor = 0
		}
		return m, nil

	case ticketLoadedMsg:
		t := msg.ticket
		m.open = &t
		m.loading = false
		return m, nil

	case ticketCreatedMsg:
		t := msg.ticket
		m.tickets = append([]model.Ticket{t}, m.tickets...)
		m.open = &t
		m.cursor = 0
		m.composing = false
		m.composer.Reset()
		return m, nil

	case ticketRepliedMsg:
		if m.open != nil && m.open.ID == msg.ticketID {
			m.open.Messages = append(m.open.Messages, msg.message)
			if msg.message.FromAdmin {
				m.open.Status = model.TicketAwaitingUser
			} else {
				m.open.Status = model.TicketAwaitingAdmin
			}
		}
		m.composing = false
		m.composer.Reset()
		return m, nil

	case errMsg:
		if msg.scope == scopeTickets {
			m.loading = false
			m.banner = msg.banner()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.composing {
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m TicketPageModel) handleKey(msg tea.KeyMsg) (TicketPageModel, tea.Cmd) {
	if m.composing {
		switch msg.String() {
		case "esc":
			m.composing = false
			m.composer.Reset()
			return m, nil
		case "ctrl+s":
			text := strings.TrimSpace(m.composer.Value())
			if text == "" {
				return m, nil
			}
			if m.open != nil {
				return m, replyTicketCmd(m.client, m.open.ID, text)
			}
			// No open thread: the first line becomes the subject of a
			// new ticket.
			subject, body, _ := strings.Cut(text, "\n")
			if body == "" {
				body = subject
			}
			return m, createTicketCmd(m.client, subject, strings.TrimSpace(body))
		}
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.tickets)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if m.cursor < len(m.tickets) {
			m.loading = true
			return m, loadTicketCmd(m.client, m.tickets[m.cursor].ID)
		}
	case "n":
		m.composing = true
		return m, m.composer.Focus()
	case "N":
		// New ticket even while a thread is open.
		m.open = nil
		m.composing = true
		return m, m.composer.Focus()
	case "r":
		m.loading = true
		return m, loadTicketsCmd(m.client)
	case "R":
		// Admin: mark resolved.
		if m.isAdmin && m.open != nil {
			return m, setTicketStatusCmd(m.client, m.open.ID, model.TicketResolved)
		}
	case "C":
		// Admin: close outright.
		if m.isAdmin && m.open != nil {
			return m, setTicketStatusCmd(m.client, m.open.ID, model.TicketClosed)
		}
	}
	return m, nil
}

// View renders the page.
func (m TicketPageModel) View() string {
	if m.banner != "" {
		return m.styles.Error.Render(m.banner)
	}
	if m.loading && len(m.tickets) == 0 {
		return m.styles.Muted.Render("載入中...")
	}
	if len(m.tickets) == 0 && !m.composing {
		return m.styles.Muted.Render("沒有客服單 · n: 建立客服單")
	}

	listWidth := m.width / 2
	left := m.renderList(listWidth)
	right := m.renderThread(m.width - listWidth - 2)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m TicketPageModel) renderList(width int) string {
	var sb strings.Builder
	for i, t := range m.tickets {
		line := m.statusBadge(t.Status) + " " + t.Subject
		style := m.styles.Body
		if i == m.cursor {
			style = m.styles.Title
		}
		sb.WriteString(style.MaxWidth(width).Render(line))
		sb.WriteString("\n")
	}
	return lipgloss.NewStyle().Width(width).Render(sb.String())
}

func (m TicketPageModel) renderThread(width int) string {
	if m.open == nil {
		if m.composing {
			var sb strings.Builder
			sb.WriteString(m.styles.Title.Render("新客服單") + "\n")
			sb.WriteString(m.styles.Muted.Render("第一行為主旨") + "\n")
			sb.WriteString(m.composer.View())
			sb.WriteString("\n" + m.styles.Muted.Render("ctrl+s 送出 · esc 取消"))
			return lipgloss.NewStyle().Width(width).Render(sb.String())
		}
		return m.styles.Muted.Render("enter 開啟客服單 · N: 建立客服單")
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(m.open.Subject))
	sb.WriteString("  " + m.statusBadge(m.open.Status) + "\n\n")

	for _, msg := range m.open.Messages {
		who := m.styles.Author.Render("我")
		if msg.FromAdmin {
			who = m.styles.Success.Render("客服")
		}
		sb.WriteString(who + " " + m.styles.Muted.Render(msg.CreatedAt.Format("01/02 15:04")) + "\n")
		sb.WriteString(m.styles.Body.MaxWidth(width).Render(msg.Body))
		sb.WriteString("\n\n")
	}

	if m.composing {
		sb.WriteString(m.composer.View())
		sb.WriteString("\n" + m.styles.Muted.Render("ctrl+s 送出 · esc 取消"))
	} else {
		hint := "n: 回覆"
		if m.isAdmin {
			hint += " · R: 標記已解決 · C: 關閉"
		}
		sb.WriteString(m.styles.Muted.Render(hint))
	}
	return lipgloss.NewStyle().Width(width).Render(sb.String())
}

func (m TicketPageModel) statusBadge(s model.TicketStatus) string {
	switch s {
	case model.TicketOpen:
		return m.styles.Warning.Render("[新建]")
	case model.TicketAwaitingUser:
		return m.styles.Warning.Render("[待回覆]")
	case model.TicketAwaitingAdmin:
		return m.styles.Warning.Render("[處理中]")
	case model.TicketResolved:
		return m.styles.Success.Render("[已解決]")
	case model.TicketClosed:
		return m.styles.Muted.Render("[已關閉]")
	}
	return m.styles.Muted.Render("[?]")
}
