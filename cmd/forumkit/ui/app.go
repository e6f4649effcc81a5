// Package ui implements the interactive ForumKit terminal client: the post
// feed, comment threads, support tickets and the admin dashboard, plus the
// realtime delivery pump and the inspection-guard overlay.
package ui

import (
	"context"
	"fmt"
	"strings"

	"forumkit/internal/api"
	"forumkit/internal/guard"
	"forumkit/internal/logging"
	"forumkit/internal/model"
	"forumkit/internal/realtime"
	"forumkit/internal/sanitize"
	"forumkit/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Scopes route error banners to the view that owns them.
const (
	scopeFeed    = "feed"
	scopeThread  = "thread"
	scopeTickets = "tickets"
	scopeAdmin   = "admin"
)

// Deps bundles everything the root model needs from the surrounding process.
type Deps struct {
	Client     *api.Client
	Store      *session.Store
	Dispatcher *realtime.Dispatcher
	Guard      *guard.Guard
	Session    model.Session
	Styles     Styles
	PageSize   int

	// StartTab opens the program on a tab other than the feed: one of
	// "feed", "tickets", "admin".
	StartTab string

	// Events receives realtime deliveries and out-of-band session messages
	// (forced logout, guard transitions) produced outside the program loop.
	Events chan tea.Msg
}

// App is the root bubbletea model. It owns tab navigation, the realtime
// event pump and the guard overlay; everything page-specific lives in the
// page models.
type App struct {
	deps   Deps
	styles Styles
	log    *logging.Logger

	scope   string
	feed    FeedPageModel
	thread  ThreadPageModel
	tickets TicketPageModel
	admin   AdminPageModel

	guardState   guard.State
	announcement string
	renderer     *glamour.TermRenderer
	badges       map[string]int
	resize       *Debouncer

	width  int
	height int
	ready  bool
	fatal  string
}

// NewApp wires the root model. BindRealtime must be called before the
// program runs so that pushed events reach the pump.
func NewApp(deps Deps) App {
	if deps.Events == nil {
		deps.Events = make(chan tea.Msg, 64)
	}
	if deps.PageSize <= 0 {
		deps.PageSize = 20
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		logging.UI("glamour renderer unavailable: %v", err)
	}

	badges := map[string]int{}
	if deps.Store != nil {
		if saved, err := deps.Store.Badges(); err == nil {
			badges = saved
		}
	}

	scope := scopeFeed
	switch deps.StartTab {
	case scopeTickets:
		scope = scopeTickets
	case scopeAdmin:
		if deps.Session.Role.CanModerate() {
			scope = scopeAdmin
		}
	}

	return App{
		deps:     deps,
		styles:   deps.Styles,
		log:      logging.Get(logging.CategoryUI),
		scope:    scope,
		feed:     NewFeedPageModel(deps.Client, deps.Styles, deps.PageSize),
		thread:   NewThreadPageModel(deps.Client, deps.Styles),
		tickets:  NewTicketPageModel(deps.Client, deps.Styles, deps.Session.Role.CanModerate()),
		admin:    NewAdminPageModel(deps.Client, deps.Styles),
		renderer: renderer,
		badges:   badges,
		resize:   NewDebouncer(DefaultResizeDuration),
	}
}

// BindRealtime installs dispatcher handlers that forward deliveries into the
// program's event channel. Installing again replaces the previous handlers;
// the dedup cache is unaffected.
func (a *App) BindRealtime() {
	d := a.deps.Dispatcher
	if d == nil {
		return
	}
	events := a.deps.Events

	d.OnPostCreated(func(p model.Post) { events <- rtPostCreatedMsg{post: p} })
	d.OnCommentCreated(func(c model.Comment) { events <- rtCommentCreatedMsg{comment: c} })
	d.OnAnnounce(func(body string) { events <- rtAnnounceMsg{body: body} })
	d.OnModeration(func(approved bool, res model.ModerationResult) {
		events <- rtModerationMsg{approved: approved, result: res}
	})
	d.OnBadgeUpdate(func(b model.BadgeUpdate) { events <- rtBadgeMsg{badge: b} })
	d.OnSupportAdminEvent(func(ev model.Event) {
		events <- rtBadgeDeltaMsg{path: "tickets", delta: 1}
	})

	if a.deps.Session.Role.CanModerate() {
		d.OnDeleteRequest(func(open bool, req model.DeleteRequest) {
			delta := 1
			if !open {
				delta = -1
			}
			events <- rtBadgeDeltaMsg{path: "admin", delta: delta}
		})
	}
}

// Init starts the feed, the active tab and the realtime pump.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.feed.Init(), waitForEvent(a.deps.Events)}
	switch a.scope {
	case scopeTickets:
		cmds = append(cmds, a.tickets.Init())
	case scopeAdmin:
		cmds = append(cmds, a.admin.Init())
	}
	return tea.Batch(cmds...)
}

// Update routes messages. The guard overlay pre-empts everything except the
// messages that can clear it.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if !a.ready {
			a.ready = true
			a.layout()
			return a, nil
		}
		// Terminals emit a burst of size events while the user drags;
		// re-flowing every page on each one wastes frames. Settle first.
		events := a.deps.Events
		a.resize.Debounce(func() { events <- resizeSettledMsg{} })
		return a, nil

	case resizeSettledMsg:
		a.layout()
		return a, waitForEvent(a.deps.Events)

	case guardStateMsg:
		a.guardState = msg.state
		return a, waitForEvent(a.deps.Events)

	case forcedLogoutMsg:
		a.fatal = fmt.Sprintf("已登出：%s", msg.reason)
		return a, tea.Quit

	case rtAnnounceMsg:
		// Pushed bodies are untrusted rich text; reduce to the allowed
		// subset before anything renders it.
		a.announcement = sanitize.HTML(msg.body)
		return a, waitForEvent(a.deps.Events)

	case rtBadgeMsg:
		if msg.badge.Count <= 0 {
			delete(a.badges, msg.badge.Path)
		} else {
			a.badges[msg.badge.Path] = msg.badge.Count
		}
		if a.deps.Store != nil {
			if err := a.deps.Store.SetBadge(msg.badge.Path, msg.badge.Count); err != nil {
				a.log.Warn("badge persist failed: %v", err)
			}
		}
		return a, waitForEvent(a.deps.Events)

	case rtBadgeDeltaMsg:
		count := a.badges[msg.path] + msg.delta
		m, cmd := a.Update(rtBadgeMsg{badge: model.BadgeUpdate{Path: msg.path, Count: count}})
		return m, cmd

	case rtPostCreatedMsg, rtCommentCreatedMsg, rtModerationMsg:
		cmd := a.routeToPages(msg)
		return a, tea.Batch(cmd, waitForEvent(a.deps.Events))

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, a.routeToPages(msg)
}

func (a *App) layout() {
	bodyH := a.height - 4
	a.feed.SetSize(a.width, bodyH)
	a.thread.SetSize(a.width, bodyH)
	a.tickets.SetSize(a.width, bodyH)
	a.admin.SetSize(a.width, bodyH)
}

// routeToPages forwards a message to every page; pages ignore what is not
// theirs.
func (a *App) routeToPages(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.feed, cmd = a.feed.Update(msg)
	cmds = append(cmds, cmd)
	a.thread, cmd = a.thread.Update(msg)
	cmds = append(cmds, cmd)
	a.tickets, cmd = a.tickets.Update(msg)
	cmds = append(cmds, cmd)
	a.admin, cmd = a.admin.Update(msg)
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := a.deps.Guard

	// Everything behind the overlay is blocked until the guard clears.
	if a.guardState == guard.StateOverlay {
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "esc", "enter":
			if g != nil {
				g.OverlayDismissed(context.Background())
			}
		}
		return a, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if a.composing() && msg.String() == "q" {
			break
		}
		return a, tea.Quit

	case "f12", "ctrl+shift+i":
		if g != nil && g.Active() && !g.AllowDebugKeys() {
			g.Trip(context.Background(), guard.TriggerDebugHotkey)
			return a, nil
		}

	case "1", "2", "3":
		// Digits mean roles inside the admin users panel and plain text
		// inside a composer.
		if a.scope == scopeAdmin || a.composing() {
			break
		}
		switch msg.String() {
		case "1":
			return a.switchScope(scopeFeed)
		case "2":
			return a.switchScope(scopeTickets)
		case "3":
			if a.deps.Session.Role.CanModerate() {
				return a.switchScope(scopeAdmin)
			}
		}
		return a, nil

	case "enter":
		if a.scope == scopeFeed && !a.composing() {
			if post, ok := a.feed.Selected(); ok {
				a.scope = scopeThread
				return a, a.thread.Open(post)
			}
		}

	case "esc":
		if a.announcement != "" && !a.composing() {
			a.announcement = ""
			return a, nil
		}
		if !a.composing() {
			switch a.scope {
			case scopeThread, scopeTickets, scopeAdmin:
				a.scope = scopeFeed
				return a, nil
			}
		}
	}

	return a, a.routeToPage(msg)
}

// composing reports whether the active page has an open text composer, so
// that plain letters reach the textarea instead of global shortcuts.
func (a App) composing() bool {
	switch a.scope {
	case scopeFeed:
		return a.feed.Composing()
	case scopeThread:
		return a.thread.Composing()
	case scopeTickets:
		return a.tickets.Composing()
	case scopeAdmin:
		return a.admin.Editing()
	}
	return false
}

// routeToPage delivers a key only to the active page.
func (a *App) routeToPage(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.scope {
	case scopeThread:
		a.thread, cmd = a.thread.Update(msg)
	case scopeTickets:
		a.tickets, cmd = a.tickets.Update(msg)
	case scopeAdmin:
		a.admin, cmd = a.admin.Update(msg)
	default:
		a.feed, cmd = a.feed.Update(msg)
	}
	return cmd
}

func (a App) switchScope(scope string) (tea.Model, tea.Cmd) {
	if a.scope == scope {
		return a, nil
	}
	a.scope = scope
	a.clearBadge(scope)

	switch scope {
	case scopeTickets:
		return a, a.tickets.Init()
	case scopeAdmin:
		return a, a.admin.Init()
	}
	return a, nil
}

// clearBadge zeroes the unread counter for a visited scope, in memory and
// in the persisted store.
func (a App) clearBadge(path string) {
	if a.badges[path] == 0 {
		return
	}
	delete(a.badges, path)
	if a.deps.Store != nil {
		a.deps.Store.SetBadge(path, 0)
	}
}

// View renders the active page under the header; the guard overlay replaces
// everything when tripped.
func (a App) View() string {
	if !a.ready {
		return "載入中..."
	}
	if a.fatal != "" {
		return a.styles.Error.Render(a.fatal) + "\n"
	}
	if a.guardState == guard.StateOverlay {
		return a.renderOverlay()
	}

	var sb strings.Builder
	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")

	if a.announcement != "" {
		sb.WriteString(a.renderAnnouncement())
		sb.WriteString("\n")
	}

	switch a.scope {
	case scopeThread:
		sb.WriteString(a.thread.View())
	case scopeTickets:
		sb.WriteString(a.tickets.View())
	case scopeAdmin:
		sb.WriteString(a.admin.View())
	default:
		sb.WriteString(a.feed.View())
	}

	sb.WriteString("\n")
	sb.WriteString(a.styles.Footer.Render("1: 貼文 · 2: 客服 · 3: 管理 · q: 離開"))
	return sb.String()
}

func (a App) renderHeader() string {
	tabs := []struct {
		scope string
		label string
		badge string
	}{
		{scopeFeed, "貼文", ""},
		{scopeTickets, "客服", "tickets"},
		{scopeAdmin, "管理", "admin"},
	}

	var parts []string
	parts = append(parts, a.styles.Header.Render(" ForumKit "))
	for _, t := range tabs {
		if t.scope == scopeAdmin && !a.deps.Session.Role.CanModerate() {
			continue
		}
		label := t.label
		if n := a.badges[t.badge]; t.badge != "" && n > 0 {
			label += " " + a.styles.Badge.Render(fmt.Sprintf("%d", n))
		}
		style := a.styles.Tab
		if a.scope == t.scope || (t.scope == scopeFeed && a.scope == scopeThread) {
			style = a.styles.TabOn
		}
		parts = append(parts, style.Render(label))
	}
	return strings.Join(parts, " ")
}

// renderAnnouncement shows a pushed site announcement as a dismissible
// banner. The stored body is already sanitized; glamour lays it out when
// available.
func (a App) renderAnnouncement() string {
	body := a.announcement
	if a.renderer != nil {
		if rendered, err := a.renderer.Render(body); err == nil {
			body = strings.TrimSpace(rendered)
		}
	}
	banner := a.styles.Warning.Render("📢 公告") + "\n" + body + "\n" + a.styles.Muted.Render("esc 關閉")
	return a.styles.Card.Render(banner)
}

func (a App) renderOverlay() string {
	msg := strings.Join([]string{
		a.styles.Title.Render("偵測到開發者工具"),
		"",
		"為了保護社群內容，畫面已暫停顯示。",
		"請關閉開發者工具後繼續使用。",
		"",
		a.styles.Muted.Render("enter 重試 · ctrl+c 離開"),
	}, "\n")
	box := a.styles.Overlay.Render(msg)
	if a.width > 0 && a.height > 0 {
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}
