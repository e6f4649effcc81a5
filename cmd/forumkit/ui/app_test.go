package ui

import (
	"testing"

	"forumkit/internal/guard"
	"forumkit/internal/model"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(role model.Role) App {
	return NewApp(Deps{
		Session: model.Session{Token: "t", Role: role},
		Styles:  DefaultStyles(),
		Events:  make(chan tea.Msg, 8),
	})
}

func sized(t *testing.T, a App) App {
	t.Helper()
	m, _ := a.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	app, ok := m.(App)
	require.True(t, ok)
	return app
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestAppTabSwitching(t *testing.T) {
	a := sized(t, newTestApp(model.RoleStudent))
	assert.Equal(t, scopeFeed, a.scope)

	m, _ := a.Update(key("2"))
	a = m.(App)
	assert.Equal(t, scopeTickets, a.scope)

	// Students never reach the admin dashboard.
	m, _ = a.Update(key("3"))
	a = m.(App)
	assert.NotEqual(t, scopeAdmin, a.scope)
}

func TestAppAdminTabRequiresModerator(t *testing.T) {
	a := sized(t, newTestApp(model.RoleAdmin))

	m, _ := a.Update(key("3"))
	a = m.(App)
	assert.Equal(t, scopeAdmin, a.scope)
}

func TestAppGuardOverlayPreemptsEverything(t *testing.T) {
	a := sized(t, newTestApp(model.RoleStudent))

	m, _ := a.Update(guardStateMsg{state: guard.StateOverlay})
	a = m.(App)
	assert.Contains(t, a.View(), "偵測到開發者工具")

	// Keys no longer reach the pages while the overlay is up.
	m, _ = a.Update(key("2"))
	a = m.(App)
	assert.Equal(t, scopeFeed, a.scope)
	assert.Contains(t, a.View(), "偵測到開發者工具")
}

func TestAppGuardClearRestoresView(t *testing.T) {
	a := sized(t, newTestApp(model.RoleStudent))

	m, _ := a.Update(guardStateMsg{state: guard.StateOverlay})
	a = m.(App)
	m, _ = a.Update(guardStateMsg{state: guard.StateProtected})
	a = m.(App)

	assert.NotContains(t, a.View(), "偵測到開發者工具")
}

func TestAppForcedLogoutQuits(t *testing.T) {
	a := sized(t, newTestApp(model.RoleStudent))

	m, cmd := a.Update(ForcedLogout("登入已過期"))
	a = m.(App)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, a.View(), "登入已過期")
}

func TestAppBadgeLifecycle(t *testing.T) {
	a := sized(t, newTestApp(model.RoleStudent))

	m, _ := a.Update(rtBadgeMsg{badge: model.BadgeUpdate{Path: "tickets", Count: 3}})
	a = m.(App)
	assert.Equal(t, 3, a.badges["tickets"])
	assert.Contains(t, a.View(), "3")

	// A zero count clears the badge entirely.
	m, _ = a.Update(rtBadgeMsg{badge: model.BadgeUpdate{Path: "tickets", Count: 0}})
	a = m.(App)
	_, ok := a.badges["tickets"]
	assert.False(t, ok)
}

func TestAppBadgeDelta(t *testing.T) {
	a := sized(t, newTestApp(model.RoleAdmin))

	m, _ := a.Update(rtBadgeDeltaMsg{path: "admin", delta: 1})
	a = m.(App)
	m, _ = a.Update(rtBadgeDeltaMsg{path: "admin", delta: 1})
	a = m.(App)
	assert.Equal(t, 2, a.badges["admin"])

	m, _ = a.Update(rtBadgeDeltaMsg{path: "admin", delta: -1})
	a = m.(App)
	assert.Equal(t, 1, a.badges["admin"])
}

func TestAppVisitingTicketsClearsBadge(t *testing.T) {
	a := sized(t, newTestApp(model.RoleStudent))

	m, _ := a.Update(rtBadgeMsg{badge: model.BadgeUpdate{Path: "tickets", Count: 2}})
	a = m.(App)
	m, _ = a.Update(key("2"))
	a = m.(App)

	assert.Equal(t, scopeTickets, a.scope)
	_, ok := a.badges["tickets"]
	assert.False(t, ok)
}

func TestAppVisitingAdminClearsBadge(t *testing.T) {
	a := sized(t, newTestApp(model.RoleAdmin))

	m, _ := a.Update(rtBadgeDeltaMsg{path: "admin", delta: 2})
	a = m.(App)
	m, _ = a.Update(key("3"))
	a = m.(App)

	assert.Equal(t, scopeAdmin, a.scope)
	_, ok := a.badges["admin"]
	assert.False(t, ok)
}

func TestAppAnnouncementBannerDismiss(t *testing.T) {
	a := sized(t, newTestApp(model.RoleStudent))

	m, _ := a.Update(rtAnnounceMsg{body: "系統維護通知"})
	a = m.(App)
	assert.Contains(t, a.View(), "系統維護通知")

	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	a = m.(App)
	assert.NotContains(t, a.View(), "系統維護通知")
}

func TestAppAnnouncementBodySanitized(t *testing.T) {
	a := sized(t, newTestApp(model.RoleStudent))

	m, _ := a.Update(rtAnnounceMsg{body: `<script>window.close()</script>期中系統維護`})
	a = m.(App)

	out := a.View()
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "期中系統維護")
}

func TestAppStartTab(t *testing.T) {
	a := NewApp(Deps{
		Session:  model.Session{Token: "t", Role: model.RoleAdmin},
		Styles:   DefaultStyles(),
		StartTab: "admin",
		Events:   make(chan tea.Msg, 8),
	})
	assert.Equal(t, scopeAdmin, a.scope)

	// Non-privileged callers fall back to the feed.
	b := NewApp(Deps{
		Session:  model.Session{Token: "t", Role: model.RoleStudent},
		Styles:   DefaultStyles(),
		StartTab: "admin",
		Events:   make(chan tea.Msg, 8),
	})
	assert.Equal(t, scopeFeed, b.scope)
}
