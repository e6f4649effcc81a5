package ui

import (
	"forumkit/internal/api"
	"forumkit/internal/guard"
	"forumkit/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages flowing through the bubbletea program. Realtime deliveries and
// finished API calls both arrive here; pages only ever mutate state inside
// Update.

type postsLoadedMsg struct {
	page    int
	posts   []model.Post
	hasMore bool
}

type postSubmittedMsg struct {
	post model.Post
}

type postDeletedMsg struct {
	postID int64
}

// deletionRequestedMsg confirms a delete request reached the moderators; the
// post itself stays up until they act on it.
type deletionRequestedMsg struct {
	postID int64
}

type commentDeletedMsg struct {
	commentID int64
}

type commentsLoadedMsg struct {
	postID   int64
	comments []model.Comment
}

type commentSubmittedMsg struct {
	comment model.Comment
}

type commentReactedMsg struct {
	comment model.Comment
}

type ticketsLoadedMsg struct {
	tickets []model.Ticket
}

type ticketLoadedMsg struct {
	ticket model.Ticket
}

type ticketCreatedMsg struct {
	ticket model.Ticket
}

type ticketRepliedMsg struct {
	ticketID string
	message  model.TicketMessage
}

type adminQueueLoadedMsg struct {
	jobs []api.InstagramJob
}

type adminDiscordLoadedMsg struct {
	status api.DiscordStatus
}

type adminUsersLoadedMsg struct {
	users []api.AdminUser
}

// Realtime pushes.

type rtPostCreatedMsg struct {
	post model.Post
}

type rtCommentCreatedMsg struct {
	comment model.Comment
}

type rtAnnounceMsg struct {
	body string
}

type rtModerationMsg struct {
	approved bool
	result   model.ModerationResult
}

type rtBadgeMsg struct {
	badge model.BadgeUpdate
}

// rtBadgeDeltaMsg adjusts a badge relative to its current count; deliveries
// that only signal "one more" (support admin events, delete requests) use it
// so the count is resolved inside Update.
type rtBadgeDeltaMsg struct {
	path  string
	delta int
}

// Session and guard.

type forcedLogoutMsg struct {
	reason string
}

type guardStateMsg struct {
	state guard.State
}

// resizeSettledMsg fires after a resize burst quiets down; the root model
// re-lays-out the pages only then.
type resizeSettledMsg struct{}

// GuardTransition wraps a guard state change for delivery through the event
// channel.
func GuardTransition(state guard.State) tea.Msg {
	return guardStateMsg{state: state}
}

// ForcedLogout ends the program with a reason shown to the user. Pushed when
// the backend restarts or the session token expires.
func ForcedLogout(reason string) tea.Msg {
	return forcedLogoutMsg{reason: reason}
}

// errMsg carries a failed operation; scope names the view that owns the
// banner.
type errMsg struct {
	scope string
	err   error
}

func (e errMsg) banner() string {
	return api.UserMessage(e.err)
}
