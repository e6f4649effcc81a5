package ui

import (
	"context"
	"time"

	"forumkit/internal/api"
	"forumkit/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

// Commands wrap API calls as tea.Cmds. Each call gets its own deadline;
// results and failures come back as messages. Two overlapping loads of the
// same view can resolve out of order - the last writer wins, matching the
// backend's own semantics.

const callTimeout = 15 * time.Second

func withDeadline() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), callTimeout)
}

func loadPostsCmd(client *api.Client, page, pageSize int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		res, err := client.ListPosts(ctx, page, pageSize)
		if err != nil {
			return errMsg{scope: scopeFeed, err: err}
		}
		return postsLoadedMsg{page: page, posts: res.Posts, hasMore: res.HasMore}
	}
}

func createPostCmd(client *api.Client, in api.CreatePostInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		post, err := client.CreatePost(ctx, in)
		if err != nil {
			return errMsg{scope: scopeFeed, err: err}
		}
		return postSubmittedMsg{post: post}
	}
}

func reactToPostCmd(client *api.Client, id int64, reaction string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		if err := client.ReactToPost(ctx, id, reaction); err != nil {
			return errMsg{scope: scopeFeed, err: err}
		}
		return nil
	}
}

func deletePostCmd(client *api.Client, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		if err := client.DeletePost(ctx, id); err != nil {
			return errMsg{scope: scopeFeed, err: err}
		}
		return postDeletedMsg{postID: id}
	}
}

func requestPostDeletionCmd(client *api.Client, id int64, reason string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		if err := client.RequestPostDeletion(ctx, id, reason); err != nil {
			return errMsg{scope: scopeFeed, err: err}
		}
		return deletionRequestedMsg{postID: id}
	}
}

func loadCommentsCmd(client *api.Client, postID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		comments, err := client.ListComments(ctx, postID)
		if err != nil {
			return errMsg{scope: scopeThread, err: err}
		}
		return commentsLoadedMsg{postID: postID, comments: comments}
	}
}

func createCommentCmd(client *api.Client, in api.CreateCommentInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		comment, err := client.CreateComment(ctx, in)
		if err != nil {
			return errMsg{scope: scopeThread, err: err}
		}
		return commentSubmittedMsg{comment: comment}
	}
}

func reactToCommentCmd(client *api.Client, id int64, reaction string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		comment, err := client.ReactToComment(ctx, id, reaction)
		if err != nil {
			return errMsg{scope: scopeThread, err: err}
		}
		return commentReactedMsg{comment: comment}
	}
}

func deleteCommentCmd(client *api.Client, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		if err := client.DeleteComment(ctx, id); err != nil {
			return errMsg{scope: scopeThread, err: err}
		}
		return commentDeletedMsg{commentID: id}
	}
}

func loadTicketsCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		tickets, err := client.ListTickets(ctx)
		if err != nil {
			return errMsg{scope: scopeTickets, err: err}
		}
		return ticketsLoadedMsg{tickets: tickets}
	}
}

func loadTicketCmd(client *api.Client, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		ticket, err := client.GetTicket(ctx, id)
		if err != nil {
			return errMsg{scope: scopeTickets, err: err}
		}
		return ticketLoadedMsg{ticket: ticket}
	}
}

func createTicketCmd(client *api.Client, subject, body string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		ticket, err := client.CreateTicket(ctx, subject, body)
		if err != nil {
			return errMsg{scope: scopeTickets, err: err}
		}
		return ticketCreatedMsg{ticket: ticket}
	}
}

func replyTicketCmd(client *api.Client, id, body string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		msg, err := client.ReplyTicket(ctx, id, body)
		if err != nil {
			return errMsg{scope: scopeTickets, err: err}
		}
		return ticketRepliedMsg{ticketID: id, message: msg}
	}
}

func setTicketStatusCmd(client *api.Client, id string, status model.TicketStatus) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		if err := client.SetTicketStatus(ctx, id, status); err != nil {
			return errMsg{scope: scopeTickets, err: err}
		}
		return loadTicketCmd(client, id)()
	}
}

func loadAdminQueueCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		jobs, err := client.ListInstagramQueue(ctx)
		if err != nil {
			return errMsg{scope: scopeAdmin, err: err}
		}
		return adminQueueLoadedMsg{jobs: jobs}
	}
}

func resolveInstagramJobCmd(client *api.Client, id string, approve bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		var err error
		if approve {
			err = client.ApproveInstagramJob(ctx, id)
		} else {
			err = client.RejectInstagramJob(ctx, id, "rejected from admin panel")
		}
		if err != nil {
			return errMsg{scope: scopeAdmin, err: err}
		}
		return loadAdminQueueCmd(client)()
	}
}

func loadDiscordStatusCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		status, err := client.GetDiscordStatus(ctx)
		if err != nil {
			return errMsg{scope: scopeAdmin, err: err}
		}
		return adminDiscordLoadedMsg{status: status}
	}
}

func loadAdminUsersCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		users, err := client.ListUsers(ctx)
		if err != nil {
			return errMsg{scope: scopeAdmin, err: err}
		}
		return adminUsersLoadedMsg{users: users}
	}
}

func setUserBannedCmd(client *api.Client, userID int64, banned bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		if err := client.SetUserBanned(ctx, userID, banned); err != nil {
			return errMsg{scope: scopeAdmin, err: err}
		}
		return loadAdminUsersCmd(client)()
	}
}

func setDiscordRelayCmd(client *api.Client, channelID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		if err := client.SetDiscordRelayChannel(ctx, channelID); err != nil {
			return errMsg{scope: scopeAdmin, err: err}
		}
		return loadDiscordStatusCmd(client)()
	}
}

func setUserRoleCmd(client *api.Client, userID int64, role model.Role) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withDeadline()
		defer cancel()

		if err := client.SetUserRole(ctx, userID, role); err != nil {
			return errMsg{scope: scopeAdmin, err: err}
		}
		return loadAdminUsersCmd(client)()
	}
}

// waitForEvent pumps the next realtime/session message into the program.
// Re-issued after every delivery.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}
