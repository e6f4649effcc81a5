package ui

import (
	"fmt"
	"strings"

	"forumkit/internal/api"
	"forumkit/internal/model"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// FeedPageModel renders the post feed: announcements pinned on top, then
// the paginated timeline. Realtime post_created deliveries are prepended
// in place.
type FeedPageModel struct {
	client   *api.Client
	styles   Styles
	cache    *RenderCache
	pageSize int

	posts   []model.Post
	cursor  int
	page    int
	hasMore bool
	loading bool
	banner  string
	notice  string

	composer  textarea.Model
	composing bool

	width  int
	height int
}

// NewFeedPageModel creates the feed page.
func NewFeedPageModel(client *api.Client, styles Styles, pageSize int) FeedPageModel {
	ta := textarea.New()
	ta.Placeholder = "寫點什麼..."
	ta.CharLimit = 2000
	ta.SetHeight(4)

	return FeedPageModel{
		client:   client,
		styles:   styles,
		cache:    NewRenderCache(256),
		pageSize: pageSize,
		page:     1,
		composer: ta,
	}
}

// Init triggers the first load.
func (m FeedPageModel) Init() tea.Cmd {
	return loadPostsCmd(m.client, 1, m.pageSize)
}

// SetSize updates the layout bounds.
func (m *FeedPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.composer.SetWidth(w - 4)
	m.cache.Clear()
}

// Composing reports whether the post composer is open.
func (m FeedPageModel) Composing() bool {
	return m.composing
}

// Selected returns the post under the cursor, if any.
func (m FeedPageModel) Selected() (model.Post, bool) {
	if m.cursor < 0 || m.cursor >= len(m.posts) {
		return model.Post{}, false
	}
	return m.posts[m.cursor], true
}

// Update handles messages.
func (m FeedPageModel) Update(msg tea.Msg) (FeedPageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case postsLoadedMsg:
		m.loading = false
		m.banner = ""
		m.notice = ""
		if msg.page == 1 {
			m.posts = msg.posts
			m.cursor = 0
		} else {
			m.posts = append(m.posts, msg.posts...)
		}
		m.page = msg.page
		m.hasMore = msg.hasMore
		return m, nil

	case postSubmittedMsg:
		// Optimistic insert. The realtime echo of this post is dropped by
		// the ID check below; client_tx_id only covers redeliveries.
		m.posts = append([]model.Post{msg.post}, m.posts...)
		m.composing = false
		m.composer.Reset()
		return m, nil

	case rtPostCreatedMsg:
		if m.hasPost(msg.post.ID) {
			return m, nil
		}
		m.posts = append([]model.Post{msg.post}, m.posts...)
		return m, nil

	case rtModerationMsg:
		if !msg.approved {
			m.removePost(msg.result.PostID)
		}
		return m, nil

	case postDeletedMsg:
		m.removePost(msg.postID)
		return m, nil

	case deletionRequestedMsg:
		m.notice = "已送出刪除申請"
		return m, nil

	case errMsg:
		if msg.scope == scopeFeed {
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

func (m FeedPageModel) handleKey(msg tea.KeyMsg) (FeedPageModel, tea.Cmd) {
	if m.composing {
		switch msg.String() {
		case "esc":
			m.composing = false
			m.composer.Reset()
			return m, nil
		case "ctrl+s":
			content := strings.TrimSpace(m.composer.Value())
			if content == "" {
				return m, nil
			}
			return m, createPostCmd(m.client, api.CreatePostInput{Content: content})
		}
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.posts)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g":
		m.cursor = 0
	case "r":
		m.loading = true
		return m, loadPostsCmd(m.client, 1, m.pageSize)
	case "m":
		if m.hasMore && !m.loading {
			m.loading = true
			return m, loadPostsCmd(m.client, m.page+1, m.pageSize)
		}
	case "n":
		m.composing = true
		return m, m.composer.Focus()
	case "l":
		if post, ok := m.Selected(); ok {
			return m, reactToPostCmd(m.client, post.ID, "like")
		}
	case "x":
		// Ask the moderators to take the post down; nothing changes
		// locally until they act.
		if post, ok := m.Selected(); ok {
			m.notice = ""
			return m, requestPostDeletionCmd(m.client, post.ID, "requested from client")
		}
	case "D":
		// Moderator hard delete; non-privileged callers get the 403
		// banner back.
		if post, ok := m.Selected(); ok {
			return m, deletePostCmd(m.client, post.ID)
		}
	}
	return m, nil
}

func (m FeedPageModel) hasPost(id int64) bool {
	for _, p := range m.posts {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (m *FeedPageModel) removePost(id int64) {
	for i, p := range m.posts {
		if p.ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			if m.cursor >= len(m.posts) && m.cursor > 0 {
				m.cursor--
			}
			return
		}
	}
}

// View renders the page.
func (m FeedPageModel) View() string {
	var sb strings.Builder

	if m.banner != "" {
		sb.WriteString(m.styles.Error.Render(m.banner))
		sb.WriteString("\n\n")
	}
	if m.notice != "" {
		sb.WriteString(m.styles.Success.Render(m.notice))
		sb.WriteString("\n\n")
	}
	if m.composing {
		sb.WriteString(m.styles.Title.Render("新貼文"))
		sb.WriteString("\n")
		sb.WriteString(m.composer.View())
		sb.WriteString("\n")
		sb.WriteString(m.styles.Muted.Render("ctrl+s 送出 · esc 取消"))
		return sb.String()
	}

	if m.loading && len(m.posts) == 0 {
		return m.styles.Muted.Render("載入中...")
	}
	if len(m.posts) == 0 {
		return m.styles.Muted.Render("目前沒有貼文")
	}

	bodyWidth := max(m.width-6, 20)
	for i, post := range m.posts {
		sb.WriteString(m.renderPost(post, i == m.cursor, bodyWidth))
		sb.WriteString("\n")
	}
	if m.hasMore {
		sb.WriteString(m.styles.Muted.Render("m: 載入更多"))
	}
	return sb.String()
}

func (m FeedPageModel) renderPost(post model.Post, selected bool, bodyWidth int) string {
	key := ContentKey(post.Content, bodyWidth, m.styles.Theme.IsDark)
	body := m.cache.GetOrCompute(key, func() string {
		return RenderRichText(m.styles, post.Content, bodyWidth)
	})

	header := m.styles.Author.Render(post.AuthorLabel) +
		m.styles.Muted.Render(fmt.Sprintf("  %s · %d 留言", post.CreatedAt.Format("01/02 15:04"), post.CommentCount))
	if post.Advertisement {
		header += m.styles.Warning.Render("  [廣告]")
	}

	card := m.styles.Card
	switch {
	case post.Announcement:
		card = m.styles.Pinned
		header = m.styles.Title.Render("📌 公告") + "  " + header
	case selected:
		card = m.styles.Selected
	}
	return card.Width(max(m.width-2, 24)).Render(header + "\n" + body)
}
