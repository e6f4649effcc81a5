package ui

import (
	"fmt"
	"strings"

	"forumkit/internal/api"
	"forumkit/internal/model"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
)

// ThreadPageModel shows one post with its comment thread and composer.
// Reactions are optimistic: counts update immediately and reconcile when
// the backend responds.
type ThreadPageModel struct {
	client *api.Client
	styles Styles
	cache  *RenderCache

	post     model.Post
	comments []model.Comment
	cursor   int
	loading  bool
	banner   string

	composer  textarea.Model
	composing bool

	width  int
	height int
}

// NewThreadPageModel creates an empty thread page; Open points it at a post.
func NewThreadPageModel(client *api.Client, styles Styles) ThreadPageModel {
	ta := textarea.New()
	ta.Placeholder = "留言..."
	ta.CharLimit = 1000
	ta.SetHeight(3)

	return ThreadPageModel{
		client:   client,
		styles:   styles,
		cache:    NewRenderCache(256),
		composer: ta,
	}
}

// Open switches the page to the given post and loads its thread.
func (m *ThreadPageModel) Open(post model.Post) tea.Cmd {
	m.post = post
	m.comments = nil
	m.cursor = 0
	m.loading = true
	m.banner = ""
	return loadCommentsCmd(m.client, post.ID)
}

// Composing reports whether the reply composer is open.
func (m ThreadPageModel) Composing() bool {
	return m.composing
}

// SetSize updates the layout bounds.
func (m *ThreadPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.composer.SetWidth(w - 4)
	m.cache.Clear()
}

// Update handles messages.
func (m ThreadPageModel) Update(msg tea.Msg) (ThreadPageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case commentsLoadedMsg:
		// A stale response for a previously open post is dropped.
		if msg.postID != m.post.ID {
			return m, nil
		}
		m.loading = false
		m.banner = ""
		m.comments = msg.comments
		return m, nil

	case commentSubmittedMsg:
		m.comments = append(m.comments, msg.comment)
		m.composing = false
		m.composer.Reset()
		return m, nil

	case rtCommentCreatedMsg:
		if msg.comment.PostID == m.post.ID {
			m.comments = append(m.comments, msg.comment)
		}
		return m, nil

	case commentReactedMsg:
		m.reconcile(msg.comment)
		return m, nil

	case commentDeletedMsg:
		for i := range m.comments {
			if m.comments[i].ID == msg.commentID {
				m.comments = append(m.comments[:i], m.comments[i+1:]...)
				break
			}
		}
		if m.cursor >= len(m.comments) && m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case errMsg:
		if msg.scope == scopeThread {
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

func (m ThreadPageModel) handleKey(msg tea.KeyMsg) (ThreadPageModel, tea.Cmd) {
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
			return m, createCommentCmd(m.client, api.CreateCommentInput{
				PostID:  m.post.ID,
				Content: content,
			})
		}
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.comments)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "n":
		m.composing = true
		return m, m.composer.Focus()
	case "l":
		return m.react("like")
	case "d":
		return m.react("dislike")
	case "x":
		// Delete own comment; the backend rejects anyone else's.
		if m.cursor < len(m.comments) {
			return m, deleteCommentCmd(m.client, m.comments[m.cursor].ID)
		}
	case "r":
		m.loading = true
		return m, loadCommentsCmd(m.client, m.post.ID)
	}
	return m, nil
}

// react applies the optimistic local update and fires the API call.
// Repeating the current reaction withdraws it.
func (m ThreadPageModel) react(reaction string) (ThreadPageModel, tea.Cmd) {
	if m.cursor >= len(m.comments) {
		return m, nil
	}
	c := &m.comments[m.cursor]

	if c.MyReaction == reaction {
		reaction = ""
	}
	switch c.MyReaction {
	case "like":
		c.Likes--
	case "dislike":
		c.Dislikes--
	}
	switch reaction {
	case "like":
		c.Likes++
	case "dislike":
		c.Dislikes++
	}
	c.MyReaction = reaction

	return m, reactToCommentCmd(m.client, c.ID, reaction)
}

// reconcile replaces the optimistic stats with the backend's.
func (m *ThreadPageModel) reconcile(authoritative model.Comment) {
	for i := range m.comments {
		if m.comments[i].ID == authoritative.ID {
			m.comments[i] = authoritative
			return
		}
	}
}

// View renders the page.
func (m ThreadPageModel) View() string {
	var sb strings.Builder
	bodyWidth := max(m.width-6, 20)

	key := ContentKey(m.post.Content, bodyWidth, m.styles.Theme.IsDark)
	body := m.cache.GetOrCompute(key, func() string {
		return RenderRichText(m.styles, m.post.Content, bodyWidth)
	})
	sb.WriteString(m.styles.Card.Width(max(m.width-2, 24)).Render(
		m.styles.Author.Render(m.post.AuthorLabel) + "\n" + body))
	sb.WriteString("\n")

	if m.banner != "" {
		sb.WriteString(m.styles.Error.Render(m.banner))
		sb.WriteString("\n")
	}

	if m.composing {
		sb.WriteString(m.composer.View())
		sb.WriteString("\n")
		sb.WriteString(m.styles.Muted.Render("ctrl+s 送出 · esc 取消"))
		return sb.String()
	}

	switch {
	case m.loading:
		sb.WriteString(m.styles.Muted.Render("載入中..."))
	case len(m.comments) == 0:
		sb.WriteString(m.styles.Muted.Render("還沒有留言，按 n 搶頭香"))
	default:
		for i, c := range m.comments {
			sb.WriteString(m.renderComment(c, i == m.cursor, bodyWidth))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (m ThreadPageModel) renderComment(c model.Comment, selected bool, bodyWidth int) string {
	key := ContentKey(c.Content, bodyWidth, m.styles.Theme.IsDark)
	body := m.cache.GetOrCompute(key, func() string {
		return RenderRichText(m.styles, c.Content, bodyWidth)
	})

	likeMark, dislikeMark := " ", " "
	switch c.MyReaction {
	case "like":
		likeMark = "●"
	case "dislike":
		dislikeMark = "●"
	}
	stats := m.styles.Muted.Render(fmt.Sprintf("👍%s%d 👎%s%d", likeMark, c.Likes, dislikeMark, c.Dislikes))

	card := m.styles.Card
	if selected {
		card = m.styles.Selected
	}
	return card.Width(max(m.width-2, 24)).Render(
		m.styles.Author.Render(c.AuthorLabel) + "  " + stats + "\n" + body)
}
