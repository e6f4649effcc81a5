package ui

import (
	"strconv"
	"strings"

	"forumkit/internal/sanitize"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RenderRichText sanitizes user-authored rich text and lays it out as
// styled terminal text. All content goes through the sanitizer first; this
// function never renders markup the allow-list rejected.
func RenderRichText(styles Styles, content string, width int) string {
	safe := sanitize.HTML(content)

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(safe), body)
	if err != nil {
		// Sanitized output should always reparse; degrade to plain text.
		return lipgloss.NewStyle().Width(width).Render(safe)
	}

	r := richRenderer{styles: styles}
	var sb strings.Builder
	for _, n := range nodes {
		r.walk(&sb, n, lipgloss.NewStyle().Foreground(styles.Theme.Foreground))
	}

	text := strings.TrimRight(sb.String(), "\n")
	if width > 0 {
		return lipgloss.NewStyle().Width(width).Render(text)
	}
	return text
}

type richRenderer struct {
	styles  Styles
	listIdx int // current ordered-list counter, 0 when inside <ul>
}

func (r *richRenderer) walk(sb *strings.Builder, n *html.Node, style lipgloss.Style) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(style.Render(html.UnescapeString(n.Data)))
	case html.ElementNode:
		r.element(sb, n, style)
	}
}

func (r *richRenderer) children(sb *strings.Builder, n *html.Node, style lipgloss.Style) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(sb, c, style)
	}
}

func (r *richRenderer) element(sb *strings.Builder, n *html.Node, style lipgloss.Style) {
	switch n.Data {
	case "p":
		r.children(sb, n, style)
		sb.WriteString("\n\n")
	case "br":
		sb.WriteByte('\n')
	case "strong":
		r.children(sb, n, style.Bold(true))
	case "em":
		r.children(sb, n, style.Italic(true))
	case "u":
		r.children(sb, n, style.Underline(true))
	case "a":
		r.children(sb, n, style.Foreground(r.styles.Theme.Primary).Underline(true))
		if href := attrVal(n, "href"); href != "" {
			sb.WriteString(r.styles.Muted.Render(" (" + href + ")"))
		}
	case "ul":
		r.listIdx = 0
		r.children(sb, n, style)
		sb.WriteByte('\n')
	case "ol":
		r.listIdx = 1
		r.children(sb, n, style)
		r.listIdx = 0
		sb.WriteByte('\n')
	case "li":
		if r.listIdx > 0 {
			sb.WriteString(strconv.Itoa(r.listIdx) + ". ")
			r.listIdx++
		} else {
			sb.WriteString("• ")
		}
		r.children(sb, n, style)
		sb.WriteByte('\n')
	case "blockquote":
		var inner strings.Builder
		r.children(&inner, n, style.Foreground(r.styles.Theme.Muted))
		for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
			sb.WriteString(r.styles.Muted.Render("│ "))
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	default:
		r.children(sb, n, style)
	}
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
