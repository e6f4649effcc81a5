// Package sanitize reduces untrusted rich-text content to a safe subset of
// HTML before it is rendered. The filter is a strict allow-list: any tag,
// attribute or URL shape not explicitly permitted is discarded.
package sanitize

import (
	"regexp"
	"strings"

	"forumkit/internal/logging"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedTags is the full set of elements that survive sanitization.
var allowedTags = map[string]bool{
	"p": true, "br": true, "strong": true, "em": true, "u": true,
	"a": true, "ul": true, "ol": true, "li": true, "blockquote": true,
}

// allowedAttrs maps tag -> attributes kept on that tag. Everything else is
// dropped, including style, class and event handlers.
var allowedAttrs = map[string]map[string]bool{
	"a": {"href": true},
}

// voidTags render without a closing tag.
var voidTags = map[string]bool{
	"br": true,
}

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.\-]*:`)
)

// HTML converts untrusted rich text into the allowed subset. Disallowed
// elements are replaced by their text content. Any failure during parsing
// falls back to stripping all tags.
func HTML(input string) (out string) {
	if input == "" {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Sanitize("parser panic, falling back to tag strip: %v", r)
			out = stripAllTags(input)
		}
	}()

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(input), body)
	if err != nil {
		logging.Sanitize("parse failed, falling back to tag strip: %v", err)
		return stripAllTags(input)
	}

	var sb strings.Builder
	for _, n := range nodes {
		renderNode(&sb, n)
	}
	return sb.String()
}

func renderNode(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(html.EscapeString(n.Data))
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if !allowedTags[tag] {
			// Tags stripped, text kept.
			writeTextContent(sb, n)
			return
		}
		renderElement(sb, n, tag)
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(sb, c)
		}
	}
	// Comments, doctypes and raw nodes are dropped.
}

func renderElement(sb *strings.Builder, n *html.Node, tag string) {
	sb.WriteByte('<')
	sb.WriteString(tag)

	for _, attr := range filterAttrs(tag, n.Attr) {
		sb.WriteByte(' ')
		sb.WriteString(attr.Key)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(attr.Val))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')

	if voidTags[tag] {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(sb, c)
	}
	sb.WriteString("</")
	sb.WriteString(tag)
	sb.WriteByte('>')
}

// filterAttrs keeps only allow-listed attributes and validates href values.
// External links get target=_blank and rel=noopener noreferrer injected.
func filterAttrs(tag string, attrs []html.Attribute) []html.Attribute {
	allowed := allowedAttrs[tag]
	if allowed == nil {
		return nil
	}

	var out []html.Attribute
	external := false
	for _, attr := range attrs {
		key := strings.ToLower(attr.Key)
		if !allowed[key] {
			continue
		}
		if key == "href" {
			ok, ext := validHref(attr.Val)
			if !ok {
				// Dangerous schemes lose the attribute entirely.
				continue
			}
			external = external || ext
		}
		out = append(out, html.Attribute{Key: key, Val: attr.Val})
	}

	if external {
		out = append(out,
			html.Attribute{Key: "target", Val: "_blank"},
			html.Attribute{Key: "rel", Val: "noopener noreferrer"},
		)
	}
	return out
}

// validHref reports whether the URL shape is allowed and whether it points
// off-origin. Scheme matching strips control characters and whitespace
// first; "jav\tascript:" style obfuscation must not slip through.
func validHref(raw string) (ok, external bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, raw)
	lower := strings.ToLower(cleaned)

	switch {
	case strings.HasPrefix(lower, "javascript:"),
		strings.HasPrefix(lower, "data:"),
		strings.HasPrefix(lower, "vbscript:"):
		return false, false
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return true, true
	case strings.HasPrefix(lower, "mailto:"), strings.HasPrefix(lower, "tel:"):
		return true, false
	case schemePattern.MatchString(lower):
		// Unknown scheme: not on the allow-list.
		return false, false
	default:
		// Same-origin relative path, fragment or query.
		return true, false
	}
}

// writeTextContent emits the escaped text of the whole subtree.
func writeTextContent(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(html.EscapeString(n.Data))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeTextContent(sb, c)
	}
}

// stripAllTags is the last-resort fallback when parsing fails.
func stripAllTags(input string) string {
	return tagPattern.ReplaceAllString(input, "")
}
