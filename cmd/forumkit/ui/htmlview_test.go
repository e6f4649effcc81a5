package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderRichTextDropsScripts(t *testing.T) {
	out := RenderRichText(DefaultStyles(), `<p>安全內容</p><script>alert(1)</script>`, 0)

	assert.Contains(t, out, "安全內容")
	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "<script>")
}

func TestRenderRichTextLists(t *testing.T) {
	out := RenderRichText(DefaultStyles(), `<ul><li>甲</li><li>乙</li></ul>`, 0)
	assert.Contains(t, out, "• 甲")
	assert.Contains(t, out, "• 乙")

	out = RenderRichText(DefaultStyles(), `<ol><li>first</li><li>second</li></ol>`, 0)
	assert.Contains(t, out, "1. first")
	assert.Contains(t, out, "2. second")
}

func TestRenderRichTextLinkShowsTarget(t *testing.T) {
	out := RenderRichText(DefaultStyles(), `<a href="https://example.com/page">link</a>`, 0)

	assert.Contains(t, out, "link")
	assert.Contains(t, out, "https://example.com/page")
}

func TestRenderRichTextUnsafeLinkLosesHref(t *testing.T) {
	out := RenderRichText(DefaultStyles(), `<a href="javascript:alert(1)">click</a>`, 0)

	assert.Contains(t, out, "click")
	assert.NotContains(t, out, "javascript")
}

func TestRenderRichTextBlockquote(t *testing.T) {
	out := RenderRichText(DefaultStyles(), `<blockquote>quoted line</blockquote>`, 0)

	assert.Contains(t, out, "quoted line")
	assert.True(t, strings.Contains(out, "│"), "blockquote lines carry the gutter prefix")
}

func TestRenderRichTextDisallowedTagKeepsText(t *testing.T) {
	out := RenderRichText(DefaultStyles(), `<div class="x"><span>inner text</span></div>`, 0)

	assert.Contains(t, out, "inner text")
	assert.NotContains(t, out, "div")
	assert.NotContains(t, out, "span")
}
