package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptNeverSurvives(t *testing.T) {
	out := HTML(`<p>hi</p><script>alert(1)</script>`)

	assert.NotContains(t, out, "<script")
	assert.Contains(t, out, "alert(1)", "inner text is preserved")
	assert.Contains(t, out, "<p>hi</p>")
}

func TestDisallowedTagKeepsTextOnly(t *testing.T) {
	out := HTML(`<div class="x"><strong>bold</strong> plain</div>`)

	// The whole div subtree is reduced to text: nested tags go too.
	assert.Equal(t, "bold plain", out)
}

func TestAllowedSubsetPreserved(t *testing.T) {
	in := `<blockquote><ul><li><em>one</em></li><li><u>two</u></li></ul></blockquote>`
	assert.Equal(t, in, HTML(in))
}

func TestAttributesStripped(t *testing.T) {
	out := HTML(`<p style="color:red" onclick="alert(1)">text</p>`)
	assert.Equal(t, "<p>text</p>", out)

	out = HTML(`<a href="/posts/1" onmouseover="x()">link</a>`)
	assert.Equal(t, `<a href="/posts/1">link</a>`, out)
}

func TestJavascriptHrefDropped(t *testing.T) {
	out := HTML(`<a href="javascript:alert(1)">click</a>`)

	assert.NotContains(t, out, "href")
	assert.NotContains(t, out, "javascript")
	assert.Contains(t, out, "<a>click</a>")
}

func TestObfuscatedSchemesDropped(t *testing.T) {
	cases := []string{
		"JaVaScRiPt:alert(1)",
		" javascript:alert(1)",
		"java\tscript:alert(1)",
		"java\nscript:alert(1)",
		"data:text/html;base64,x",
		"vbscript:msgbox(1)",
	}
	for _, href := range cases {
		out := HTML(`<a href="` + href + `">x</a>`)
		assert.NotContains(t, out, "href", "href=%q must be dropped", href)
	}
}

func TestExternalLinkHardening(t *testing.T) {
	out := HTML(`<a href="https://example.com">ext</a>`)

	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, `target="_blank"`)
	assert.Contains(t, out, `rel="noopener noreferrer"`)
}

func TestInternalLinksNotHardened(t *testing.T) {
	for _, href := range []string{"/posts/1", "#section", "mailto:a@b.edu", "tel:+886212345678"} {
		out := HTML(`<a href="` + href + `">x</a>`)
		assert.Contains(t, out, "href=", "href=%q must be kept", href)
		assert.NotContains(t, out, "target", "href=%q is not external", href)
	}
}

func TestOnlyHrefSurvivesOnLinks(t *testing.T) {
	out := HTML(`<a href="/posts/1" title="tip" class="x" onclick="evil()">x</a>`)

	assert.Contains(t, out, `href="/posts/1"`)
	assert.NotContains(t, out, "title")
	assert.NotContains(t, out, "class")
	assert.NotContains(t, out, "onclick")
}

func TestUnknownSchemeDropped(t *testing.T) {
	out := HTML(`<a href="ftp://example.com/file">x</a>`)
	assert.NotContains(t, out, "href")
}

func TestTextEscaped(t *testing.T) {
	out := HTML(`<p>1 < 2 & 3 > 2</p>`)
	assert.NotContains(t, strings.TrimPrefix(strings.TrimSuffix(out, "</p>"), "<p>"), "<")
}

func TestEmptyInput(t *testing.T) {
	assert.Equal(t, "", HTML(""))
}

func TestPlainTextUntouched(t *testing.T) {
	assert.Equal(t, "just words", HTML("just words"))
}

func TestStripAllTagsFallback(t *testing.T) {
	assert.Equal(t, "alert(1)ok", stripAllTags("<script>alert(1)</script><p>ok</p>"))
}

func TestValidHref(t *testing.T) {
	tests := []struct {
		href     string
		ok       bool
		external bool
	}{
		{"https://example.com", true, true},
		{"http://example.com", true, true},
		{"/relative/path", true, false},
		{"mailto:user@campus.edu", true, false},
		{"tel:+123", true, false},
		{"javascript:alert(1)", false, false},
		{"data:text/html,x", false, false},
		{"vbscript:x", false, false},
		{"ftp://host", false, false},
		{"", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			ok, external := validHref(tt.href)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.external, external)
		})
	}
}
