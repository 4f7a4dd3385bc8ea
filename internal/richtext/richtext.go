// Package richtext turns backend-provided text into safe template HTML.
// Analysis reports arrive as markdown, keyword and blog summaries as HTML
// fragments, and festival overviews as loosely tagged text.
package richtext

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
	)
	policy = newPolicy()
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("span", "p", "div", "mark")
	p.AllowElements("mark")
	p.AllowAttrs("loading").OnElements("img")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Markdown renders src and sanitizes the result. Raw HTML in src is escaped by
// the renderer and anything left is filtered by the policy.
func Markdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes()))
}

// HTML sanitizes a backend HTML fragment.
func HTML(src string) template.HTML {
	return template.HTML(policy.Sanitize(src))
}

// PlainText strips all markup, collapsing whitespace.
func PlainText(src string) string {
	if !strings.ContainsAny(src, "<&") {
		return strings.Join(strings.Fields(src), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return strings.Join(strings.Fields(bluemonday.StrictPolicy().Sanitize(src)), " ")
	}
	doc.Find("br").ReplaceWithHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Preformatted escapes plain text for display inside a pre-wrap block.
func Preformatted(src string) template.HTML {
	return template.HTML(template.HTMLEscapeString(strings.TrimSpace(src)))
}
