package reporting

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// MarkdownRenderer converts Markdown to sanitized HTML
type MarkdownRenderer struct {
	policy *bluemonday.Policy
}

// NewMarkdownRenderer creates a renderer that only lets user-generated-content markup through
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts markdown content to HTML
func (m *MarkdownRenderer) Render(content string) template.HTML {
	if content == "" {
		return ""
	}
	extensions := blackfriday.CommonExtensions |
		blackfriday.HardLineBreak |
		blackfriday.NoEmptyLineBeforeBlock
	html := blackfriday.Run([]byte(content), blackfriday.WithExtensions(extensions))
	return template.HTML(m.policy.SanitizeBytes(html))
}
