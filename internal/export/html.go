// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/jeranaias/localchat/internal/markdown"
	"github.com/jeranaias/localchat/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts as a standalone HTML page with embedded
// CSS. Assistant replies are rendered from markdown and sanitized.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

type htmlMessage struct {
	Role      string
	Label     string
	Body      template.HTML
	Timestamp string
}

type htmlPage struct {
	Doc      *Document
	Options  *Options
	Exported string
	Messages []htmlMessage
}

var htmlTemplate = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<meta name="generator" content="localchat">
<title>{{.Doc.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; background: #1a1b26; color: #c0caf5; }
header { border-bottom: 1px solid #3b4261; margin-bottom: 1.5rem; }
.meta { color: #7aa2f7; font-size: .9rem; }
.msg { border-radius: 8px; padding: .75rem 1rem; margin: 1rem 0; }
.msg.user { background: #24283b; }
.msg.assistant { background: #1f2335; border-left: 3px solid #bb9af7; }
.label { font-weight: 600; }
.ts { color: #565f89; font-size: .8rem; margin-left: .5rem; }
.user .body { white-space: pre-wrap; }
pre { background: #16161e; padding: .75rem; overflow-x: auto; border-radius: 6px; }
</style>
</head>
<body>
<header>
<h1>{{.Doc.Title}}</h1>
{{- if .Options.IncludeMetadata}}
<p class="meta">Model: {{.Doc.Model}} &middot; Messages: {{len .Doc.Messages}} &middot; Exported: {{.Exported}}</p>
{{- end}}
</header>
{{- range .Messages}}
<div class="msg {{.Role}}">
<div><span class="label">{{.Label}}</span>{{if .Timestamp}}<span class="ts">{{.Timestamp}}</span>{{end}}</div>
<div class="body">{{.Body}}</div>
</div>
{{- end}}
</body>
</html>
`))

// Export converts a document to HTML.
func (e *HTMLExporter) Export(doc *Document) ([]byte, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}

	page := htmlPage{
		Doc:      doc,
		Options:  e.options,
		Exported: formatTimestamp(doc.ExportedAt),
		Messages: make([]htmlMessage, 0, len(doc.Messages)),
	}
	for _, msg := range doc.Messages {
		hm := htmlMessage{
			Role:  msg.Role.String(),
			Label: msg.Role.DisplayName(),
		}
		if msg.Role == model.RoleAssistant {
			hm.Body = markdown.ToHTML(msg.Content)
		} else {
			hm.Body = template.HTML(template.HTMLEscapeString(msg.Content))
		}
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			hm.Timestamp = formatTimestamp(msg.Timestamp)
		}
		page.Messages = append(page.Messages, hm)
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html; charset=utf-8"
}
