// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown renders model replies as sanitized HTML.
//
// Model output is untrusted: it may contain raw HTML or javascript: links.
// Rendering goes through goldmark (CommonMark + GFM tables, strikethrough,
// autolinks) and the result is filtered by a bluemonday UGC policy.
package markdown

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	once     sync.Once
	engine   goldmark.Markdown
	sanitize *bluemonday.Policy
)

func setup() {
	engine = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	sanitize = bluemonday.UGCPolicy()
	// Keep fenced-code language classes for client-side highlighting.
	sanitize.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code")
}

// ToHTML converts markdown to sanitized HTML safe to embed in a page.
// If goldmark fails the source is returned escaped.
func ToHTML(src string) template.HTML {
	once.Do(setup)

	var buf bytes.Buffer
	if err := engine.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(sanitize.SanitizeBytes(buf.Bytes()))
}
