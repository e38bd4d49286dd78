// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/util"
)

const helpLine = "enter send | ctrl+l clear | ctrl+d debug | ctrl+y copy | esc quit"

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render(util.TruncateWidth(helpLine, m.width)))
	return b.String()
}

func (m Model) renderHeader() string {
	s := m.session.Settings()
	info := fmt.Sprintf("%s | temp %.1f | max tokens %d", s.Model, s.Temperature, s.MaxTokens)
	if s.Debug {
		info += " | debug"
	}
	line := m.theme.HeaderTitle.Render("Local LLM Chat") + "  " + m.theme.HeaderInfo.Render(info)
	return m.theme.Header.Width(m.width).Render(line)
}

// renderStatus shows, in order of precedence: the spinner, the last turn's
// error, the transient status.
func (m Model) renderStatus() string {
	if m.thinking {
		return m.spinner.View() + " Thinking..."
	}
	if m.status != "" {
		return m.theme.Notice.Render(util.TruncateWidth(m.status, m.width))
	}
	if turn := m.session.LastTurn(); turn != nil && turn.Failed() {
		return m.theme.Error.Render(util.TruncateWidth(turn.Err.Error(), m.width))
	}
	return ""
}

// renderTranscript renders every message, the pending prompt and, in debug
// mode, the last exchange.
func (m Model) renderTranscript() string {
	messages := m.session.Messages()
	if len(messages) == 0 && m.pending == "" {
		return m.theme.Help.Render("Send a message to start the conversation.")
	}

	blocks := make([]string, 0, len(messages)+2)
	for _, msg := range messages {
		blocks = append(blocks, m.renderMessage(msg))
	}

	// The turn goroutine may not have appended the prompt yet.
	if m.pending != "" && !slices.ContainsFunc(messages, func(msg model.Message) bool {
		return msg.Role == model.RoleUser && msg.Content == m.pending
	}) {
		blocks = append(blocks, m.renderMessage(model.NewMessage(model.RoleUser, m.pending)))
	}

	if m.session.Settings().Debug {
		if d := m.renderDebug(); d != "" {
			blocks = append(blocks, d)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg model.Message) string {
	var label, body string
	if msg.Role == model.RoleAssistant {
		label = m.theme.AssistantLabel.Render(msg.Role.DisplayName())
		body = m.renderMarkdown(msg.Content)
	} else {
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
		body = m.theme.UserText.Width(max(m.width-2, 10)).Render(msg.Content)
	}
	return label + " " + m.theme.Timestamp.Render(msg.Timestamp.Format("15:04")) + "\n" + body
}

func (m Model) renderMarkdown(src string) string {
	if m.renderer == nil {
		return src
	}
	out, err := m.renderer.Render(src)
	if err != nil {
		return src
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) renderDebug() string {
	turn := m.session.LastTurn()
	if turn == nil || turn.Exchange == nil {
		return ""
	}
	ex := turn.Exchange

	var b strings.Builder
	fmt.Fprintf(&b, "Debug: POST %s (%s)\n", ex.Endpoint, ex.Duration.Round(time.Millisecond))
	b.WriteString(ex.RequestBody)
	if ex.StatusCode != 0 {
		fmt.Fprintf(&b, "\nResponse status: %d\n", ex.StatusCode)
		keys := make([]string, 0, len(ex.Headers))
		for k := range ex.Headers {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, strings.Join(ex.Headers[k], ", "))
		}
		b.WriteString(util.TruncateRunes(ex.Body, 500))
	}
	return m.theme.Debug.Width(max(m.width-2, 10)).Render(b.String())
}
