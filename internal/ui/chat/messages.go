// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/localchat/internal/chat"
)

// =============================================================================
// MESSAGES
// =============================================================================

// TurnDoneMsg is sent when a submitted prompt has been answered or failed.
type TurnDoneMsg struct {
	Turn *chat.Turn
	Err  error
}

// statusMsg sets the transient status line.
type statusMsg string

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// submitPrompt runs one turn off the UI goroutine.
func submitPrompt(session *chat.Session, prompt string) tea.Cmd {
	return func() tea.Msg {
		turn, err := session.Submit(context.Background(), prompt)
		return TurnDoneMsg{Turn: turn, Err: err}
	}
}
