// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/model"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "ctrl+l":
			m.clear()
			return m, nil
		case "ctrl+d":
			m.toggleDebug()
			return m, nil
		case "ctrl+y":
			m.copyLastReply()
			return m, nil
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case TurnDoneMsg:
		m.thinking = false
		m.pending = ""
		switch {
		case errors.Is(msg.Err, chat.ErrTurnInProgress):
			m.status = "A reply is still being generated."
		case msg.Err != nil:
			m.status = msg.Err.Error()
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.thinking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		m.status = string(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	if _, ok := msg.(tea.MouseMsg); ok {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// submit sends the input line. Blank input does nothing, and a second
// prompt is refused while the first is outstanding.
func (m Model) submit() (tea.Model, tea.Cmd) {
	prompt := m.input.Value()
	if strings.TrimSpace(prompt) == "" {
		return m, nil
	}
	if m.thinking {
		m.status = "A reply is still being generated."
		return m, nil
	}

	m.thinking = true
	m.pending = prompt
	m.status = ""
	m.input.Reset()
	m.refresh()

	return m, tea.Batch(m.spinner.Tick, submitPrompt(m.session, prompt))
}

func (m *Model) clear() {
	if err := m.session.Clear(); err != nil {
		m.status = "Cannot clear while a reply is being generated."
		return
	}
	m.status = "Chat history cleared."
	m.refresh()
}

func (m *Model) toggleDebug() {
	settings := m.session.Settings()
	settings.Debug = !settings.Debug
	if err := m.session.UpdateSettings(settings); err != nil {
		m.status = err.Error()
		return
	}
	if settings.Debug {
		m.status = "Debug mode on."
	} else {
		m.status = "Debug mode off."
	}
	m.refresh()
}

func (m *Model) copyLastReply() {
	last, ok := m.session.Transcript().LastOfRole(model.RoleAssistant)
	if !ok {
		m.status = "Nothing to copy yet."
		return
	}
	if err := m.copy(last.Content); err != nil {
		m.status = "Clipboard unavailable: " + err.Error()
		return
	}
	m.status = "Copied last reply to clipboard."
}

// resize lays out the viewport and rebuilds the markdown renderer for the
// new width.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width = width
	m.viewport.Height = max(height-chromeRows, 1)
	m.input.Width = max(width-4, 10)

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err == nil {
		m.renderer = r
	}
	m.ready = true
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
