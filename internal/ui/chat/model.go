// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/ui/styles"
)

// Layout rows outside the viewport: header, status line, input, help.
const chromeRows = 4

// Model is the bubbletea model of the terminal chat screen.
type Model struct {
	session *chat.Session
	theme   *styles.Theme

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	thinking bool
	pending  string
	status   string

	// copy writes to the system clipboard; replaced in tests.
	copy func(string) error
}

// New creates the chat screen for session.
func New(session *chat.Session) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your message here..."
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = styles.ThinkingSpinner

	theme := styles.NewTheme()
	sp.Style = theme.Spinner
	ti.PromptStyle = theme.InputPrompt

	return Model{
		session:  session,
		theme:    theme,
		viewport: viewport.New(80, 20),
		input:    ti,
		spinner:  sp,
		width:    80,
		height:   24,
		copy:     clipboard.WriteAll,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Session returns the chat session behind the screen.
func (m Model) Session() *chat.Session {
	return m.session
}

// Thinking reports whether a reply is being waited on.
func (m Model) Thinking() bool {
	return m.thinking
}

// Status returns the transient status line.
func (m Model) Status() string {
	return m.status
}

// Run starts the full-screen program and blocks until the user quits.
// status, if not empty, is shown until the first message is sent.
func Run(session *chat.Session, status string) error {
	m := New(session)
	m.status = status
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
