// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components of the chat screen.
type Theme struct {
	ColorProfile termenv.Profile

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderInfo  lipgloss.Style

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserText       lipgloss.Style
	Timestamp      lipgloss.Style

	Error   lipgloss.Style
	Notice  lipgloss.Style
	Debug   lipgloss.Style
	Spinner lipgloss.Style

	InputPrompt lipgloss.Style
	StatusBar   lipgloss.Style
	Help        lipgloss.Style
}

// NewTheme builds the theme for the current terminal.
func NewTheme() *Theme {
	t := &Theme{ColorProfile: termenv.ColorProfile()}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HeaderInfo = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.UserText = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Error = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
	t.Notice = lipgloss.NewStyle().
		Foreground(Amber)
	t.Debug = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(Amber)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)

	return t
}

// ThinkingSpinner is shown while a reply is being generated. ASCII frames
// render on every terminal.
var ThinkingSpinner = spinner.Spinner{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    time.Second / 10,
}
