// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/jeranaias/localchat/internal/util"
)

// =============================================================================
// TERMINAL DETECTION
// =============================================================================

const (
	// DefaultTerminalWidth is used when stdout is not a terminal.
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the narrowest width replies are wrapped to.
	MinTerminalWidth = 40
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// interactive reports whether both stdin and stdout are terminals, which the
// full-screen chat needs.
func interactive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// GetTerminalWidth returns the width of stdout, clamped to
// MinTerminalWidth, or DefaultTerminalWidth when it is not a terminal.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil || width <= 0:
		return DefaultTerminalWidth
	case width < MinTerminalWidth:
		return MinTerminalWidth
	default:
		return width
	}
}

// WrapText word-wraps text to width display columns less a two-column
// margin. Existing line breaks are kept; a single word wider than the limit
// is left on its own line. A non-positive width means the terminal width.
func WrapText(text string, width int) string {
	if width <= 0 {
		width = GetTerminalWidth()
	}
	if width > 10 {
		width -= 2
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if util.StringWidth(line) > width {
			lines[i] = wrapLine(line, width)
		}
	}
	return strings.Join(lines, "\n")
}

func wrapLine(line string, width int) string {
	var b strings.Builder
	used := 0
	for _, word := range strings.Fields(line) {
		w := util.StringWidth(word)
		if used > 0 && used+1+w > width {
			b.WriteByte('\n')
			used = 0
		} else if used > 0 {
			b.WriteByte(' ')
			used++
		}
		b.WriteString(word)
		used += w
	}
	return b.String()
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var colors struct {
	once    sync.Once
	enabled bool
}

// ColorsEnabled reports whether styled output should be used: NO_COLOR wins,
// then FORCE_COLOR, then whether stdout is a terminal.
func ColorsEnabled() bool {
	colors.once.Do(func() {
		switch {
		case os.Getenv("NO_COLOR") != "":
			colors.enabled = false
		case os.Getenv("FORCE_COLOR") != "":
			colors.enabled = true
		default:
			colors.enabled = isTerminal(os.Stdout)
		}
	})
	return colors.enabled
}

// ForceColorsEnabled overrides detection (--no-color).
func ForceColorsEnabled(enabled bool) {
	colors.once = sync.Once{}
	colors.once.Do(func() { colors.enabled = enabled })
}

// GetColorProfile returns the profile lipgloss renders with: Ascii when
// colors are off, otherwise whatever the terminal supports.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
