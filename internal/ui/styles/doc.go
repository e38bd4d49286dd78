// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colors and lipgloss styles of the terminal
// front ends.
//
// Colors are lipgloss.AdaptiveColor values so the same palette works on light
// and dark terminals. Status helpers pair every color with an ASCII
// indicator ([OK], [X], [!], [i]) so meaning never depends on color alone.
package styles
