// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen terminal chat screen.
//
// The screen is a bubbletea model over one chat.Session: a scrolling
// transcript (assistant replies rendered as markdown with glamour), a status
// line with a spinner while a reply is outstanding, and a prompt line.
//
// # Key Bindings
//
//   - enter:   send the prompt
//   - ctrl+l:  clear the chat history
//   - ctrl+d:  toggle debug mode (show the raw request and response)
//   - ctrl+y:  copy the last reply to the clipboard
//   - esc, ctrl+c: quit
//
// Only one prompt is outstanding at a time; enter is refused until the reply
// or error arrives. The wait cannot be aborted.
package chat
