// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat transcripts and the
// registry of selectable models.
//
// # Key Types
//
//   - Role: message author (user or assistant)
//   - Message: immutable, role-tagged transcript entry
//   - Transcript: ordered, in-memory message history for one chat session
//   - ModelInfo: a selectable model name with its display metadata
//
// # Usage
//
//	t := model.NewTranscript()
//	t.Append(model.RoleUser, "Hello!")
//	for _, msg := range t.All() {
//	    fmt.Printf("%s: %s\n", msg.Role.DisplayName(), msg.Content)
//	}
package model
