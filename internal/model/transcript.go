// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered message history of one chat session. Insertion
// order is conversation order. Entries are never edited or removed except
// by Clear. Nothing is persisted; a transcript lives as long as its session.
//
// The Transcript is safe for concurrent use.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{messages: make([]Message, 0, 16)}
}

// Append adds a message to the end of the transcript and returns it.
func (t *Transcript) Append(role Role, content string) Message {
	msg := NewMessage(role, content)

	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()

	return msg
}

// All returns a copy of the transcript in insertion order.
func (t *Transcript) All() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Clear removes every message.
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.messages = make([]Message, 0, 16)
	t.mu.Unlock()
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// IsEmpty returns true if the transcript has no messages.
func (t *Transcript) IsEmpty() bool {
	return t.Len() == 0
}

// Last returns the most recent message, if any.
func (t *Transcript) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastOfRole returns the most recent message with the given role.
func (t *Transcript) LastOfRole(role Role) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == role {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

// EstimateTokens sums the rough token estimates of every message.
func (t *Transcript) EstimateTokens() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := 0
	for _, m := range t.messages {
		total += m.EstimateTokens()
	}
	return total
}
