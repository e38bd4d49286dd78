// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements one chat session: its transcript, its settings and
// the handler that runs a single turn (user prompt in, model reply out).
//
// A session runs at most one turn at a time. A submission that arrives while
// a turn is in flight is rejected with ErrTurnInProgress rather than queued.
// A turn cannot be cancelled once the gateway call has started; the gateway
// timeout bounds it.
//
// Transcript invariant: the user message is appended before the gateway call
// and the assistant message only after a successful reply, so a failed turn
// leaves the user message without an answer.
package chat
