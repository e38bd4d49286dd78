// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session keeps the in-memory chat sessions of the HTTP front end.
//
// Each browser gets a session ID (a UUID carried in a cookie) mapped to one
// chat.Session. Sessions idle longer than the configured timeout are swept.
// Nothing is persisted: a restart starts every browser over.
package session
