// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the localchat packages.
//
// # Key Functions
//
// String Utilities:
//   - Excerpt: prompt excerpt used in log lines ("first 50 runes...")
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, StringWidth: display-width aware helpers for terminals
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - TailLines: last N lines of a text file
//
// # Usage
//
//	log.Info("User input received: " + util.Excerpt(prompt, 50))
//
//	err := util.AtomicWriteFile(path, data, 0600)
package util
