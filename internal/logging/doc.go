// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application logger: a rotating log file plus
// an optional console sink behind one runtime-adjustable minimum level.
//
// # Levels
//
// DEBUG, INFO, WARNING, ERROR and CRITICAL. CRITICAL is a custom slog level
// above ERROR.
//
// # Sinks
//
// The file sink records everything at or above the minimum level. The
// console sink never goes below INFO. Both are fed through one slog.Logger.
//
// # Usage
//
//	log, err := logging.New(logging.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer log.Close()
//	slog.SetDefault(log.Logger)
//
//	log.SetLevelName("DEBUG")
//	lines, err := log.Tail(10)
package logging
