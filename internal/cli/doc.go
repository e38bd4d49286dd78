// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the localchat command line.
//
// Commands:
//
//	localchat [serve]     web UI and JSON API (default)
//	localchat chat        terminal chat, full-screen or --plain
//	localchat ask         one prompt, reply on stdout
//	localchat logs        recent log lines
//	localchat config      show, path, init, env
//	localchat version
//
// Every command loads the configuration the same way: defaults, then the TOML
// file, then .env and LOCALCHAT_* variables, then flags.
package cli
