// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the browser front end and JSON API for chat
// sessions.
//
// Each browser gets its own chat session, identified by the localchat_session
// cookie or the X-Session-ID header. The page is plain HTML forms using
// Post/Redirect/Get; the JSON API exposes the same operations.
//
// # Endpoints
//
//   - GET  /               - Chat page (settings sidebar, transcript, prompt)
//   - POST /chat           - Submit a prompt (form)
//   - POST /settings       - Apply settings (form)
//   - POST /clear          - Clear the transcript (form)
//   - GET  /export         - Download the transcript (?format=markdown|json|html)
//   - GET  /api/transcript - Transcript as JSON
//   - POST /api/chat       - Run one turn: {"prompt"} -> {"reply"}
//   - POST /api/clear      - Clear the transcript
//   - GET  /api/settings   - Current settings
//   - PUT  /api/settings   - Partial settings update
//   - GET  /api/logs       - Last N log lines (?lines=N, default 10)
//   - GET  /api/models     - Selectable models
//   - GET  /health         - Server and model server status
//
// # Status Codes
//
// POST /api/chat answers 400 for a blank prompt, 409 while the session is
// already waiting on the model, and 502 with {"error":{"kind","message"}}
// when the model call fails.
//
// # Usage
//
//	srv := server.NewServer(cfg.Server.Addr, sessions).
//		WithHealthChecker(client).
//		WithLogControl(logger)
//	if err := srv.Run(ctx); err != nil {
//		return err
//	}
package server
