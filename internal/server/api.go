// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/export"
	"github.com/jeranaias/localchat/internal/logging"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
)

// Error kinds used in JSON error bodies besides the gateway kinds.
const (
	kindBadRequest = "bad_request"
	kindEmpty      = "empty_prompt"
	kindBusy       = "busy"
	kindValidation = "validation"
	kindNotFound   = "not_found"
	kindInternal   = "internal"
)

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Reply       string           `json:"reply"`
	Placeholder bool             `json:"placeholder"`
	DurationMS  int64            `json:"duration_ms"`
	Exchange    *ollama.Exchange `json:"exchange,omitempty"`
}

type chatErrorResponse struct {
	Error    apiErrorBody     `json:"error"`
	Exchange *ollama.Exchange `json:"exchange,omitempty"`
}

type transcriptResponse struct {
	Session  string          `json:"session"`
	Busy     bool            `json:"busy"`
	Messages []model.Message `json:"messages"`
}

// settingsPayload is a partial settings update; nil fields are left alone.
type settingsPayload struct {
	Endpoint    *string  `json:"endpoint,omitempty"`
	Model       *string  `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Debug       *bool    `json:"debug,omitempty"`
	LogLevel    *string  `json:"log_level,omitempty"`
}

type settingsResponse struct {
	chat.Settings
	LogLevel string `json:"log_level,omitempty"`
}

type logsResponse struct {
	Lines   []string `json:"lines"`
	Message string   `json:"message,omitempty"`
}

type modelsResponse struct {
	Default string            `json:"default"`
	Models  []model.ModelInfo `json:"models"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelServer string `json:"model_server"`
	Sessions    int    `json:"sessions"`
	Version     string `json:"version"`
}

// ============================================================================
// CHAT
// ============================================================================

// handleChat runs one turn. 400 on a blank prompt, 409 while another turn is
// running, 502 when the model call fails.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, kindBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	turn, err := sess.Submit(r.Context(), req.Prompt)
	switch {
	case errors.Is(err, chat.ErrEmptyPrompt):
		s.writeError(w, http.StatusBadRequest, kindEmpty, err.Error())
		return
	case errors.Is(err, chat.ErrTurnInProgress):
		s.writeError(w, http.StatusConflict, kindBusy, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, kindInternal, err.Error())
		return
	}

	debug := sess.Settings().Debug
	if turn.Failed() {
		resp := chatErrorResponse{Error: apiErrorBody{Kind: turn.ErrorKind().String(), Message: turn.Err.Error()}}
		if debug {
			resp.Exchange = turn.Exchange
		}
		s.writeJSON(w, http.StatusBadGateway, resp)
		return
	}

	resp := chatResponse{
		Reply:       turn.Reply,
		Placeholder: turn.Placeholder,
		DurationMS:  turn.Duration.Milliseconds(),
	}
	if debug {
		resp.Exchange = turn.Exchange
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleTranscript returns the session's messages in order.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	s.writeJSON(w, http.StatusOK, transcriptResponse{
		Session:  sess.ID(),
		Busy:     sess.Busy(),
		Messages: sess.Messages(),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if err := sess.Clear(); err != nil {
		s.writeError(w, http.StatusConflict, kindBusy, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// ============================================================================
// SETTINGS
// ============================================================================

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	s.writeJSON(w, http.StatusOK, s.settingsView(sess))
}

// handlePutSettings applies a partial update. The whole update is rejected
// if any field is out of range.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	var p settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, kindBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if err := s.applySettings(sess, p); err != nil {
		s.writeError(w, http.StatusBadRequest, kindValidation, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.settingsView(sess))
}

// applySettings merges p into the session settings and the log level.
func (s *Server) applySettings(sess *chat.Session, p settingsPayload) error {
	next := sess.Settings()
	if p.Endpoint != nil {
		next.Endpoint = *p.Endpoint
	}
	if p.Model != nil {
		next.Model = *p.Model
	}
	if p.Temperature != nil {
		next.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		next.MaxTokens = *p.MaxTokens
	}
	if p.Debug != nil {
		next.Debug = *p.Debug
	}

	next = next.Normalize()
	if err := next.Validate(); err != nil {
		return err
	}

	lc := s.logControl()
	if p.LogLevel != nil && lc != nil {
		if _, err := logging.ParseLevel(*p.LogLevel); err != nil {
			return config.ValidateErrors{{Field: "log_level", Message: err.Error()}}
		}
	}

	if err := sess.UpdateSettings(next); err != nil {
		return err
	}
	if p.LogLevel != nil && lc != nil && *p.LogLevel != lc.LevelName() {
		if err := lc.SetLevelName(*p.LogLevel); err != nil {
			return err
		}
		s.log.Info("Log level changed", "level", lc.LevelName())
	}
	return nil
}

func (s *Server) settingsView(sess *chat.Session) settingsResponse {
	resp := settingsResponse{Settings: sess.Settings()}
	if lc := s.logControl(); lc != nil {
		resp.LogLevel = lc.LevelName()
	}
	return resp
}

// ============================================================================
// LOGS / MODELS
// ============================================================================

// handleLogs returns the last ?lines=N log lines (default 10).
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	n := defaultLogLines
	if v := r.URL.Query().Get("lines"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, kindBadRequest, "lines must be a positive integer")
			return
		}
		n = min(parsed, maxLogLines)
	}

	lines, msg := s.recentLogs(n)
	s.writeJSON(w, http.StatusOK, logsResponse{Lines: lines, Message: msg})
}

// recentLogs returns up to n log lines, or a message explaining why there
// are none.
func (s *Server) recentLogs(n int) ([]string, string) {
	lc := s.logControl()
	if lc == nil {
		return []string{}, "Logging is not configured"
	}
	lines, err := lc.Tail(n)
	switch {
	case errors.Is(err, logging.ErrNoLogs):
		return []string{}, "No logs available yet"
	case err != nil:
		s.log.Error("Error reading logs", "error", err)
		return []string{}, "Error reading logs: " + err.Error()
	case len(lines) == 0:
		return []string{}, "No logs available yet"
	}
	return lines, ""
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, modelsResponse{Default: model.DefaultModel, Models: model.Models})
}

// ============================================================================
// EXPORT / HEALTH
// ============================================================================

// handleExport downloads the transcript as ?format=markdown|json|html.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	exporter, err := export.ForFormat(r.URL.Query().Get("format"), export.DefaultOptions())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, kindBadRequest, err.Error())
		return
	}

	doc := export.NewDocument(sess.Messages(), sess.Settings().Model)
	body, err := exporter.Export(doc)
	if errors.Is(err, export.ErrEmptyTranscript) {
		s.writeError(w, http.StatusNotFound, kindNotFound, err.Error())
		return
	}
	if err != nil {
		s.log.Error("Export failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, kindInternal, err.Error())
		return
	}

	w.Header().Set("Content-Type", exporter.MimeType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(doc, exporter)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleHealth reports the server and the model server status. A model
// server that does not answer degrades the status but still returns 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Sessions: s.sessions.Len(),
		Version:  s.version,
	}

	if h := s.healthChecker(); h != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.CheckRunning(ctx, s.sessions.Defaults().Endpoint); err == nil {
			resp.ModelServer = "ok"
		} else {
			resp.ModelServer = "unavailable"
			resp.Status = "degraded"
		}
	} else {
		resp.ModelServer = "not_configured"
	}

	s.writeJSON(w, http.StatusOK, resp)
}
