// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/export"
	"github.com/jeranaias/localchat/internal/logging"
	"github.com/jeranaias/localchat/internal/markdown"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.New("index.html").ParseFS(templateFS, "templates/index.html"))

// ============================================================================
// VIEW MODEL
// ============================================================================

type pageData struct {
	Version   string
	Session   string
	Flash     string
	Busy      bool
	Settings  chat.Settings
	Models    []model.ModelInfo
	LogLevel  string
	LogLevels []string
	Messages  []messageView
	Error     string
	Debug     *debugView
	Logs      []string
	LogsNote  string
	Formats   []string

	TempMin, TempMax, TempStep       float64
	TokensMin, TokensMax, TokensStep int
}

type messageView struct {
	Role  string
	Label string
	Text  string
	HTML  template.HTML
	Time  string
}

type debugView struct {
	Endpoint    string
	RequestBody string
	StatusCode  int
	Headers     []string
	Body        string
	Duration    string
}

func newDebugView(ex *ollama.Exchange) *debugView {
	if ex == nil {
		return nil
	}
	keys := make([]string, 0, len(ex.Headers))
	for k := range ex.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	headers := make([]string, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, k+": "+strings.Join(ex.Headers[k], ", "))
	}
	return &debugView{
		Endpoint:    ex.Endpoint,
		RequestBody: ex.RequestBody,
		StatusCode:  ex.StatusCode,
		Headers:     headers,
		Body:        ex.Body,
		Duration:    ex.Duration.Round(time.Millisecond).String(),
	}
}

// ============================================================================
// PAGE
// ============================================================================

// handleIndex renders the chat page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	settings := sess.Settings()

	data := pageData{
		Version:    s.version,
		Session:    sess.ID(),
		Flash:      popFlash(w, r),
		Busy:       sess.Busy(),
		Settings:   settings,
		Models:     model.Models,
		LogLevels:  logging.LevelNames,
		Formats:    export.Formats,
		TempMin:    config.TemperatureMin,
		TempMax:    config.TemperatureMax,
		TempStep:   config.TemperatureStep,
		TokensMin:  config.MaxTokensMin,
		TokensMax:  config.MaxTokensMax,
		TokensStep: config.MaxTokensStep,
	}
	if lc := s.logControl(); lc != nil {
		data.LogLevel = lc.LevelName()
	}

	for _, m := range sess.Messages() {
		mv := messageView{
			Role:  m.Role.String(),
			Label: m.Role.DisplayName(),
			Time:  m.Timestamp.Format("15:04:05"),
		}
		if m.Role == model.RoleAssistant {
			mv.HTML = markdown.ToHTML(m.Content)
		} else {
			mv.Text = m.Content
		}
		data.Messages = append(data.Messages, mv)
	}

	if turn := sess.LastTurn(); turn != nil {
		if turn.Failed() {
			data.Error = turn.Err.Error()
		}
		if settings.Debug {
			data.Debug = newDebugView(turn.Exchange)
		}
	}

	data.Logs, data.LogsNote = s.recentLogs(defaultLogLines)

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		s.log.Error("Page render failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// ============================================================================
// FORM POSTS
// ============================================================================

// handleChatForm runs one turn from the prompt form. A blank prompt is a
// no-op; the outcome is shown by the page the browser is redirected to.
func (s *Server) handleChatForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	_, err := sess.Submit(r.Context(), r.PostFormValue("prompt"))
	switch {
	case errors.Is(err, chat.ErrEmptyPrompt):
	case errors.Is(err, chat.ErrTurnInProgress):
		setFlash(w, "A reply is still being generated. Try again in a moment.")
	case err != nil:
		setFlash(w, err.Error())
	}
	redirectHome(w, r)
}

// handleSettingsForm applies the sidebar settings form.
func (s *Server) handleSettingsForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	p, err := settingsFromForm(r)
	if err == nil {
		err = s.applySettings(sess, p)
	}
	if err != nil {
		setFlash(w, "Settings not saved: "+err.Error())
	}
	redirectHome(w, r)
}

func (s *Server) handleClearForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if err := sess.Clear(); err != nil {
		setFlash(w, "Cannot clear while a reply is being generated.")
	}
	redirectHome(w, r)
}

// settingsFromForm reads the settings form. The debug checkbox is absent
// from the form data when unchecked.
func settingsFromForm(r *http.Request) (settingsPayload, error) {
	var p settingsPayload

	if v := strings.TrimSpace(r.PostFormValue("model")); v != "" {
		p.Model = &v
	}
	if v := strings.TrimSpace(r.PostFormValue("endpoint")); v != "" {
		p.Endpoint = &v
	}
	if v := strings.TrimSpace(r.PostFormValue("temperature")); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, config.ValidateErrors{{Field: "temperature", Message: "not a number"}}
		}
		p.Temperature = &t
	}
	if v := strings.TrimSpace(r.PostFormValue("max_tokens")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, config.ValidateErrors{{Field: "max_tokens", Message: "not an integer"}}
		}
		p.MaxTokens = &n
	}
	if v := strings.TrimSpace(r.PostFormValue("log_level")); v != "" {
		p.LogLevel = &v
	}

	debug := r.PostFormValue("debug") != ""
	p.Debug = &debug
	return p, nil
}
