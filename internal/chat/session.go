// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/util"
)

// Sentinel errors for easy checking.
var (
	ErrEmptyPrompt    = errors.New("prompt is empty")
	ErrTurnInProgress = errors.New("a reply is still being generated")
)

// Gateway sends one prompt to the model.
type Gateway interface {
	Send(ctx context.Context, prompt string, cfg ollama.RequestConfig) (*ollama.Reply, error)
}

// =============================================================================
// TURN
// =============================================================================

// Turn is the outcome of one Submit.
type Turn struct {
	Prompt   string
	Reply    string
	Err      error
	Exchange *ollama.Exchange
	Started  time.Time
	Duration time.Duration

	// Placeholder is set when the model answered without a response field.
	Placeholder bool
}

// Failed reports whether the gateway call failed.
func (t *Turn) Failed() bool {
	return t.Err != nil
}

// ErrorKind returns the gateway error kind of a failed turn.
func (t *Turn) ErrorKind() ollama.ErrorKind {
	return ollama.KindOf(t.Err)
}

// =============================================================================
// SESSION
// =============================================================================

// Session owns one transcript and its settings.
//
// The Session is safe for concurrent use; turns are serialized.
type Session struct {
	id         string
	transcript *model.Transcript
	gateway    Gateway
	log        *slog.Logger

	// turn is held for the whole gateway call.
	turn     sync.Mutex
	inFlight atomic.Bool

	mu         sync.RWMutex
	settings   Settings
	last       *Turn
	createdAt  time.Time
	lastActive time.Time
}

// NewSession creates a session with an empty transcript.
func NewSession(id string, gw Gateway, settings Settings, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	now := time.Now()
	return &Session{
		id:         id,
		transcript: model.NewTranscript(),
		gateway:    gw,
		log:        log.With("session", id),
		settings:   settings,
		createdAt:  now,
		lastActive: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Submit runs one turn. Blank prompts are rejected with ErrEmptyPrompt and
// overlapping submissions with ErrTurnInProgress; neither touches the
// transcript. Gateway failures are reported in Turn.Err, not as the returned
// error.
//
// The gateway call ignores cancellation of ctx.
func (s *Session) Submit(ctx context.Context, prompt string) (*Turn, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if !s.turn.TryLock() {
		return nil, ErrTurnInProgress
	}
	s.inFlight.Store(true)
	defer func() {
		s.inFlight.Store(false)
		s.turn.Unlock()
	}()

	s.touch()
	settings := s.Settings()

	s.log.Info("User input received: " + util.Excerpt(prompt, 50))
	s.transcript.Append(model.RoleUser, prompt)

	turn := &Turn{Prompt: prompt, Started: time.Now()}
	reply, err := s.gateway.Send(context.WithoutCancel(ctx), prompt, settings.RequestConfig())
	turn.Duration = time.Since(turn.Started)

	if err != nil {
		turn.Err = err
		turn.Exchange = ollama.ExchangeOf(err)
	} else {
		turn.Reply = reply.Text
		turn.Placeholder = reply.Placeholder
		turn.Exchange = reply.Exchange
		s.transcript.Append(model.RoleAssistant, reply.Text)
	}

	s.mu.Lock()
	s.last = turn
	s.lastActive = time.Now()
	s.mu.Unlock()

	return turn, nil
}

// Clear empties the transcript. It fails with ErrTurnInProgress while a
// turn is running so a late reply cannot land in an empty transcript.
func (s *Session) Clear() error {
	if !s.turn.TryLock() {
		return ErrTurnInProgress
	}
	defer s.turn.Unlock()

	s.log.Info("Clearing chat history")
	s.transcript.Clear()

	s.mu.Lock()
	s.last = nil
	s.lastActive = time.Now()
	s.mu.Unlock()
	return nil
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	return s.inFlight.Load()
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []model.Message {
	return s.transcript.All()
}

// Transcript returns the underlying transcript.
func (s *Session) Transcript() *model.Transcript {
	return s.transcript
}

// Settings returns the current settings.
func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings validates and applies new settings. A turn already in
// flight keeps the settings it started with.
func (s *Session) UpdateSettings(settings Settings) error {
	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = settings
	s.lastActive = time.Now()
	s.mu.Unlock()

	s.log.Debug("Settings updated", "model", settings.Model, "temperature", settings.Temperature,
		"max_tokens", settings.MaxTokens, "debug", settings.Debug)
	return nil
}

// LastTurn returns the most recent turn since the last Clear, or nil.
func (s *Session) LastTurn() *Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastActive returns the time of the last user action.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Touch marks the session as active.
func (s *Session) Touch() {
	s.touch()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}
