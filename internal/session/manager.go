// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/localchat/internal/chat"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Config holds configuration for the session manager.
type Config struct {
	// IdleTimeout drops sessions with no activity for this long (default: 30 minutes)
	IdleTimeout time.Duration

	// SweepInterval is how often Run looks for idle sessions (default: 1 minute)
	SweepInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:   30 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// Manager maps session IDs to chat sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*chat.Session
	defaults chat.Settings

	cfg     Config
	gateway chat.Gateway
	log     *slog.Logger
	now     func() time.Time
}

// NewManager creates a manager whose new sessions talk to gw and start with
// defaults.
func NewManager(cfg Config, gw chat.Gateway, defaults chat.Settings, log *slog.Logger) *Manager {
	d := DefaultConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = d.IdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = d.SweepInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*chat.Session),
		defaults: defaults,
		cfg:      cfg,
		gateway:  gw,
		log:      log,
		now:      time.Now,
	}
}

// =============================================================================
// LOOKUP
// =============================================================================

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*chat.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetOrCreate returns the session for id, creating a fresh one when id is
// unknown or not a valid session ID. created reports whether a new session
// was made; its ID may differ from id.
func (m *Manager) GetOrCreate(id string) (s *chat.Session, created bool) {
	if _, err := uuid.Parse(id); err == nil {
		if s, ok := m.Get(id); ok {
			s.Touch()
			return s, false
		}
	}
	return m.Create(), true
}

// Create makes a new session with the current defaults.
func (m *Manager) Create() *chat.Session {
	id := uuid.NewString()

	m.mu.Lock()
	s := chat.NewSession(id, m.gateway, m.defaults, m.log)
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.log.Info("Initialized new chat session", "session", id, "active", count)
	return s
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Defaults returns the settings given to new sessions.
func (m *Manager) Defaults() chat.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaults
}

// SetDefaults changes the settings given to new sessions. Existing sessions
// keep their own settings.
func (m *Manager) SetDefaults(s chat.Settings) {
	m.mu.Lock()
	m.defaults = s
	m.mu.Unlock()
}

// =============================================================================
// EXPIRY
// =============================================================================

// Sweep drops sessions idle longer than the idle timeout and returns how
// many were removed. A session with a turn in flight is never dropped.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.Busy() || s.LastActive().After(cutoff) {
			continue
		}
		delete(m.sessions, id)
		removed++
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	if removed > 0 {
		m.log.Info("Expired idle sessions", "removed", removed, "active", remaining, "idle", FormatDuration(m.cfg.IdleTimeout))
	}
	return removed
}

// Run sweeps idle sessions every SweepInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// FormatDuration returns a human-readable duration string ("45s", "3m",
// "3m 12s", "2h 5m").
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		if secs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
