// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jeranaias/localchat/internal/session"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8501"

	// DefaultMaxBodyBytes caps request bodies (64KB).
	DefaultMaxBodyBytes = 64 << 10

	// DefaultWriteTimeout must outlast one model call.
	DefaultWriteTimeout = 60 * time.Second

	// SessionCookie names the cookie carrying the chat session ID.
	SessionCookie = "localchat_session"

	// SessionHeader lets API clients pass the session ID without cookies.
	SessionHeader = "X-Session-ID"

	// defaultLogLines is how many log lines the page and /api/logs show.
	defaultLogLines = 10

	// maxLogLines bounds ?lines= on /api/logs.
	maxLogLines = 500
)

// ============================================================================
// COLLABORATORS
// ============================================================================

// HealthChecker reports whether the model server answers.
type HealthChecker interface {
	CheckRunning(ctx context.Context, endpoint string) error
}

// LogControl is the part of the logger the page drives: recent lines and the
// runtime level.
type LogControl interface {
	Tail(n int) ([]string, error)
	LevelName() string
	SetLevelName(name string) error
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the browser and JSON front end over a session manager.
type Server struct {
	addr     string
	router   *http.ServeMux
	server   *http.Server
	sessions *session.Manager

	health  HealthChecker
	logs    LogControl
	log     *slog.Logger
	limiter *RateLimiter
	maxBody int64

	writeTimeout time.Duration
	version      string

	mu sync.RWMutex
}

// NewServer creates a server listening on addr for the sessions in sessions.
func NewServer(addr string, sessions *session.Manager) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		addr:         addr,
		router:       http.NewServeMux(),
		sessions:     sessions,
		log:          slog.Default(),
		limiter:      NewRateLimiter(2, 5),
		maxBody:      DefaultMaxBodyBytes,
		writeTimeout: DefaultWriteTimeout,
		version:      "dev",
	}
	s.setupRoutes()
	return s
}

// WithHealthChecker sets the model server probe used by /health.
func (s *Server) WithHealthChecker(h HealthChecker) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = h
	return s
}

// WithLogControl wires the log tail and level control.
func (s *Server) WithLogControl(lc LogControl) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = lc
	return s
}

// WithLogger sets the logger for request and lifecycle logging.
func (s *Server) WithLogger(log *slog.Logger) *Server {
	if log != nil {
		s.log = log
	}
	return s
}

// WithRateLimit sets the per-client POST rate.
func (s *Server) WithRateLimit(perSecond float64, burst int) *Server {
	if perSecond > 0 {
		s.limiter = NewRateLimiter(perSecond, burst)
	}
	return s
}

// WithMaxBody sets the request body limit.
func (s *Server) WithMaxBody(n int64) *Server {
	if n > 0 {
		s.maxBody = n
	}
	return s
}

// WithWriteTimeout sets the response write timeout.
func (s *Server) WithWriteTimeout(d time.Duration) *Server {
	if d > 0 {
		s.writeTimeout = d
	}
	return s
}

// WithVersion sets the version reported by /health and the page footer.
func (s *Server) WithVersion(v string) *Server {
	if v != "" {
		s.version = v
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) healthChecker() HealthChecker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

func (s *Server) logControl() LogControl {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logs
}

// ============================================================================
// ROUTING
// ============================================================================

func (s *Server) setupRoutes() {
	// Page and form posts
	s.router.HandleFunc("GET /{$}", s.handleIndex)
	s.router.HandleFunc("POST /chat", s.handleChatForm)
	s.router.HandleFunc("POST /settings", s.handleSettingsForm)
	s.router.HandleFunc("POST /clear", s.handleClearForm)
	s.router.HandleFunc("GET /export", s.handleExport)

	// JSON API
	s.router.HandleFunc("GET /api/transcript", s.handleTranscript)
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("POST /api/clear", s.handleClear)
	s.router.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.router.HandleFunc("PUT /api/settings", s.handlePutSettings)
	s.router.HandleFunc("GET /api/logs", s.handleLogs)
	s.router.HandleFunc("GET /api/models", s.handleModels)

	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.log),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(s.log),
		RateLimitMiddleware(s.limiter, s.log),
		MaxBodyMiddleware(s.maxBody),
	)(s.router)
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start listens and serves until Shutdown. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	srv := s.httpServer(ln)
	s.log.Info("Server started", "addr", ln.Addr().String(), "version", s.version)
	return srv.Serve(ln)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := s.httpServer(ln)
	s.log.Info("Server started", "addr", ln.Addr().String(), "version", s.version)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) httpServer(ln net.Listener) *http.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s.server
}

// Shutdown gracefully shuts down the server. In-flight turns are allowed to
// finish within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}

	s.log.Info("Server shutting down", "sessions", s.sessions.Len())
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// apiError is the JSON error envelope.
type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("Failed to write response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, apiError{Error: apiErrorBody{Kind: kind, Message: message}})
}
