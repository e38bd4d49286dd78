// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/logging"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/session"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// fakeModel is a stand-in model server.
type fakeModel struct {
	mu      sync.Mutex
	status  int
	body    string
	calls   int
	release chan struct{}
	entered chan struct{}
}

func (f *fakeModel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Write([]byte("model server is running"))
		return
	}
	io.Copy(io.Discard, r.Body)

	f.mu.Lock()
	f.calls++
	status, body, release, entered := f.status, f.body, f.release, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func (f *fakeModel) set(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body = status, body
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeLogs is an in-memory LogControl.
type fakeLogs struct {
	mu    sync.Mutex
	lines []string
	err   error
	level string
}

func (f *fakeLogs) Tail(n int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.lines) > n {
		return f.lines[len(f.lines)-n:], nil
	}
	return f.lines, nil
}

func (f *fakeLogs) LevelName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

func (f *fakeLogs) SetLevelName(name string) error {
	level, err := logging.ParseLevel(name)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.level = logging.LevelName(level)
	f.mu.Unlock()
	return nil
}

type testEnv struct {
	srv      *Server
	handler  http.Handler
	model    *fakeModel
	sessions *session.Manager
	logs     *fakeLogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fm := &fakeModel{status: http.StatusOK, body: `{"response":"Hello **there**"}`}
	modelSrv := httptest.NewServer(fm)
	t.Cleanup(modelSrv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{Timeout: 5 * time.Second, Logger: log})

	defaults := chat.DefaultSettings()
	defaults.Endpoint = modelSrv.URL + "/api/generate"
	sessions := session.NewManager(session.DefaultConfig(), client, defaults, log)

	logs := &fakeLogs{level: "INFO", lines: []string{"line one", "line two"}}
	srv := NewServer("127.0.0.1:0", sessions).
		WithLogger(log).
		WithHealthChecker(client).
		WithLogControl(logs).
		WithRateLimit(1000, 1000).
		WithVersion("test")

	return &testEnv{srv: srv, handler: srv.Handler(), model: fm, sessions: sessions, logs: logs}
}

// do sends a request carrying sessionID (if any) and returns the recorder.
func (e *testEnv) do(method, path, contentType, body, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) api(method, path, body, sessionID string) *httptest.ResponseRecorder {
	return e.do(method, path, "application/json", body, sessionID)
}

func (e *testEnv) form(path string, values url.Values, sessionID string) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, path, "application/x-www-form-urlencoded", values.Encode(), sessionID)
}

// newSession opens a session and returns its ID.
func (e *testEnv) newSession(t *testing.T) string {
	t.Helper()
	rec := e.api(http.MethodGet, "/api/transcript", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(SessionHeader)
	require.NotEmpty(t, id)
	return id
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestSession_CookieIssued(t *testing.T) {
	env := newTestEnv(t)

	rec := env.api(http.MethodGet, "/api/transcript", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, cookies[0].Value, rec.Header().Get(SessionHeader))
}

func TestSession_ReusedAcrossRequests(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.api(http.MethodGet, "/api/transcript", "", id)
	assert.Equal(t, id, rec.Header().Get(SessionHeader))
	assert.Empty(t, rec.Result().Cookies(), "known session should not get a new cookie")
	assert.Equal(t, 1, env.sessions.Len())
}

func TestSession_HeaderAccepted(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	req := httptest.NewRequest(http.MethodGet, "/api/transcript", nil)
	req.Header.Set(SessionHeader, id)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	body := decode[transcriptResponse](t, rec)
	assert.Equal(t, id, body.Session)
}

func TestSession_UnknownIDReplaced(t *testing.T) {
	env := newTestEnv(t)

	rec := env.api(http.MethodGet, "/api/transcript", "", "not-a-session")
	got := rec.Header().Get(SessionHeader)
	assert.NotEqual(t, "not-a-session", got)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, got, rec.Result().Cookies()[0].Value)
}

// =============================================================================
// JSON API TESTS
// =============================================================================

func TestAPIChat_Success(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.api(http.MethodPost, "/api/chat", `{"prompt":"Hi"}`, id)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[chatResponse](t, rec)
	assert.Equal(t, "Hello **there**", resp.Reply)
	assert.False(t, resp.Placeholder)
	assert.Nil(t, resp.Exchange, "exchange is only echoed in debug mode")

	tr := decode[transcriptResponse](t, env.api(http.MethodGet, "/api/transcript", "", id))
	require.Len(t, tr.Messages, 2)
	assert.Equal(t, model.RoleUser, tr.Messages[0].Role)
	assert.Equal(t, "Hi", tr.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, tr.Messages[1].Role)
}

func TestAPIChat_Placeholder(t *testing.T) {
	env := newTestEnv(t)
	env.model.set(http.StatusOK, `{}`)
	id := env.newSession(t)

	rec := env.api(http.MethodPost, "/api/chat", `{"prompt":"Hi"}`, id)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[chatResponse](t, rec)
	assert.Equal(t, ollama.NoResponsePlaceholder, resp.Reply)
	assert.True(t, resp.Placeholder)
}

func TestAPIChat_GatewayErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind string
		wantMsg  string
	}{
		{"http status", http.StatusInternalServerError, "server error", "http_status", "Error: 500 - server error"},
		{"malformed", http.StatusOK, "not-json", "malformed_response", "Error parsing response: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.model.set(tt.status, tt.body)
			id := env.newSession(t)

			rec := env.api(http.MethodPost, "/api/chat", `{"prompt":"Hi"}`, id)
			require.Equal(t, http.StatusBadGateway, rec.Code)

			resp := decode[chatErrorResponse](t, rec)
			assert.Equal(t, tt.wantKind, resp.Error.Kind)
			assert.True(t, strings.HasPrefix(resp.Error.Message, tt.wantMsg), resp.Error.Message)

			tr := decode[transcriptResponse](t, env.api(http.MethodGet, "/api/transcript", "", id))
			require.Len(t, tr.Messages, 1, "failed turn keeps only the user entry")
			assert.Equal(t, model.RoleUser, tr.Messages[0].Role)
		})
	}
}

func TestAPIChat_ConnectionFailed(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	rec := env.api(http.MethodPut, "/api/settings", `{"endpoint":"`+deadURL+`/api/generate"}`, id)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.api(http.MethodPost, "/api/chat", `{"prompt":"Hi"}`, id)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decode[chatErrorResponse](t, rec)
	assert.Equal(t, "connection_failed", resp.Error.Kind)
	assert.True(t, strings.HasPrefix(resp.Error.Message, "Error connecting to the model: "))
}

func TestAPIChat_DebugEchoesExchange(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.api(http.MethodPut, "/api/settings", `{"debug":true}`, id)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.api(http.MethodPost, "/api/chat", `{"prompt":"Hi"}`, id)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[chatResponse](t, rec)
	require.NotNil(t, resp.Exchange)
	assert.Equal(t, http.StatusOK, resp.Exchange.StatusCode)
	assert.Contains(t, resp.Exchange.RequestBody, `"stream": false`)
}

func TestAPIChat_EmptyPrompt(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.api(http.MethodPost, "/api/chat", `{"prompt":"   "}`, id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, kindEmpty, decode[apiError](t, rec).Error.Kind)
	assert.Zero(t, env.model.callCount())
}

func TestAPIChat_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.api(http.MethodPost, "/api/chat", `{`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, kindBadRequest, decode[apiError](t, rec).Error.Kind)
}

func TestAPIChat_BusyRejected(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	env.model.mu.Lock()
	env.model.release = make(chan struct{})
	env.model.entered = make(chan struct{}, 1)
	env.model.mu.Unlock()

	done := make(chan int)
	go func() {
		done <- env.api(http.MethodPost, "/api/chat", `{"prompt":"first"}`, id).Code
	}()
	<-env.model.entered

	rec := env.api(http.MethodPost, "/api/chat", `{"prompt":"second"}`, id)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.api(http.MethodPost, "/api/clear", "", id)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(env.model.release)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, 1, env.model.callCount())

	tr := decode[transcriptResponse](t, env.api(http.MethodGet, "/api/transcript", "", id))
	require.Len(t, tr.Messages, 2)
	assert.Equal(t, "first", tr.Messages[0].Content)
}

func TestAPIClear(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	env.api(http.MethodPost, "/api/chat", `{"prompt":"Hi"}`, id)
	rec := env.api(http.MethodPost, "/api/clear", "", id)
	require.Equal(t, http.StatusOK, rec.Code)

	tr := decode[transcriptResponse](t, env.api(http.MethodGet, "/api/transcript", "", id))
	assert.Empty(t, tr.Messages)
}

func TestAPISettings_GetAndPut(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	got := decode[settingsResponse](t, env.api(http.MethodGet, "/api/settings", "", id))
	assert.Equal(t, "llama2", got.Model)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 500, got.MaxTokens)
	assert.Equal(t, "INFO", got.LogLevel)

	rec := env.api(http.MethodPut, "/api/settings",
		`{"model":"Mistral","temperature":0.2,"max_tokens":800,"log_level":"debug"}`, id)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got = decode[settingsResponse](t, rec)
	assert.Equal(t, "mistral", got.Model)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, 800, got.MaxTokens)
	assert.Equal(t, "DEBUG", got.LogLevel)
	assert.Equal(t, "DEBUG", env.logs.LevelName())
}

func TestAPISettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"temperature too high", `{"temperature":1.5}`},
		{"tokens too low", `{"max_tokens":50}`},
		{"unknown model", `{"model":"gpt-4"}`},
		{"bad endpoint", `{"endpoint":"ftp://x"}`},
		{"bad log level", `{"log_level":"LOUD"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			id := env.newSession(t)

			rec := env.api(http.MethodPut, "/api/settings", tt.body, id)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, kindValidation, decode[apiError](t, rec).Error.Kind)

			got := decode[settingsResponse](t, env.api(http.MethodGet, "/api/settings", "", id))
			assert.Equal(t, chat.DefaultSettings().Model, got.Model)
			assert.Equal(t, "INFO", got.LogLevel)
		})
	}
}

func TestAPILogs(t *testing.T) {
	env := newTestEnv(t)

	resp := decode[logsResponse](t, env.api(http.MethodGet, "/api/logs?lines=1", "", ""))
	assert.Equal(t, []string{"line two"}, resp.Lines)

	resp = decode[logsResponse](t, env.api(http.MethodGet, "/api/logs", "", ""))
	assert.Equal(t, []string{"line one", "line two"}, resp.Lines)

	rec := env.api(http.MethodGet, "/api/logs?lines=zero", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPILogs_NoLogsYet(t *testing.T) {
	env := newTestEnv(t)
	env.logs.err = logging.ErrNoLogs

	resp := decode[logsResponse](t, env.api(http.MethodGet, "/api/logs", "", ""))
	assert.Empty(t, resp.Lines)
	assert.Equal(t, "No logs available yet", resp.Message)
}

func TestAPIModels(t *testing.T) {
	env := newTestEnv(t)

	resp := decode[modelsResponse](t, env.api(http.MethodGet, "/api/models", "", ""))
	assert.Equal(t, "llama2", resp.Default)
	assert.Equal(t, model.ModelIDs(), []string{resp.Models[0].ID, resp.Models[1].ID, resp.Models[2].ID})
}

// =============================================================================
// PAGE TESTS
// =============================================================================

func TestIndex_Renders(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	env.api(http.MethodPost, "/api/chat", `{"prompt":"<b>hi</b>"}`, id)

	rec := env.do(http.MethodGet, "/", "", "", id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Local LLM Chat")
	assert.Contains(t, body, "&lt;b&gt;hi&lt;/b&gt;", "user text must be escaped")
	assert.Contains(t, body, "<strong>there</strong>", "assistant markdown is rendered")
	assert.Contains(t, body, `value="llama2" selected`)
	assert.Contains(t, body, "line two")
}

func TestIndex_UnknownPathIs404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/nope", "", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndex_ShowsErrorAndDebug(t *testing.T) {
	env := newTestEnv(t)
	env.model.set(http.StatusInternalServerError, "server error")
	id := env.newSession(t)
	env.api(http.MethodPut, "/api/settings", `{"debug":true}`, id)
	env.api(http.MethodPost, "/api/chat", `{"prompt":"Hi"}`, id)

	body := env.do(http.MethodGet, "/", "", "", id).Body.String()
	assert.Contains(t, body, "Error: 500 - server error")
	assert.Contains(t, body, "Response status: 500")
	assert.Contains(t, body, "&#34;stream&#34;: false")
}

func TestChatForm_PostRedirectGet(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.form("/chat", url.Values{"prompt": {"Hi"}}, id)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	sess, ok := env.sessions.Get(id)
	require.True(t, ok)
	assert.Len(t, sess.Messages(), 2)
}

func TestChatForm_EmptyPromptIsNoop(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.form("/chat", url.Values{"prompt": {""}}, id)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, env.model.callCount())

	sess, _ := env.sessions.Get(id)
	assert.Empty(t, sess.Messages())
}

func TestSettingsForm(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.form("/settings", url.Values{
		"model":       {"codellama"},
		"temperature": {"0.3"},
		"max_tokens":  {"1200"},
		"debug":       {"on"},
		"log_level":   {"WARNING"},
	}, id)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	sess, _ := env.sessions.Get(id)
	got := sess.Settings()
	assert.Equal(t, "codellama", got.Model)
	assert.Equal(t, 0.3, got.Temperature)
	assert.Equal(t, 1200, got.MaxTokens)
	assert.True(t, got.Debug)
	assert.Equal(t, "WARNING", env.logs.LevelName())

	// Unchecked checkbox turns debug off.
	env.form("/settings", url.Values{"model": {"codellama"}}, id)
	assert.False(t, sess.Settings().Debug)
}

func TestSettingsForm_InvalidSetsFlash(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.form("/settings", url.Values{"temperature": {"hot"}}, id)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	var flash *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie {
			flash = c
		}
	}
	require.NotNil(t, flash)

	// The flash is shown once and then cleared.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	req.AddCookie(flash)
	page := httptest.NewRecorder()
	env.handler.ServeHTTP(page, req)
	assert.Contains(t, page.Body.String(), "Settings not saved")

	sess, _ := env.sessions.Get(id)
	assert.Equal(t, 0.7, sess.Settings().Temperature)
}

func TestClearForm(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	env.form("/chat", url.Values{"prompt": {"Hi"}}, id)

	rec := env.form("/clear", url.Values{}, id)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	sess, _ := env.sessions.Get(id)
	assert.Empty(t, sess.Messages())
}

// =============================================================================
// EXPORT / HEALTH TESTS
// =============================================================================

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	rec := env.do(http.MethodGet, "/export?format=markdown", "", "", id)
	assert.Equal(t, http.StatusNotFound, rec.Code, "empty transcript")

	env.api(http.MethodPost, "/api/chat", `{"prompt":"Hi"}`, id)

	rec = env.do(http.MethodGet, "/export?format=json", "", "", id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".json")
	assert.Contains(t, rec.Body.String(), `"Hello **there**"`)

	rec = env.do(http.MethodGet, "/export?format=pdf", "", "", id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := decode[healthResponse](t, env.api(http.MethodGet, "/health", "", ""))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.ModelServer)
	assert.Equal(t, "test", resp.Version)
}

type downChecker struct{}

func (downChecker) CheckRunning(context.Context, string) error { return ollama.ErrNotRunning }

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t)
	env.srv.WithHealthChecker(downChecker{})

	resp := decode[healthResponse](t, env.api(http.MethodGet, "/health", "", ""))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.ModelServer)
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestRateLimit_PostOnly(t *testing.T) {
	env := newTestEnv(t)
	env.srv.WithRateLimit(0.001, 2)
	h := env.srv.Handler()

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/clear", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "GET is never limited")
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", "", "", "")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestMaxBody(t *testing.T) {
	env := newTestEnv(t)
	env.srv.WithMaxBody(32)
	h := env.srv.Handler()

	body := `{"prompt":"` + strings.Repeat("x", 100) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.model.callCount())
}

func TestRecovery(t *testing.T) {
	h := RecoveryMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "203.0.113.5:4000", "", "203.0.113.5"},
		{"untrusted proxy ignored", "203.0.113.5:4000", "198.51.100.1", "203.0.113.5"},
		{"trusted proxy honored", "127.0.0.1:4000", "198.51.100.1, 10.0.0.1", "198.51.100.1"},
		{"invalid forwarded ip", "127.0.0.1:4000", "garbage", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestRun_ShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- env.srv.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShutdown_NotStarted(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.srv.Shutdown(context.Background()))
}
