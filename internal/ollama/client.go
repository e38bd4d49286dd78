// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jeranaias/localchat/internal/util"
)

// DefaultEndpoint is the generate endpoint of a model server on this host.
// Explicit IPv4 avoids IPv6 resolution issues with "localhost" on Windows.
const DefaultEndpoint = "http://127.0.0.1:11434/api/generate"

// DefaultTimeout bounds every call.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 16 << 20

// errorBodyRunes caps the response body quoted in an HTTPStatus error. The
// full body stays on the Exchange.
const errorBodyRunes = 4096

// promptExcerptRunes is how much of the prompt appears in log lines.
const promptExcerptRunes = 50

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the gateway client.
type ClientConfig struct {
	// Timeout for one call, connect to last body byte (default: 30s)
	Timeout time.Duration

	// DefaultEndpoint is used when a RequestConfig has no endpoint
	DefaultEndpoint string

	// Logger receives request/response logging (default: slog.Default())
	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:         DefaultTimeout,
		DefaultEndpoint: DefaultEndpoint,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client sends prompts to a model server. One call is one synchronous POST;
// there is no streaming and no retry.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a new client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.DefaultEndpoint == "" {
		config.DefaultEndpoint = DefaultEndpoint
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		log:        logger,
	}
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.config.Timeout
}

// =============================================================================
// GENERATE
// =============================================================================

// Send posts prompt to cfg.Endpoint and returns the model's reply.
//
// Every failure is a *GatewayError. The error text is what the user sees and
// is also logged at error level. ctx may carry a deadline but the client
// timeout always applies.
func (c *Client) Send(ctx context.Context, prompt string, cfg RequestConfig) (*Reply, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = c.config.DefaultEndpoint
	}

	payload := GenerateRequest{
		Model:       cfg.Model,
		Prompt:      prompt,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Stream:      false,
	}

	body, err := encodeJSON(payload)
	if err != nil {
		// Unreachable for this payload shape; report it like a transport error.
		return nil, c.fail(&GatewayError{Kind: KindConnectionFailed, Message: err.Error(), Cause: err})
	}

	exchange := &Exchange{Endpoint: endpoint, RequestBody: indentJSON(body)}

	c.log.Info("Sending request to "+endpoint, "model", cfg.Model, "prompt", util.Excerpt(prompt, promptExcerptRunes))
	c.log.Debug("Request payload: " + exchange.RequestBody)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, c.fail(&GatewayError{Kind: KindConnectionFailed, Message: err.Error(), Cause: err, Exchange: exchange})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		exchange.Duration = time.Since(start)
		return nil, c.fail(&GatewayError{Kind: KindConnectionFailed, Message: err.Error(), Cause: err, Exchange: exchange})
	}
	defer resp.Body.Close()

	exchange.StatusCode = resp.StatusCode
	exchange.Headers = resp.Header.Clone()
	c.log.Debug(fmt.Sprintf("Response status: %d", resp.StatusCode))
	c.log.Debug(fmt.Sprintf("Response headers: %v", resp.Header))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	exchange.Duration = time.Since(start)
	if err != nil {
		return nil, c.fail(&GatewayError{Kind: KindConnectionFailed, Message: err.Error(), Cause: err, Exchange: exchange})
	}
	exchange.Body = string(respBody)

	if resp.StatusCode != http.StatusOK {
		return nil, c.fail(&GatewayError{
			Kind:     KindHTTPStatus,
			Message:  fmt.Sprintf("%d - %s", resp.StatusCode, util.TruncateRunes(exchange.Body, errorBodyRunes)),
			Exchange: exchange,
		})
	}

	reply, err := parseGenerateResponse(respBody)
	if err != nil {
		return nil, c.fail(&GatewayError{Kind: KindMalformedResponse, Message: err.Error(), Cause: err, Exchange: exchange})
	}
	reply.Exchange = exchange

	c.log.Debug("Response received", "duration", exchange.Duration, "eval_count", reply.Metrics.EvalCount, "placeholder", reply.Placeholder)
	return reply, nil
}

// fail logs err at error level and returns it.
func (c *Client) fail(err *GatewayError) error {
	c.log.Error(err.Error(), "kind", err.Kind.String())
	return err
}

// parseGenerateResponse decodes a 200 body. The body must be a JSON object;
// the "response" field is optional and falls back to NoResponsePlaceholder
// when absent or null.
func parseGenerateResponse(body []byte) (*Reply, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}

	reply := &Reply{}

	// Metrics are informational; a server that sends odd types for them
	// still produces a usable reply.
	_ = json.Unmarshal(body, &reply.Metrics)

	field := gjson.GetBytes(body, "response")
	switch {
	case !field.Exists() || field.Type == gjson.Null:
		reply.Text = NoResponsePlaceholder
		reply.Placeholder = true
	case field.Type == gjson.String:
		reply.Text = field.Str
	default:
		reply.Text = field.Raw
	}
	return reply, nil
}

// encodeJSON marshals v without HTML escaping so the wire body carries the
// prompt verbatim.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func indentJSON(compact []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return string(compact)
	}
	return out.String()
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// ErrNotRunning is returned by CheckRunning when nothing answers at the
// endpoint's host.
var ErrNotRunning = errors.New("model server is not running")

// CheckRunning verifies that a server answers at the origin of endpoint.
// It is a readiness probe and does not send a prompt.
func (c *Client) CheckRunning(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		endpoint = c.config.DefaultEndpoint
	}
	origin, err := Origin(endpoint)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status from %s: %s", origin, resp.Status)
	}
	return nil
}

// Origin returns scheme://host of an endpoint URL.
func Origin(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing scheme or host", endpoint)
	}
	return u.Scheme + "://" + u.Host + "/", nil
}
