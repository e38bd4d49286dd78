// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"net/http"
	"time"
)

// NoResponsePlaceholder is returned as the reply text when a successful
// response carries no "response" field.
const NoResponsePlaceholder = "No response from model"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// RequestConfig is the per-call configuration. The gateway does not validate
// Temperature or MaxTokens; callers clamp them to their UI ranges.
type RequestConfig struct {
	Endpoint    string  `json:"endpoint"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// GenerateRequest is the request body for the generate endpoint.
// Field order is the wire order.
type GenerateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Stream      bool    `json:"stream"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateMetrics holds the optional bookkeeping fields of a generate
// response. The "response" text itself is looked up separately so that an
// absent field can be told apart from an empty one.
type GenerateMetrics struct {
	Model           string    `json:"model"`
	CreatedAt       time.Time `json:"created_at"`
	Done            bool      `json:"done"`
	DoneReason      string    `json:"done_reason,omitempty"`
	TotalDuration   int64     `json:"total_duration,omitempty"` // nanoseconds
	LoadDuration    int64     `json:"load_duration,omitempty"`  // nanoseconds
	PromptEvalCount int       `json:"prompt_eval_count,omitempty"`
	EvalCount       int       `json:"eval_count,omitempty"`
	EvalDuration    int64     `json:"eval_duration,omitempty"` // nanoseconds
}

// TokensPerSecond computes generation speed from the eval metrics.
func (m GenerateMetrics) TokensPerSecond() float64 {
	if m.EvalDuration <= 0 {
		return 0
	}
	return float64(m.EvalCount) / (float64(m.EvalDuration) / float64(time.Second))
}

// Reply is a successful gateway result.
type Reply struct {
	// Text is the model output, or NoResponsePlaceholder.
	Text string

	// Placeholder is true when the response had no "response" field.
	Placeholder bool

	Metrics  GenerateMetrics
	Exchange *Exchange
}

// Exchange records what went over the wire for one call. It backs the
// debug echo shown to the user.
type Exchange struct {
	Endpoint    string        `json:"endpoint"`
	RequestBody string        `json:"request_body"` // indented JSON
	StatusCode  int           `json:"status_code,omitempty"`
	Headers     http.Header   `json:"headers,omitempty"`
	Body        string        `json:"body,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}
