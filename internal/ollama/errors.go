// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"errors"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorKind categorizes gateway failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConnectionFailed covers transport failures: refused, DNS, timeout,
	// or a body that could not be read.
	KindConnectionFailed
	// KindHTTPStatus is any non-200 status.
	KindHTTPStatus
	// KindMalformedResponse is a 200 whose body is not a JSON object.
	KindMalformedResponse
)

// String returns the kind name used in logs and JSON error bodies.
func (k ErrorKind) String() string {
	switch k {
	case KindConnectionFailed:
		return "connection_failed"
	case KindHTTPStatus:
		return "http_status"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// GatewayError is returned by Client.Send for every failed call.
//
// Message is the raw detail ("500 - boom" for KindHTTPStatus); Error() adds
// the user-facing prefix. The same Error() text is what gets logged.
type GatewayError struct {
	Kind     ErrorKind
	Message  string
	Cause    error
	Exchange *Exchange
}

func (e *GatewayError) Error() string {
	switch e.Kind {
	case KindConnectionFailed:
		return "Error connecting to the model: " + e.Message
	case KindHTTPStatus:
		return "Error: " + e.Message
	case KindMalformedResponse:
		return "Error parsing response: " + e.Message
	default:
		return e.Message
	}
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// KindOf returns the ErrorKind of err, or KindUnknown if err is not a
// GatewayError.
func KindOf(err error) ErrorKind {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindUnknown
}

// IsConnectionFailed checks if an error is a transport failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == KindConnectionFailed
}

// IsHTTPStatus checks if an error is a non-200 response.
func IsHTTPStatus(err error) bool {
	return KindOf(err) == KindHTTPStatus
}

// IsMalformedResponse checks if an error is an unparseable 200 response.
func IsMalformedResponse(err error) bool {
	return KindOf(err) == KindMalformedResponse
}

// ExchangeOf returns the wire trace attached to a GatewayError, if any.
func ExchangeOf(err error) *Exchange {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Exchange
	}
	return nil
}
