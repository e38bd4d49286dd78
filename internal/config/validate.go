// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/jeranaias/localchat/internal/logging"
	"github.com/jeranaias/localchat/internal/model"
)

// Ranges offered by the settings controls.
const (
	TemperatureMin  = 0.0
	TemperatureMax  = 1.0
	TemperatureStep = 0.1
	MaxTokensMin    = 100
	MaxTokensMax    = 2000
	MaxTokensStep   = 100
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns ValidateErrors if any
// field is out of range.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field string, err error) {
		if err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
		}
	}

	add("model.endpoint", ValidateEndpoint(c.Model.Endpoint))
	add("model.name", ValidateModel(c.Model.Name))
	add("model.temperature", ValidateTemperature(c.Model.Temperature))
	add("model.max_tokens", ValidateMaxTokens(c.Model.MaxTokens))
	if c.Model.Timeout <= 0 {
		add("model.timeout", fmt.Errorf("must be positive, got %s", c.Model.Timeout))
	}

	_, err := logging.ParseLevel(c.Log.Level)
	add("log.level", err)
	if c.Log.MaxSizeMB < 1 {
		add("log.max_size_mb", fmt.Errorf("must be at least 1, got %d", c.Log.MaxSizeMB))
	}
	if c.Log.MaxBackups < 0 {
		add("log.max_backups", fmt.Errorf("must not be negative, got %d", c.Log.MaxBackups))
	}

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		add("server.addr", fmt.Errorf("invalid listen address %q", c.Server.Addr))
	}
	if c.Server.RateLimit <= 0 {
		add("server.rate_limit", fmt.Errorf("must be positive, got %g", c.Server.RateLimit))
	}
	if c.Server.RateBurst < 1 {
		add("server.rate_burst", fmt.Errorf("must be at least 1, got %d", c.Server.RateBurst))
	}
	if c.Server.SessionIdle <= 0 {
		add("server.session_idle", fmt.Errorf("must be positive, got %s", c.Server.SessionIdle))
	}
	if c.Server.SweepInterval <= 0 {
		add("server.sweep_interval", fmt.Errorf("must be positive, got %s", c.Server.SweepInterval))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateEndpoint requires an absolute http or https URL.
func ValidateEndpoint(endpoint string) error {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return fmt.Errorf("invalid URL %q", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", endpoint)
	}
	return nil
}

// ValidateModel requires one of the selectable models.
func ValidateModel(name string) error {
	if !model.IsKnownModel(name) {
		return fmt.Errorf("unknown model %q, must be one of: %s", name, strings.Join(model.ModelIDs(), ", "))
	}
	return nil
}

// ValidateTemperature requires TemperatureMin <= t <= TemperatureMax.
func ValidateTemperature(t float64) error {
	if t < TemperatureMin || t > TemperatureMax {
		return fmt.Errorf("temperature %g out of range [%g, %g]", t, TemperatureMin, TemperatureMax)
	}
	return nil
}

// ValidateMaxTokens requires MaxTokensMin <= n <= MaxTokensMax.
func ValidateMaxTokens(n int) error {
	if n < MaxTokensMin || n > MaxTokensMax {
		return fmt.Errorf("max tokens %d out of range [%d, %d]", n, MaxTokensMin, MaxTokensMax)
	}
	return nil
}
