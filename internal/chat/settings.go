// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/ollama"
)

// Settings are the user-adjustable parameters of a session.
type Settings struct {
	Endpoint    string  `json:"endpoint"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Debug       bool    `json:"debug"`
}

// SettingsFromConfig returns the session defaults described by cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Endpoint:    cfg.Model.Endpoint,
		Model:       cfg.Model.Name,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		Debug:       cfg.Chat.Debug,
	}
}

// DefaultSettings returns the built-in session defaults.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default())
}

// Validate checks every field against the ranges the settings controls
// offer. It returns config.ValidateErrors.
func (s Settings) Validate() error {
	var errs config.ValidateErrors
	check := func(field string, err error) {
		if err != nil {
			errs = append(errs, config.ValidationError{Field: field, Message: err.Error()})
		}
	}

	check("endpoint", config.ValidateEndpoint(s.Endpoint))
	check("model", config.ValidateModel(s.Model))
	check("temperature", config.ValidateTemperature(s.Temperature))
	check("max_tokens", config.ValidateMaxTokens(s.MaxTokens))

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Normalize trims the endpoint and lower-cases the model name.
func (s Settings) Normalize() Settings {
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	s.Model = strings.ToLower(strings.TrimSpace(s.Model))
	return s
}

// RequestConfig converts the settings into a gateway request configuration.
func (s Settings) RequestConfig() ollama.RequestConfig {
	return ollama.RequestConfig{
		Endpoint:    s.Endpoint,
		Model:       s.Model,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	}
}
