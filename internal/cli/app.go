// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/logging"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/session"
)

// App is the wired process: configuration, logger, model client and the
// session registry.
type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Client   *ollama.Client
	Sessions *session.Manager
}

// appOptions controls how newApp builds the logger.
type appOptions struct {
	// console enables the console log sink.
	console       bool
	consoleWriter io.Writer
}

// newApp loads the configuration named by the global flags and wires the
// collaborators every command needs.
func newApp(g *globalOptions, opts appOptions) (*App, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		if _, err := logging.ParseLevel(g.logLevel); err != nil {
			return nil, err
		}
		cfg.Log.Level = g.logLevel
	}
	config.SetGlobal(cfg)

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Dir:           cfg.Log.Dir,
		File:          cfg.Log.File,
		MaxSizeMB:     cfg.Log.MaxSizeMB,
		MaxBackups:    cfg.Log.MaxBackups,
		Level:         level,
		Console:       opts.console,
		ConsoleWriter: opts.consoleWriter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		Timeout:         cfg.Model.Timeout,
		DefaultEndpoint: cfg.Model.Endpoint,
		Logger:          logger.Logger,
	})

	sessions := session.NewManager(session.Config{
		IdleTimeout:   cfg.Server.SessionIdle,
		SweepInterval: cfg.Server.SweepInterval,
	}, client, chat.SettingsFromConfig(cfg), logger.Logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Client:   client,
		Sessions: sessions,
	}, nil
}

// applyConfig takes a reloaded configuration into effect: the log level
// changes immediately, the model defaults apply to sessions created from
// now on.
func (a *App) applyConfig(cfg *config.Config) {
	if err := a.Logger.SetLevelName(cfg.Log.Level); err != nil {
		a.Logger.Warn("Ignoring invalid log level from reloaded config", "level", cfg.Log.Level, "error", err)
	}
	a.Sessions.SetDefaults(chat.SettingsFromConfig(cfg))
	config.SetGlobal(cfg)
	a.Logger.Info("Configuration reloaded", "source", cfg.Source, "model", cfg.Model.Name, "level", a.Logger.LevelName())
}

// Close flushes and closes the log file.
func (a *App) Close() error {
	return a.Logger.Close()
}
