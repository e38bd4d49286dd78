// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for localchat.
//
// Settings come from a TOML file, then a .env file, then the process
// environment, with validation after every load.
//
// # Key Types
//
//   - Config: main configuration structure
//   - ModelConfig: endpoint, model name, sampling defaults and timeout
//   - LogConfig: log level and file sink layout
//   - ServerConfig: listen address, rate limits, session expiry
//
// # Configuration Precedence
//
// Configuration is loaded from (highest precedence first):
//   - Environment variables (LOCALCHAT_*)
//   - .env in the working directory
//   - the file named by --config, else ./localchat.toml, else ~/.localchat/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Model.Endpoint)
package config
