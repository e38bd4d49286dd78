// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/jeranaias/localchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete localchat configuration.
type Config struct {
	Model  ModelConfig  `toml:"model" json:"model"`
	Chat   ChatConfig   `toml:"chat" json:"chat"`
	Log    LogConfig    `toml:"log" json:"log"`
	Server ServerConfig `toml:"server" json:"server"`

	// Source is the file the config was loaded from, empty for defaults.
	Source string `toml:"-" json:"-"`
}

// ModelConfig holds the defaults for every model request.
type ModelConfig struct {
	Endpoint    string        `toml:"endpoint" json:"endpoint" env:"LOCALCHAT_ENDPOINT" env-description:"Model generate endpoint URL"`
	Name        string        `toml:"name" json:"name" env:"LOCALCHAT_MODEL" env-description:"Default model name (llama2, mistral, codellama)"`
	Temperature float64       `toml:"temperature" json:"temperature" env:"LOCALCHAT_TEMPERATURE" env-description:"Default sampling temperature, 0.0-1.0"`
	MaxTokens   int           `toml:"max_tokens" json:"max_tokens" env:"LOCALCHAT_MAX_TOKENS" env-description:"Default token limit, 100-2000"`
	Timeout     time.Duration `toml:"timeout" json:"timeout" env:"LOCALCHAT_TIMEOUT" env-description:"Per-request timeout"`
}

// ChatConfig holds chat session behavior.
type ChatConfig struct {
	Debug       bool   `toml:"debug" json:"debug" env:"LOCALCHAT_DEBUG" env-description:"Show raw request and response details"`
	HistoryFile string `toml:"history_file" json:"history_file" env:"LOCALCHAT_HISTORY_FILE" env-description:"Line-editor history for the plain REPL"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `toml:"level" json:"level" env:"LOCALCHAT_LOG_LEVEL" env-description:"DEBUG, INFO, WARNING, ERROR or CRITICAL"`
	Dir        string `toml:"dir" json:"dir" env:"LOCALCHAT_LOG_DIR" env-description:"Log directory"`
	File       string `toml:"file" json:"file" env:"LOCALCHAT_LOG_FILE" env-description:"Log file name"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" env:"LOCALCHAT_LOG_MAX_SIZE_MB" env-description:"Rotate after this many megabytes"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" env:"LOCALCHAT_LOG_MAX_BACKUPS" env-description:"Rotated files to keep"`
}

// ServerConfig holds HTTP front end settings.
type ServerConfig struct {
	Addr          string        `toml:"addr" json:"addr" env:"LOCALCHAT_ADDR" env-description:"HTTP listen address"`
	RateLimit     float64       `toml:"rate_limit" json:"rate_limit" env:"LOCALCHAT_RATE_LIMIT" env-description:"POST requests per second per client"`
	RateBurst     int           `toml:"rate_burst" json:"rate_burst" env:"LOCALCHAT_RATE_BURST" env-description:"POST burst size per client"`
	SessionIdle   time.Duration `toml:"session_idle" json:"session_idle" env:"LOCALCHAT_SESSION_IDLE" env-description:"Drop chat sessions idle this long"`
	SweepInterval time.Duration `toml:"sweep_interval" json:"sweep_interval" env:"LOCALCHAT_SWEEP_INTERVAL" env-description:"How often idle sessions are swept"`
	MaxBodyBytes  int64         `toml:"max_body_bytes" json:"max_body_bytes" env:"LOCALCHAT_MAX_BODY_BYTES" env-description:"Request body limit"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default values.
const (
	DefaultEndpoint      = "http://127.0.0.1:11434/api/generate"
	DefaultModel         = "llama2"
	DefaultTemperature   = 0.7
	DefaultMaxTokens     = 500
	DefaultTimeout       = 30 * time.Second
	DefaultLogLevel      = "INFO"
	DefaultLogDir        = "logs"
	DefaultLogFile       = "chat_app.log"
	DefaultLogMaxSizeMB  = 1
	DefaultLogMaxBackups = 5
	DefaultAddr          = "127.0.0.1:8501"
	DefaultRateLimit     = 2.0
	DefaultRateBurst     = 5
	DefaultSessionIdle   = 30 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultMaxBodyBytes  = 64 << 10
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Endpoint:    DefaultEndpoint,
			Name:        DefaultModel,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			Timeout:     DefaultTimeout,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Dir:        DefaultLogDir,
			File:       DefaultLogFile,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
		},
		Server: ServerConfig{
			Addr:          DefaultAddr,
			RateLimit:     DefaultRateLimit,
			RateBurst:     DefaultRateBurst,
			SessionIdle:   DefaultSessionIdle,
			SweepInterval: DefaultSweepInterval,
			MaxBodyBytes:  DefaultMaxBodyBytes,
		},
	}
}

// SetDefaults fills zero values with defaults. Temperature and Debug are
// left alone because zero is a meaningful setting for both.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Model.Endpoint == "" {
		c.Model.Endpoint = d.Model.Endpoint
	}
	if c.Model.Name == "" {
		c.Model.Name = d.Model.Name
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = d.Model.MaxTokens
	}
	if c.Model.Timeout == 0 {
		c.Model.Timeout = d.Model.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Dir == "" {
		c.Log.Dir = d.Log.Dir
	}
	if c.Log.File == "" {
		c.Log.File = d.Log.File
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = d.Log.MaxBackups
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = d.Server.RateLimit
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = d.Server.RateBurst
	}
	if c.Server.SessionIdle == 0 {
		c.Server.SessionIdle = d.Server.SessionIdle
	}
	if c.Server.SweepInterval == 0 {
		c.Server.SweepInterval = d.Server.SweepInterval
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}
}

// =============================================================================
// PATHS
// =============================================================================

// LocalFile is the config file looked for in the working directory.
const LocalFile = "localchat.toml"

// ConfigDir returns the per-user configuration directory (~/.localchat).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".localchat"), nil
}

// ConfigPathTOML returns the per-user TOML config path.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ResolvePath returns the config file Load would read for explicit. An
// explicit path is returned as is. Otherwise the first existing file of
// ./localchat.toml and ~/.localchat/config.toml wins; if neither exists the
// result is empty.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(LocalFile); err == nil {
		return LocalFile
	}
	if p, err := ConfigPathTOML(); err == nil {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// =============================================================================
// LOADING
// =============================================================================

// Load builds the configuration: defaults, then the TOML file (see
// ResolvePath), then .env and environment overrides. The result is
// validated. An explicit path that does not exist is an error; a missing
// default file is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved := ResolvePath(path)
	if resolved != "" {
		if err := LoadTOML(cfg, resolved); err != nil {
			return nil, err
		}
		cfg.Source = resolved
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file on top of cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	return nil
}

// DotEnvFile is read from the working directory before the environment.
const DotEnvFile = ".env"

// ApplyEnvOverrides loads .env (if present) into the process environment
// without replacing variables that are already set, then overlays every
// LOCALCHAT_* variable onto c.
func (c *Config) ApplyEnvOverrides() error {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}
	if err := cleanenv.ReadEnv(c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// EnvHelp describes every supported environment variable.
func EnvHelp() (string, error) {
	return cleanenv.GetDescription(Default(), nil)
}

// =============================================================================
// SAVING
// =============================================================================

const fileHeader = `# localchat configuration file
# Environment variables (LOCALCHAT_*) override these values.

`

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveTOML writes the configuration to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig   *Config
	globalConfigMu sync.RWMutex
)

// Global returns the process configuration, or defaults before SetGlobal
// has been called. Callers must not modify the returned value.
func Global() *Config {
	globalConfigMu.RLock()
	cfg := globalConfig
	globalConfigMu.RUnlock()

	if cfg == nil {
		return Default()
	}
	return cfg
}

// SetGlobal replaces the process configuration. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the process configuration.
func ResetGlobalForTesting() {
	SetGlobal(nil)
}
