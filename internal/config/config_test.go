// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty working directory with an empty home so
// no real config or .env file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "llama2", cfg.Model.Name)
	assert.Equal(t, 0.7, cfg.Model.Temperature)
	assert.Equal(t, 500, cfg.Model.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Model.Timeout)
	assert.False(t, cfg.Chat.Debug)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, filepath.Join("logs", "chat_app.log"), filepath.Join(cfg.Log.Dir, cfg.Log.File))
	assert.Equal(t, 1, cfg.Log.MaxSizeMB)
	assert.Equal(t, 5, cfg.Log.MaxBackups)
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoad_NoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, DefaultEndpoint, cfg.Model.Endpoint)
}

func TestLoad_LocalFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, LocalFile), `
[model]
name = "mistral"
temperature = 0.2
timeout = "45s"

[log]
level = "DEBUG"
`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, LocalFile, cfg.Source)
	assert.Equal(t, "mistral", cfg.Model.Name)
	assert.Equal(t, 0.2, cfg.Model.Temperature)
	assert.Equal(t, 45*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	// untouched fields keep defaults
	assert.Equal(t, 500, cfg.Model.MaxTokens)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	isolate(t)
	_, err := Load("does-not-exist.toml")
	assert.Error(t, err)
}

func TestLoad_UnknownKey(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.toml")
	writeFile(t, path, "[model]\nnmae = \"llama2\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.nmae")
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.toml")
	writeFile(t, path, `
[model]
endpoint = "ftp://example.com"
name = "gpt-4"
temperature = 1.5
max_tokens = 50

[log]
level = "LOUD"
`)

	_, err := Load(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{
		"model.endpoint", "model.name", "model.temperature", "model.max_tokens", "log.level",
	}, fields)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, LocalFile), "[model]\nname = \"mistral\"\n")

	t.Setenv("LOCALCHAT_MODEL", "codellama")
	t.Setenv("LOCALCHAT_ENDPOINT", "http://host.docker.internal:11434/api/generate")
	t.Setenv("LOCALCHAT_TEMPERATURE", "0.3")
	t.Setenv("LOCALCHAT_DEBUG", "true")
	t.Setenv("LOCALCHAT_TIMEOUT", "10s")
	t.Setenv("LOCALCHAT_LOG_LEVEL", "WARNING")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "codellama", cfg.Model.Name)
	assert.Equal(t, "http://host.docker.internal:11434/api/generate", cfg.Model.Endpoint)
	assert.Equal(t, 0.3, cfg.Model.Temperature)
	assert.True(t, cfg.Chat.Debug)
	assert.Equal(t, 10*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "WARNING", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, DotEnvFile), "LOCALCHAT_MAX_TOKENS=800\n")
	t.Cleanup(func() { os.Unsetenv("LOCALCHAT_MAX_TOKENS") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Model.MaxTokens)
}

func TestEnvHelp(t *testing.T) {
	help, err := EnvHelp()
	require.NoError(t, err)
	assert.Contains(t, help, "LOCALCHAT_ENDPOINT")
	assert.Contains(t, help, "LOCALCHAT_LOG_LEVEL")
}

// =============================================================================
// SAVING
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.toml")

	cfg := Default()
	cfg.Model.Name = "mistral"
	cfg.Model.MaxTokens = 1200
	cfg.Server.SessionIdle = 5 * time.Minute
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", loaded.Model.Name)
	assert.Equal(t, 1200, loaded.Model.MaxTokens)
	assert.Equal(t, 5*time.Minute, loaded.Server.SessionIdle)
}

// =============================================================================
// VALIDATORS
// =============================================================================

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateTemperature(0))
	assert.NoError(t, ValidateTemperature(1))
	assert.Error(t, ValidateTemperature(-0.1))
	assert.Error(t, ValidateTemperature(1.01))

	assert.NoError(t, ValidateMaxTokens(100))
	assert.NoError(t, ValidateMaxTokens(2000))
	assert.Error(t, ValidateMaxTokens(99))
	assert.Error(t, ValidateMaxTokens(2001))

	assert.NoError(t, ValidateModel("codellama"))
	assert.Error(t, ValidateModel(""))

	assert.NoError(t, ValidateEndpoint("https://models.lan/api/generate"))
	assert.Error(t, ValidateEndpoint("localhost:11434"))
	assert.Error(t, ValidateEndpoint("http://"))
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "watched.toml")
	writeFile(t, path, "[model]\nname = \"llama2\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(c *Config) { changes <- c })
	}()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "[model]\nname = \"mistral\"\n")

	select {
	case cfg := <-changes:
		assert.Equal(t, "mistral", cfg.Model.Name)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestWatch_SkipsInvalidEdit(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "watched.toml")
	writeFile(t, path, "[model]\nname = \"llama2\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	go Watch(ctx, path, nil, func(c *Config) { changes <- c })

	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "[model]\nname = \"gpt-4\"\n")

	select {
	case cfg := <-changes:
		t.Fatalf("unexpected reload with model %q", cfg.Model.Name)
	case <-time.After(600 * time.Millisecond):
	}
}

// =============================================================================
// GLOBAL
// =============================================================================

// TestConfig_ConcurrentAccess checks that Global and SetGlobal can be called
// concurrently. Run with -race.
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := Default()
			c.Model.Name = "mistral"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "mistral", Global().Model.Name)
}
