// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jeranaias/localchat/internal/util"
)

// Default file sink settings.
const (
	DefaultDir        = "logs"
	DefaultFile       = "chat_app.log"
	DefaultMaxSizeMB  = 1
	DefaultMaxBackups = 5
)

// ErrNoLogs is returned by Tail before anything has been written.
var ErrNoLogs = errors.New("no logs available yet")

// SinkKind names a log destination.
type SinkKind string

const (
	SinkFile    SinkKind = "file"
	SinkConsole SinkKind = "console"
)

// Options configures New.
type Options struct {
	Dir        string
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Level is the initial runtime minimum.
	Level slog.Level

	// Console enables the console sink. The full-screen terminal UI turns
	// it off because stderr output would corrupt the display.
	Console bool

	// ConsoleWriter defaults to os.Stderr.
	ConsoleWriter io.Writer
}

// DefaultOptions returns the standard sink layout: logs/chat_app.log
// rotated at 1 MB with 5 backups, plus the console, at INFO.
func DefaultOptions() Options {
	return Options{
		Dir:        DefaultDir,
		File:       DefaultFile,
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		Level:      slog.LevelInfo,
		Console:    true,
	}
}

// Logger is a slog.Logger with a runtime-adjustable level and access to its
// own log file.
type Logger struct {
	*slog.Logger

	level  *slog.LevelVar
	path   string
	rotate *lumberjack.Logger
	sinks  []SinkKind
}

// New creates the log directory and builds the logger. Calling New again with
// the same Options yields a logger with the same level and the same sinks.
func New(opts Options) (*Logger, error) {
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.File == "" {
		opts.File = DefaultFile
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = DefaultMaxSizeMB
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = DefaultMaxBackups
	}
	if opts.ConsoleWriter == nil {
		opts.ConsoleWriter = os.Stderr
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, err
	}

	level := new(slog.LevelVar)
	level.Set(opts.Level)

	path := filepath.Join(opts.Dir, opts.File)
	rotate := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(rotate, &slog.HandlerOptions{
			Level:       floor{min: level, floor: slog.LevelDebug},
			ReplaceAttr: replaceLevel,
		}),
	}
	sinks := []SinkKind{SinkFile}

	if opts.Console {
		handlers = append(handlers, slog.NewTextHandler(opts.ConsoleWriter, &slog.HandlerOptions{
			Level:       floor{min: level, floor: slog.LevelInfo},
			ReplaceAttr: replaceLevel,
		}))
		sinks = append(sinks, SinkConsole)
	}

	return &Logger{
		Logger: slog.New(slogmulti.Fanout(handlers...)),
		level:  level,
		path:   path,
		rotate: rotate,
		sinks:  sinks,
	}, nil
}

// SetLevel changes the minimum level for every sink.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// SetLevelName parses name and applies it. An unknown name leaves the level
// unchanged.
func (l *Logger) SetLevelName(name string) error {
	level, err := ParseLevel(name)
	if err != nil {
		return err
	}
	l.SetLevel(level)
	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// LevelName returns the display name of the current minimum level.
func (l *Logger) LevelName() string {
	return LevelName(l.Level())
}

// Sinks returns the sink kinds in attach order.
func (l *Logger) Sinks() []SinkKind {
	out := make([]SinkKind, len(l.sinks))
	copy(out, l.sinks)
	return out
}

// Path returns the current log file path.
func (l *Logger) Path() string {
	return l.path
}

// Tail returns the last n lines of the current log file. Rotated backups
// are not read.
func (l *Logger) Tail(n int) ([]string, error) {
	lines, err := util.TailLines(l.path, n)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoLogs
	}
	return lines, err
}

// Critical logs at LevelCritical.
func (l *Logger) Critical(msg string, args ...any) {
	l.Log(context.Background(), LevelCritical, msg, args...)
}

// Close closes the log file.
func (l *Logger) Close() error {
	return l.rotate.Close()
}
