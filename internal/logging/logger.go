// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package logging holds the process-wide zerolog instance. Components
// either call the package-level event constructors directly or derive a
// child logger with default fields:
//
//	logger := logging.With().Str("component", "canonical").Logger()
//
// Every event chain must end in .Msg() or .Send() to be emitted.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the output shape of the process logger.
type Config struct {
	// Level is the minimum emitted level: trace, debug, info, warn,
	// error, fatal or disabled. Empty means info.
	Level string

	// Format is "json" or "console". Empty means json.
	Format string

	// Timestamp adds an RFC3339 timestamp field to every event.
	Timestamp bool

	// Caller adds the emitting file and line to every event.
	Caller bool

	// Output receives the log stream. Nil means os.Stderr.
	Output io.Writer
}

var (
	rootMu sync.RWMutex
	root   zerolog.Logger
)

func init() {
	rootMu.Lock()
	root = build(Config{Timestamp: true})
	rootMu.Unlock()
}

// Init reconfigures the process logger. Call it once from main before
// any component starts; calling it again later is allowed and swaps the
// configuration atomically.
func Init(cfg Config) {
	rootMu.Lock()
	root = build(cfg)
	rootMu.Unlock()
}

func build(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(levelFromString(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out)
	if cfg.Timestamp {
		logger = logger.With().Timestamp().Logger()
	}
	if cfg.Caller {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

var levelNames = map[string]zerolog.Level{
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"disabled": zerolog.Disabled,
}

func levelFromString(s string) zerolog.Level {
	if lvl, ok := levelNames[strings.ToLower(s)]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// Logger returns a copy of the process logger for components that want
// to hold their own zerolog.Logger value.
func Logger() zerolog.Logger {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return root
}

// With opens a child-logger context on the process logger.
func With() zerolog.Context {
	return Logger().With()
}

// Debug starts a debug-level event.
func Debug() *zerolog.Event { l := Logger(); return l.Debug() }

// Info starts an info-level event.
func Info() *zerolog.Event { l := Logger(); return l.Info() }

// Warn starts a warn-level event.
func Warn() *zerolog.Event { l := Logger(); return l.Warn() }

// Error starts an error-level event.
func Error() *zerolog.Event { l := Logger(); return l.Error() }

// Fatal starts a fatal-level event. The terminating .Msg() exits the
// process with status 1.
func Fatal() *zerolog.Event { l := Logger(); return l.Fatal() }

// NewTestLogger returns a standalone logger writing to w, for asserting
// on log output in tests.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
