// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package ace

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/ace/internal/decoder"
	"github.com/gogpu/ace/internal/loading"
	"github.com/gogpu/ace/internal/provider"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for ace and its internal packages.
// By default ace produces no log output. Pass nil to restore silence.
//
// Log levels used by ace:
//   - [slog.LevelDebug]: cache hits, task joins and completions
//   - [slog.LevelInfo]: pipeline start and close
//   - [slog.LevelWarn]: degraded paths (resize fallback, compressed cache
//     write failures, rejected work)
//
// Example:
//
//	ace.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	decoder.SetLogger(l)
	provider.SetLogger(l)
	loading.SetLogger(l)
}

// Logger returns the current logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
