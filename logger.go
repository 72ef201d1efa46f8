package midgard

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/midgard/cache"
	"github.com/gogpu/midgard/emit"
)

// nopHandler is a slog.Handler that silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger for midgard and all its sub-packages.
// By default, midgard produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore silence.
//
// Log levels used by midgard:
//   - [slog.LevelDebug]: per-bundle and per-program encoding details
//   - [slog.LevelInfo]: cache lifecycle
//   - [slog.LevelWarn]: encoding aborted by an error
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)

	emit.SetLogger(l)
	cache.SetLogger(l)
}

// Logger returns the current logger used by midgard.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
