package hdmiview

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called while a pipeline is running.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for hdmiview and the collaborators of
// every open Pipeline. By default hdmiview produces no log output.
//
// Pass nil to restore the silent default.
//
// Log levels used by hdmiview:
//   - [slog.LevelDebug]: per-frame diagnostics (layout path, tile counts)
//   - [slog.LevelInfo]: lifecycle events (stream on, format adopted)
//   - [slog.LevelWarn]: non-fatal issues (notifications unavailable,
//     short planes, resource release errors)
//
// Example:
//
//	hdmiview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	sinksMu.RLock()
	defer sinksMu.RUnlock()
	for s := range sinks {
		s.SetLogger(l)
	}
}

// Logger returns the current logger used by hdmiview.
// Sub-packages call this to share the same configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices and renderers that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

var (
	sinksMu sync.RWMutex
	sinks   = map[loggerSetter]struct{}{}
)

// attachLogger hands the current logger to v if it accepts one and keeps
// it updated until detachLogger.
func attachLogger(v any) {
	ls, ok := v.(loggerSetter)
	if !ok {
		return
	}
	ls.SetLogger(Logger())
	sinksMu.Lock()
	sinks[ls] = struct{}{}
	sinksMu.Unlock()
}

func detachLogger(v any) {
	ls, ok := v.(loggerSetter)
	if !ok {
		return
	}
	sinksMu.Lock()
	delete(sinks, ls)
	sinksMu.Unlock()
}
