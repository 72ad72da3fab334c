package zmodem

import (
	"io"
	"log/slog"
)

// newLogger returns a *slog.Logger scoped to the zmodem package. A nil
// base falls back to slog.Default() rather than silently discarding logs,
// so an Engine always logs somewhere unless the embedder explicitly asks
// for silence via NewDiscardLogger.
func newLogger(base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("component", "zmodem")
}

// NewDiscardLogger returns a logger that drops everything, for embedders
// that don't want frame-level tracing at all.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
