// Package logging holds the process-wide structured logger.
//
// By default nothing is logged. The command installs a charmbracelet/log
// handler with SetLogger, and every package reads it through Logger. The
// same logger is forwarded to gogpu/wgpu and gogpu/gg so GPU diagnostics end
// up in the same sink.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	charmlog "github.com/charmbracelet/log"
	"github.com/gogpu/gg"
	"github.com/gogpu/wgpu"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger replaces the process logger. Nil restores silence.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the process logger. It is never nil.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// Or returns l when set and the process logger otherwise.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger()
}

// ParseLevel maps debug, info, warn and error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New builds a logger writing human-readable records to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	h := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		Prefix:          "shaderlock",
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
	return slog.New(h)
}

// Install makes l the process logger and hands it to the GPU libraries.
func Install(l *slog.Logger) {
	SetLogger(l)
	wgpu.SetLogger(l)
	gg.SetLogger(l)
}
