// file: internal/logging/zerolog.go
package logging

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's level scale so callers never need to import
// zerolog directly.
type Level int8

// Supported log levels, ordered from most to least verbose.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

var levelMu sync.RWMutex

func init() {
	zerolog.MessageFieldName = "msg"
	zerolog.TimestampFieldName = "ts"
}

// InitLogging installs a zerolog-backed Logger as the package default,
// writing JSON-encoded records to w at the given minimum level. Intended
// to be called once at process startup (cmd/jsonrpcd's root command does
// this); tests call it to capture output into a buffer.
func InitLogging(level Level, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	levelMu.Lock()
	zerolog.SetGlobalLevel(level.zerolog())
	levelMu.Unlock()

	base := zerolog.New(w).With().Timestamp().Logger()
	SetDefaultLogger(&zerologLogger{log: base})
}

// SetLevel adjusts the global minimum log level at runtime.
func SetLevel(level Level) {
	levelMu.Lock()
	defer levelMu.Unlock()
	zerolog.SetGlobalLevel(level.zerolog())
}

// IsDebugEnabled reports whether debug-level records are currently emitted.
func IsDebugEnabled() bool {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return zerolog.GlobalLevel() <= zerolog.DebugLevel
}

// zerologLogger adapts zerolog.Logger to the Logger interface.
type zerologLogger struct {
	log zerolog.Logger
}

func (z *zerologLogger) event(level zerolog.Level, msg string, args []any) {
	evt := z.log.WithLevel(level)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		evt = evt.Interface(key, args[i+1])
	}
	evt.Msg(msg)
}

// Debug implements Logger.
func (z *zerologLogger) Debug(msg string, args ...any) { z.event(zerolog.DebugLevel, msg, args) }

// Info implements Logger.
func (z *zerologLogger) Info(msg string, args ...any) { z.event(zerolog.InfoLevel, msg, args) }

// Warn implements Logger.
func (z *zerologLogger) Warn(msg string, args ...any) { z.event(zerolog.WarnLevel, msg, args) }

// Error implements Logger.
func (z *zerologLogger) Error(msg string, args ...any) { z.event(zerolog.ErrorLevel, msg, args) }

// WithContext enriches the logger with any fields attached via ContextWithFields.
func (z *zerologLogger) WithContext(ctx context.Context) Logger {
	fields := fieldsFromContext(ctx)
	if len(fields) == 0 {
		return z
	}
	ctxLogger := z.log.With().Fields(fields).Logger()
	return &zerologLogger{log: ctxLogger}
}

// WithField returns a logger with an additional static field.
func (z *zerologLogger) WithField(key string, value any) Logger {
	return &zerologLogger{log: z.log.With().Interface(key, value).Logger()}
}
