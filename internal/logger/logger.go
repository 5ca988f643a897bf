// Package logger configures the process-wide zerolog logger used by every pipeline stage.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Init configures the global logger. format is "console" (human readable) or
// "json"; level is parsed with zerolog.ParseLevel and defaults to info.
func Init(level, format string) {
	InitWithWriter(os.Stderr, level, format)
}

// InitWithWriter is Init writing to w.
func InitWithWriter(w io.Writer, level, format string) {
	var out io.Writer = w
	if strings.ToLower(format) != "json" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	l := zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()

	mu.Lock()
	log = l
	mu.Unlock()
	zerolog.DefaultContextLogger = &l
}

func parseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// Get returns the logger instance
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// WithComponent returns the global logger tagged with a component field.
func WithComponent(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

// Error logs an error message
func Error(err error, msg string) {
	l := Get()
	l.Error().Err(err).Msg(msg)
}

// Info logs an info message
func Info(msg string) {
	l := Get()
	l.Info().Msg(msg)
}
