// Package logger provides a process-wide leveled logger.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	log = newLogger("info", "text")
}

// Init configures the process logger. level is one of debug, info, warn,
// error. format is "text" for human-readable console output or "json".
func Init(level, format string) {
	log = newLogger(level, format)
}

func newLogger(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}

func Debug(format string, args ...any) {
	log.Debug().Msgf(format, args...)
}

func Info(format string, args ...any) {
	log.Info().Msgf(format, args...)
}

func Warn(format string, args ...any) {
	log.Warn().Msgf(format, args...)
}

func Error(format string, args ...any) {
	log.Error().Msgf(format, args...)
}

func Fatal(format string, args ...any) {
	log.Fatal().Msgf(format, args...)
}
