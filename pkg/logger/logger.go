// Package logger provides the global structured logger.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.Mutex
	log     = zerolog.New(io.Discard)
	logFile *os.File
)

// Init initializes the global logger. When logPath is non-empty, entries are
// appended to the file as JSON; otherwise they go to stderr in console form.
func Init(logPath string, verbose bool) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	var w io.Writer
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		logFile = f
		w = f
	} else {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	log = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return nil
}

// Close closes the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Debug starts a debug-level log event tagged with the originating module.
func Debug(module string) *zerolog.Event {
	return log.Debug().Str("module", module)
}

// Info starts an info-level log event tagged with the originating module.
func Info(module string) *zerolog.Event {
	return log.Info().Str("module", module)
}

// Warn starts a warn-level log event tagged with the originating module.
func Warn(module string) *zerolog.Event {
	return log.Warn().Str("module", module)
}

// Error starts an error-level log event tagged with the originating module.
func Error(module string) *zerolog.Event {
	return log.Error().Str("module", module)
}
