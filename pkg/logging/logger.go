// Package logging provides the shared structured logger for the storage
// core. It mirrors the init-once, package-level-logger shape used
// throughout the reference implementation, backed by logrus instead of a
// hand-rolled slog wrapper.
package logging

import (
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Format selects the logrus formatter.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config configures the shared logger.
type Config struct {
	Level      logrus.Level
	OutputPath string // empty means stderr
	Format     Format
}

var (
	mu        sync.RWMutex
	logger    *logrus.Logger
	logFile   *os.File
	initOnce  sync.Once
	didExplicitInit bool
)

// Init configures the shared logger. Calling it more than once is a
// programming error surfaced as a plain error, not a panic, since tests
// legitimately re-init between subtests.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if didExplicitInit {
		return errAlreadyInited
	}
	didExplicitInit = true
	return apply(cfg)
}

var errAlreadyInited = errorString("logging: already initialized")

type errorString string

func (e errorString) Error() string { return string(e) }

func apply(cfg Config) error {
	l := logrus.New()
	l.SetLevel(cfg.Level)

	switch cfg.Format {
	case FormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.OutputPath != "" {
		f, err := os.OpenFile(cfg.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		if logFile != nil {
			logFile.Close()
		}
		logFile = f
		l.SetOutput(f)
	} else {
		l.SetOutput(os.Stderr)
	}

	logger = l
	return nil
}

// Get returns the shared logger, lazily defaulting to an INFO-level text
// logger on stderr if Init was never called.
func Get() *logrus.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	initOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if logger == nil {
			_ = apply(Config{Level: logrus.InfoLevel, Format: FormatText})
		}
	})

	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Close flushes and releases the log file, if one was opened via Init.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Bytes renders a byte count for log fields and diagnostic strings.
func Bytes(n uint64) string {
	return humanize.Bytes(n)
}
