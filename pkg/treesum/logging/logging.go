// Package logging provides the shared logging system for treesum.
// Loggers are component-scoped and write to two sinks: stderr, so log
// output never mixes with manifest data or report output on stdout,
// and a rotating log file that persists across runs.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    log.Fatal(err)
//	}
//
//	logger := logging.Get("walker")
//	logger.Info("scan started", "root", ".")
//
// Before Init is called all loggers are silent.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// toCharmLevel converts our Level to charmbracelet/log level.
func (l Level) toCharmLevel() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// LevelForVerbosity maps a scan verbosity counter to a log level.
// Verbosity starts at 2 and is raised by --verbose and lowered by
// --quiet and --batch.
func LevelForVerbosity(v int) Level {
	switch {
	case v <= 0:
		return LevelError
	case v == 1:
		return LevelWarn
	case v == 2:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Components maps component names to their log levels.
	// This allows per-component log level overrides.
	Components map[string]string

	// Output is the destination for console records. Nil means stderr.
	Output io.Writer

	// File is the log file path. Empty uses DefaultLogPath().
	File string

	// Rotation controls rotation of the log file.
	Rotation RotationConfig
}

// Logger identifies a component and forwards records to the shared
// logging state. Loggers created before Init start logging once Init
// runs, so packages can hold them in package-level variables.
type Logger struct {
	component string
	extra     []interface{}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

// With returns a new logger with additional context.
func (l *Logger) With(args ...interface{}) *Logger {
	extra := make([]interface{}, 0, len(l.extra)+len(args))
	extra = append(extra, l.extra...)
	extra = append(extra, args...)
	return &Logger{component: l.component, extra: extra}
}

// log resolves the backing loggers at call time so that Init can
// reconfigure outputs and levels after a Logger was handed out.
func (l *Logger) log(level Level, msg string, args ...interface{}) {
	for _, c := range globalState.backends(l.component) {
		if len(l.extra) > 0 {
			c = c.With(l.extra...)
		}
		switch level {
		case LevelDebug:
			c.Debug(msg, args...)
		case LevelInfo:
			c.Info(msg, args...)
		case LevelWarn:
			c.Warn(msg, args...)
		case LevelError:
			c.Error(msg, args...)
		}
	}
}

// state holds the global logging state.
type state struct {
	mu          sync.RWMutex
	initialized bool
	level       Level
	components  map[string]Level
	output      io.Writer
	writer      *RotatingWriter
	cached      map[string][]*log.Logger
}

var globalState = &state{
	components: make(map[string]Level),
	cached:     make(map[string][]*log.Logger),
}

// Init initializes the logging system with the given configuration.
// It may be called again to reconfigure; loggers obtained earlier pick
// up the new settings.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	globalState.level = level

	globalState.components = make(map[string]Level)
	for comp, lvl := range cfg.Components {
		parsedLevel, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		globalState.components[comp] = parsedLevel
	}

	globalState.output = cfg.Output
	if globalState.output == nil {
		globalState.output = os.Stderr
	}

	path := cfg.File
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}
	if globalState.writer != nil {
		_ = globalState.writer.Close()
	}
	globalState.writer = writer
	globalState.initialized = true

	// Drop cached backends so the next log call rebuilds them with the
	// new configuration.
	globalState.cached = make(map[string][]*log.Logger)

	return nil
}

// Close flushes and closes the log file. It should be called once when
// the process exits. Loggers keep working afterwards but fall back to
// silent until the next Init.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}

	var err error
	if globalState.writer != nil {
		err = globalState.writer.Close()
		globalState.writer = nil
	}
	globalState.initialized = false
	globalState.cached = make(map[string][]*log.Logger)

	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// Get returns a logger for the given component.
func Get(component string) *Logger {
	return &Logger{component: component}
}

// DefaultLogPath returns the log file used when the configuration does
// not name one: $XDG_STATE_HOME/treesum/treesum.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "treesum", "treesum.log")
}

// backends returns the backing loggers for a component, creating and
// caching them on first use.
func (s *state) backends(component string) []*log.Logger {
	s.mu.RLock()
	if b, ok := s.cached[component]; ok {
		s.mu.RUnlock()
		return b
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.cached[component]; ok {
		return b
	}
	b := s.create(component)
	s.cached[component] = b
	return b
}

// create builds the charm loggers for a component: one for the console
// and, once Init has opened it, one for the log file. File records get
// full timestamps; console records stay terse.
// Must be called with s.mu held.
func (s *state) create(component string) []*log.Logger {
	level := s.level
	if compLevel, ok := s.components[component]; ok {
		level = compLevel
	}

	if !s.initialized {
		return []*log.Logger{log.NewWithOptions(io.Discard, log.Options{
			Level:  level.toCharmLevel(),
			Prefix: component,
		})}
	}

	backends := []*log.Logger{log.NewWithOptions(s.output, log.Options{
		Level:  level.toCharmLevel(),
		Prefix: component,
	})}
	if s.writer != nil {
		backends = append(backends, log.NewWithOptions(s.writer, log.Options{
			Level:           level.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}))
	}
	return backends
}
