package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level controls which entries a Logger writes.
type Level int

const (
	// LevelQuiet writes warnings and errors only
	LevelQuiet Level = iota
	// LevelNormal adds informational entries (default)
	LevelNormal
	// LevelVerbose adds per-step lifecycle detail (launches, retries, kills)
	LevelVerbose
	// LevelDebug writes everything
	LevelDebug
)

// ParseLevel maps a verbosity name to a Level. Empty means normal.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet":
		return LevelQuiet, nil
	case "", "normal":
		return LevelNormal, nil
	case "verbose":
		return LevelVerbose, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelNormal, fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", s)
	}
}

// Logger writes component-tagged log lines for ghostchrome.
// By default all loggers of a process share one file in ~/.ghostchrome/logs/.
type Logger struct {
	sessionID string
	component string
	file      *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logPath   string
	closeOnce sync.Once
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	initOnce sync.Once
	initErr  error

	levelMu      sync.RWMutex
	currentLevel = LevelDebug
)

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

func initLogDirectory() error {
	initOnce.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}

		logDir = filepath.Join(homeDir, ".ghostchrome", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// SetLevel sets the process-wide verbosity. It applies to every Logger.
func SetLevel(l Level) {
	levelMu.Lock()
	defer levelMu.Unlock()
	currentLevel = l
}

// CurrentLevel returns the process-wide verbosity.
func CurrentLevel() Level {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return currentLevel
}

// NewLogger creates a new logger for a specific component.
// The logger writes to ~/.ghostchrome/logs/<session-id>-ghostchrome.log
//
// If the log file cannot be opened it returns a stderr logger along with the
// error, so callers can warn and keep going.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	sessID := getSessionID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-ghostchrome.log", sessID))

	// Append mode: components share the file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return newFallbackLogger(component, fmt.Errorf("failed to open log file: %w", err)), err
	}

	return &Logger{
		sessionID: sessID,
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		logPath:   logPath,
	}, nil
}

// NewWriterLogger creates a logger that writes to w instead of the session file.
func NewWriterLogger(component string, w io.Writer) *Logger {
	return &Logger{
		sessionID: getSessionID(),
		component: component,
		logger:    log.New(w, "", 0),
	}
}

// Discard returns a logger that drops everything.
func Discard(component string) *Logger {
	return NewWriterLogger(component, io.Discard)
}

func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	logger.Printf("WARNING: Failed to initialize file logging: %v", err)
	logger.Printf("Falling back to stderr logging")

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		logger:    logger,
	}
}

// With returns a logger for a sub-component sharing the same sink.
func (l *Logger) With(component string) *Logger {
	return &Logger{
		sessionID: l.sessionID,
		component: l.component + "." + component,
		logger:    l.logger,
		logPath:   l.logPath,
	}
}

func (l *Logger) formatLogEntry(level, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

func (l *Logger) write(min Level, level, format string, v ...interface{}) {
	if l == nil || CurrentLevel() < min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Println(l.formatLogEntry(level, fmt.Sprintf(format, v...)))
}

// Printf logs a formatted message at INFO level
func (l *Logger) Printf(format string, v ...interface{}) {
	l.write(LevelNormal, "INFO", format, v...)
}

// Verbosef logs a step-level message shown at verbose and above
func (l *Logger) Verbosef(format string, v ...interface{}) {
	l.write(LevelVerbose, "VERBOSE", format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write(LevelNormal, "INFO", format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write(LevelQuiet, "WARN", format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write(LevelQuiet, "ERROR", format, v...)
}

// LogPath returns the path to the log file, empty for writer and fallback loggers
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
