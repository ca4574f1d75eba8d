// Package logging provides the slog setup shared by the McBopomofo hosts:
// leveled text or JSON records, redaction of what the user types, size and
// daily log rotation, and crash reports for recovered panics.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Level is a slog level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(s)
	if name == "warning" {
		name = "warn"
	}
	for level, n := range levelNames {
		if n == name {
			return level, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

// LevelString is the inverse of ParseLevel. Unknown levels print as info.
func LevelString(level Level) string {
	if n, ok := levelNames[level]; ok {
		return n
	}
	return "info"
}

// Format selects the slog handler.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Redacted replaces the value of a redacted attribute.
const Redacted = "[REDACTED]"

// Config holds the logging configuration.
type Config struct {
	Level  Level
	Format Format

	// Output is "stdout", "stderr", "file" or "both" (stderr and file).
	Output string

	// Writer, when set, receives the records and Output is ignored.
	Writer io.Writer

	// FilePath, MaxSize (megabytes, zero for no limit), MaxAge (days),
	// MaxBackups and Compress configure the rotated log file.
	FilePath   string
	MaxSize    int64
	MaxAge     int
	MaxBackups int
	Compress   bool

	AddSource bool

	// RedactTyping hides readings, phrases and composed text. Users type
	// passwords and private messages through an input method.
	RedactTyping bool

	// Component is attached to every record.
	Component string
}

// DefaultConfig logs info and above to stderr with typing redacted.
func DefaultConfig() *Config {
	return &Config{
		Level:        LevelInfo,
		Format:       FormatText,
		Output:       "stderr",
		FilePath:     filepath.Join(stateDir(), "mcbopomofo.log"),
		MaxSize:      10,
		MaxAge:       14,
		MaxBackups:   3,
		Compress:     true,
		RedactTyping: true,
		Component:    "mcbopomofo",
	}
}

// stateDir is where logs and crash reports go when nothing else is
// configured: $XDG_STATE_HOME/mcbopomofo on Unix, the per-user log
// locations on macOS and Windows.
func stateDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "mcbopomofo")
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = os.Getenv("APPDATA")
		}
		return filepath.Join(base, "mcbopomofo", "logs")
	}
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, "mcbopomofo")
	}
	return filepath.Join(home, ".local", "state", "mcbopomofo")
}

// Logger is a slog.Logger that owns its log file.
type Logger struct {
	*slog.Logger
	file *fileHandle
}

// fileHandle is shared by a logger and the loggers derived from it.
type fileHandle struct {
	mu sync.Mutex
	r  *FileRotator
}

// New builds a logger from cfg. A nil cfg means DefaultConfig.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	w, rotator, err := openOutput(cfg)
	if err != nil {
		return nil, fmt.Errorf("open log output: %w", err)
	}

	redact := newRedactor(cfg.RedactTyping)
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if redact.matches(a.Key) {
				a.Value = slog.StringValue(Redacted)
			}
			return a
		},
	}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	}
	if cfg.Component != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("component", cfg.Component)})
	}

	return &Logger{Logger: slog.New(h), file: &fileHandle{r: rotator}}, nil
}

func openOutput(cfg *Config) (io.Writer, *FileRotator, error) {
	if cfg.Writer != nil {
		return cfg.Writer, nil, nil
	}
	switch out := strings.ToLower(cfg.Output); out {
	case "stdout":
		return os.Stdout, nil, nil
	case "file", "both":
		r, err := NewFileRotator(cfg)
		if err != nil {
			return nil, nil, err
		}
		if out == "both" {
			return io.MultiWriter(os.Stderr, r), r, nil
		}
		return r, r, nil
	default:
		return os.Stderr, nil, nil
	}
}

// redactor matches attribute keys by substring, case-insensitively.
type redactor struct {
	keys []string
}

// Credentials are always hidden. Typing keys are hidden when typing is true.
func newRedactor(typing bool) redactor {
	keys := []string{"password", "secret", "token", "credential"}
	if typing {
		keys = append(keys, "reading", "phrase", "text", "candidate", "preedit")
	}
	return redactor{keys: keys}
}

func (r redactor) matches(key string) bool {
	key = strings.ToLower(key)
	for _, k := range r.keys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}

func shouldRedact(key string, typing bool) bool {
	return newRedactor(typing).matches(key)
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), file: l.file}
}

// WithComponent overrides the component attribute on later records.
func (l *Logger) WithComponent(name string) *Logger {
	return l.with(slog.String("component", name))
}

// WithProcess tags records with a fresh process ID so runs sharing one log
// file can be told apart.
func (l *Logger) WithProcess() *Logger {
	return l.with(slog.String("process_id", uuid.NewString()))
}

// Sync flushes the log file, if any.
func (l *Logger) Sync() error {
	if l.file == nil {
		return nil
	}
	l.file.mu.Lock()
	defer l.file.mu.Unlock()
	if l.file.r == nil {
		return nil
	}
	return l.file.r.Sync()
}

// Close closes the log file, if any. Derived loggers share the file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	l.file.mu.Lock()
	defer l.file.mu.Unlock()
	if l.file.r == nil {
		return nil
	}
	err := l.file.r.Close()
	l.file.r = nil
	return err
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// Default returns the logger installed by SetDefault, or one writing to
// stderr through slog's default handler.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = &Logger{Logger: slog.Default(), file: &fileHandle{}}
	}
	return defaultLogger
}

// SetDefault installs l as the package default and as slog's default.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	slog.SetDefault(l.Logger)
}
