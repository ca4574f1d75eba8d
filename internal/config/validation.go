package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"mcbopomofo/internal/bopomofo"
	"mcbopomofo/internal/ime"
)

// ErrInvalidConfig matches every validation failure with errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError is one finding about a config field. Warnings describe
// settings the hosts can work around, such as a missing base phrase table.
type ValidationError struct {
	Field   string
	Message string
	Warning bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// IsWarning reports whether the finding is non-fatal.
func (e *ValidationError) IsWarning() bool { return e.Warning }

// ValidationErrors is the list of findings from one validation pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i := range e {
		msgs[i] = e[i].Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Unwrap() error {
	if len(e) == 0 {
		return nil
	}
	return ErrInvalidConfig
}

func (e ValidationErrors) filter(warning bool) ValidationErrors {
	var out ValidationErrors
	for _, v := range e {
		if v.Warning == warning {
			out = append(out, v)
		}
	}
	return out
}

// Warnings returns the non-fatal findings.
func (e ValidationErrors) Warnings() ValidationErrors { return e.filter(true) }

// Errors returns the fatal findings.
func (e ValidationErrors) Errors() ValidationErrors { return e.filter(false) }

// HasErrors reports whether any finding is fatal.
func (e ValidationErrors) HasErrors() bool {
	return slices.ContainsFunc(e, func(v ValidationError) bool { return !v.Warning })
}

// RequiredFieldError reports an empty required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "required field is missing"}
}

// RangeError reports a value outside [min, max].
func RangeError(field string, min, max any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("value must be between %v and %v", min, max)}
}

// checker collects findings for one pass.
type checker struct {
	errs ValidationErrors
}

func (c *checker) fail(field, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) warn(field, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Warning: true})
}

func (c *checker) add(e *ValidationError) {
	c.errs = append(c.errs, *e)
}

func (c *checker) oneOf(field, value string, valid ...string) {
	if !slices.Contains(valid, value) {
		c.fail(field, "invalid value: %s (valid: %s)", value, strings.Join(valid, ", "))
	}
}

func (c *checker) nonNegative(field string, v int) {
	if v < 0 {
		c.fail(field, "cannot be negative")
	}
}

// ValidateConfig checks every section and returns ValidationErrors, or nil
// when there are no findings at all.
func ValidateConfig(cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	var c checker
	if cfg.Version < 1 || cfg.Version > Version {
		c.fail("version", "unsupported version %d (current: %d)", cfg.Version, Version)
	}
	c.input(&cfg.Input)
	c.data(&cfg.Data)
	c.logging(&cfg.Logging)
	c.ibus(&cfg.IBus)
	if addr := cfg.Metrics.Listen; addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			c.fail("metrics.listen", "invalid listen address: %v", err)
		}
	}

	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}

func (c *checker) input(in *InputConfig) {
	if _, ok := bopomofo.LayoutByName(in.Layout); !ok {
		c.fail("input.layout", "unknown keyboard layout: %s (valid: standard, eten)", in.Layout)
	}
	if _, err := ime.ParseSelectPhrase(in.SelectPhrase); err != nil {
		c.fail("input.select_phrase", "invalid value: %s (valid: before_cursor, after_cursor)", in.SelectPhrase)
	}
	if err := ime.ValidateCandidateKeys(in.CandidateKeys); err != nil {
		c.fail("input.candidate_keys", "%v", err)
	}
	if _, err := ime.ParseLetterMode(in.LetterMode); err != nil {
		c.fail("input.letter_mode", "invalid value: %s (valid: upper, lower)", in.LetterMode)
	}
	if in.MaxSpan < 1 || in.MaxSpan > 32 {
		c.add(RangeError("input.max_span", 1, 32))
	}
}

func (c *checker) data(d *DataConfig) {
	if d.BaseModelPath != "" {
		if _, err := os.Stat(expandPath(d.BaseModelPath)); err != nil {
			c.warn("data.base_model_path", "phrase table not readable, the bundled table will be used: %v", err)
		}
	}

	if d.ConversionTablePath != "" {
		if _, err := os.Stat(expandPath(d.ConversionTablePath)); err != nil {
			c.warn("data.conversion_table_path", "conversion table not readable, the bundled table will be used: %v", err)
		}
	}

	switch d.UserPhraseStore {
	case StoreJSON:
		if d.UserPhrasePath == "" {
			c.add(RequiredFieldError("data.user_phrase_path"))
		}
	case StoreSQLite:
		if d.DatabasePath == "" {
			c.add(RequiredFieldError("data.database_path"))
		}
	default:
		c.fail("data.user_phrase_store", "invalid store: %s (valid: json, sqlite)", d.UserPhraseStore)
	}

	c.nonNegative("data.busy_timeout_ms", d.BusyTimeoutMs)
	if d.ReloadDebounceMs < 0 || d.ReloadDebounceMs > 10000 {
		c.add(RangeError("data.reload_debounce_ms", 0, 10000))
	}
}

func (c *checker) logging(l *LoggingConfig) {
	c.oneOf("logging.level", l.Level, "debug", "info", "warn", "error")
	c.oneOf("logging.format", l.Format, "text", "json")
	c.oneOf("logging.output", l.Output, "stdout", "stderr", "file", "both")
	if (l.Output == "file" || l.Output == "both") && l.FilePath == "" {
		c.fail("logging.file_path", "required when output is file or both")
	}
	if l.MaxSizeMB < 1 {
		c.fail("logging.max_size_mb", "must be at least 1 MB")
	}
	c.nonNegative("logging.max_backups", l.MaxBackups)
	c.nonNegative("logging.max_age_days", l.MaxAgeDays)
}

func (c *checker) ibus(i *IBusConfig) {
	switch name := i.BusName; {
	case name == "":
		c.add(RequiredFieldError("ibus.bus_name"))
	case !strings.Contains(name, "."), strings.HasPrefix(name, "."), strings.HasSuffix(name, "."):
		c.fail("ibus.bus_name", "not a well-known bus name: %s", name)
	}
	if i.ComponentDir != "" && !filepath.IsAbs(expandPath(i.ComponentDir)) {
		c.warn("ibus.component_dir", "component directory should be absolute")
	}
}

// expandPath resolves a leading ~/ against the home directory.
func expandPath(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
