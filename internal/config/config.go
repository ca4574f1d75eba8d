// Package config handles configuration loading, validation, and management
// for the McBopomofo hosts.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"

	"mcbopomofo/internal/bopomofo"
	"mcbopomofo/internal/gramambular"
	"mcbopomofo/internal/ime"
	"mcbopomofo/internal/logging"
)

// Version is the current configuration schema version.
const Version = 1

// User phrase store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config holds the complete host configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Input holds the composition behaviour.
	Input InputConfig `toml:"input" json:"input" yaml:"input"`

	// Data locates the language model and the user phrase table.
	Data DataConfig `toml:"data" json:"data" yaml:"data"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// IBus configuration for the Linux engine.
	IBus IBusConfig `toml:"ibus" json:"ibus" yaml:"ibus"`

	// Metrics configuration.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`

	// mu protects concurrent access to the config.
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// InputConfig holds the settings an input controller is created with.
type InputConfig struct {
	// Layout is the keyboard layout name: "standard" or "eten".
	Layout string `toml:"layout" json:"layout" yaml:"layout"`

	// SelectPhrase is "before_cursor" or "after_cursor".
	SelectPhrase string `toml:"select_phrase" json:"select_phrase" yaml:"select_phrase"`

	// CandidateKeys labels the candidate slots, one key per slot.
	CandidateKeys string `toml:"candidate_keys" json:"candidate_keys" yaml:"candidate_keys"`

	// EscClearEntireBuffer makes Escape discard the whole buffer.
	EscClearEntireBuffer bool `toml:"esc_key_clear_entire_buffer" json:"esc_key_clear_entire_buffer" yaml:"esc_key_clear_entire_buffer"`

	// MoveCursor moves the cursor past a confirmed candidate.
	MoveCursor bool `toml:"move_cursor" json:"move_cursor" yaml:"move_cursor"`

	// LetterMode is "upper" or "lower".
	LetterMode string `toml:"letter_mode" json:"letter_mode" yaml:"letter_mode"`

	// MaxSpan is the longest reading span a phrase may cover.
	MaxSpan int `toml:"max_span" json:"max_span" yaml:"max_span"`

	// ChineseConversion rewrites candidates through the conversion table.
	ChineseConversion bool `toml:"chinese_conversion" json:"chinese_conversion" yaml:"chinese_conversion"`
}

// DataConfig locates the models.
type DataConfig struct {
	// BaseModelPath is the phrase table file. Empty uses the bundled table.
	BaseModelPath string `toml:"base_model_path" json:"base_model_path" yaml:"base_model_path"`

	// ConversionTablePath is the script conversion table. Empty uses the
	// bundled traditional to simplified table.
	ConversionTablePath string `toml:"conversion_table_path" json:"conversion_table_path" yaml:"conversion_table_path"`

	// UserPhraseStore is the user phrase backend: "json" or "sqlite".
	UserPhraseStore string `toml:"user_phrase_store" json:"user_phrase_store" yaml:"user_phrase_store"`

	// UserPhrasePath is the JSON user phrase file.
	UserPhrasePath string `toml:"user_phrase_path" json:"user_phrase_path" yaml:"user_phrase_path"`

	// DatabasePath is the SQLite user phrase database.
	DatabasePath string `toml:"database_path" json:"database_path" yaml:"database_path"`

	// BusyTimeoutMs is the SQLite busy timeout in milliseconds.
	BusyTimeoutMs int `toml:"busy_timeout_ms" json:"busy_timeout_ms" yaml:"busy_timeout_ms"`

	// WatchUserPhrases reloads the JSON user phrase file when it changes.
	WatchUserPhrases bool `toml:"watch_user_phrases" json:"watch_user_phrases" yaml:"watch_user_phrases"`

	// ReloadDebounceMs coalesces bursts of file events.
	ReloadDebounceMs int `toml:"reload_debounce_ms" json:"reload_debounce_ms" yaml:"reload_debounce_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file" or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output is "file").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is the maximum age of log files in days.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress determines whether to compress rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`

	// RedactTyping replaces typed text, readings and phrases in log records.
	RedactTyping bool `toml:"redact_typing" json:"redact_typing" yaml:"redact_typing"`
}

// IBusConfig holds the IBus engine registration.
type IBusConfig struct {
	// BusName is the well-known D-Bus name the engine process owns.
	BusName string `toml:"bus_name" json:"bus_name" yaml:"bus_name"`

	// ComponentDir is where the IBus component XML is installed.
	ComponentDir string `toml:"component_dir" json:"component_dir" yaml:"component_dir"`
}

// MetricsConfig controls the Prometheus endpoint of the engine process.
type MetricsConfig struct {
	// Listen is the host:port to serve /metrics on. Empty disables it.
	Listen string `toml:"listen" json:"listen" yaml:"listen"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := DataDir()

	return &Config{
		Version: Version,
		Input: InputConfig{
			Layout:               bopomofo.Standard.Name,
			SelectPhrase:         string(ime.SelectBeforeCursor),
			CandidateKeys:        ime.DefaultCandidateKeys,
			EscClearEntireBuffer: false,
			MoveCursor:           true,
			LetterMode:           string(ime.LetterUpper),
			MaxSpan:              gramambular.DefaultMaxSpan,
		},
		Data: DataConfig{
			BaseModelPath:    "",
			UserPhraseStore:  StoreJSON,
			UserPhrasePath:   filepath.Join(dir, "user-phrases.json"),
			DatabasePath:     filepath.Join(dir, "user-phrases.db"),
			BusyTimeoutMs:    5000,
			WatchUserPhrases: true,
			ReloadDebounceMs: 200,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "text",
			Output:       "file",
			FilePath:     filepath.Join(PlatformLogDir(), "mcbopomofo.log"),
			MaxSizeMB:    10,
			MaxBackups:   3,
			MaxAgeDays:   14,
			Compress:     true,
			RedactTyping: true,
		},
		IBus: IBusConfig{
			BusName:      ime.DefaultIBusBusName,
			ComponentDir: defaultComponentDir(),
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	if envPath := os.Getenv("MCBOPOMOFO_CONFIG"); envPath != "" {
		return envPath
	}
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// Load reads the configuration at path, or at ConfigPath when path is
// empty, and applies environment overrides. A missing file yields the
// defaults. Unlike Loader.Load the result is not validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors. Warnings are not reported;
// see Warnings.
func (c *Config) Validate() error {
	errs, _ := ValidateConfig(c).(ValidationErrors)
	if errs.HasErrors() {
		return errs.Errors()
	}
	return nil
}

// Warnings returns the non-fatal validation findings.
func (c *Config) Warnings() ValidationErrors {
	errs, _ := ValidateConfig(c).(ValidationErrors)
	return errs.Warnings()
}

// EnsureDirectories creates all necessary directories for the host.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Data.UserPhrasePath),
		filepath.Dir(c.Data.DatabasePath),
	}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DataDir returns the base data directory.
// Uses platform-specific paths or the MCBOPOMOFO_DATA_DIR environment override.
func DataDir() string {
	if envDir := os.Getenv("MCBOPOMOFO_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with MCBOPOMOFO_ and use underscores.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Input overrides
	if v := os.Getenv("MCBOPOMOFO_LAYOUT"); v != "" {
		c.Input.Layout = v
	}
	if v := os.Getenv("MCBOPOMOFO_SELECT_PHRASE"); v != "" {
		c.Input.SelectPhrase = v
	}
	if v := os.Getenv("MCBOPOMOFO_CANDIDATE_KEYS"); v != "" {
		c.Input.CandidateKeys = v
	}
	if v := os.Getenv("MCBOPOMOFO_LETTER_MODE"); v != "" {
		c.Input.LetterMode = v
	}
	if v := os.Getenv("MCBOPOMOFO_MAX_SPAN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Input.MaxSpan = n
		}
	}
	if v := os.Getenv("MCBOPOMOFO_CHINESE_CONVERSION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Input.ChineseConversion = b
		}
	}

	// Data overrides
	if v := os.Getenv("MCBOPOMOFO_BASE_MODEL"); v != "" {
		c.Data.BaseModelPath = v
	}
	if v := os.Getenv("MCBOPOMOFO_CONVERSION_TABLE"); v != "" {
		c.Data.ConversionTablePath = v
	}
	if v := os.Getenv("MCBOPOMOFO_USER_PHRASE_STORE"); v != "" {
		c.Data.UserPhraseStore = v
	}
	if v := os.Getenv("MCBOPOMOFO_USER_PHRASE_PATH"); v != "" {
		c.Data.UserPhrasePath = v
	}
	if v := os.Getenv("MCBOPOMOFO_DATABASE_PATH"); v != "" {
		c.Data.DatabasePath = v
	}

	// Logging overrides
	if v := os.Getenv("MCBOPOMOFO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MCBOPOMOFO_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}

	// IBus overrides
	if v := os.Getenv("MCBOPOMOFO_IBUS_BUS_NAME"); v != "" {
		c.IBus.BusName = v
	}

	if v := os.Getenv("MCBOPOMOFO_METRICS_LISTEN"); v != "" {
		c.Metrics.Listen = v
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Version: c.Version,
		Input:   c.Input,
		Data:    c.Data,
		Logging: c.Logging,
		IBus:    c.IBus,
		Metrics: c.Metrics,
	}
}

// InputSettings converts the input section into controller settings.
func (c *Config) InputSettings() (ime.Settings, error) {
	c.mu.RLock()
	in := c.Input
	c.mu.RUnlock()

	layout, ok := bopomofo.LayoutByName(in.Layout)
	if !ok {
		return ime.Settings{}, fmt.Errorf("unknown keyboard layout %q", in.Layout)
	}
	selectPhrase, err := ime.ParseSelectPhrase(in.SelectPhrase)
	if err != nil {
		return ime.Settings{}, err
	}
	letterMode, err := ime.ParseLetterMode(in.LetterMode)
	if err != nil {
		return ime.Settings{}, err
	}
	s := ime.Settings{
		Layout:                   layout,
		SelectPhrase:             selectPhrase,
		CandidateKeys:            in.CandidateKeys,
		EscClearEntireBuffer:     in.EscClearEntireBuffer,
		MoveCursorAfterSelection: in.MoveCursor,
		LetterMode:               letterMode,
		MaxSpan:                  in.MaxSpan,
	}
	if err := s.Validate(); err != nil {
		return ime.Settings{}, err
	}
	return s, nil
}

// LoggerConfig converts the logging section for logging.New. component
// names the binary.
func (c *Config) LoggerConfig(component string) *logging.Config {
	c.mu.RLock()
	l := c.Logging
	c.mu.RUnlock()

	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(l.Level); err == nil {
		cfg.Level = level
	}
	if l.Format == "json" {
		cfg.Format = logging.FormatJSON
	}
	cfg.Output = l.Output
	cfg.FilePath = l.FilePath
	cfg.MaxSize = int64(l.MaxSizeMB)
	cfg.MaxBackups = l.MaxBackups
	cfg.MaxAge = l.MaxAgeDays
	cfg.Compress = l.Compress
	cfg.RedactTyping = l.RedactTyping
	if component != "" {
		cfg.Component = component
	}
	return cfg
}

// EncodeTOML renders the configuration as TOML.
func (c *Config) EncodeTOML() ([]byte, error) {
	return encodeToTOML(c.Clone())
}

func encodeToTOML(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
