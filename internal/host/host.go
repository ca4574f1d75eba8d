// Package host wires configuration, logging, the language model and the user
// phrase store together for the McBopomofo binaries.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mcbopomofo/internal/config"
	"mcbopomofo/internal/ime"
	"mcbopomofo/internal/lm"
	"mcbopomofo/internal/logging"
	"mcbopomofo/internal/metrics"
	"mcbopomofo/internal/store"
)

// Env is a loaded host environment.
type Env struct {
	Config  *config.Config
	Logger  *logging.Logger
	Crash   *logging.CrashHandler
	Model   *lm.Model
	Store   ime.PhraseStore
	Metrics *metrics.EngineMetrics

	phraseFile *ime.PhraseFile
	db         *store.Store
}

// Open builds the environment described by cfg. component names the binary
// in log records and crash reports.
func Open(cfg *config.Config, component string) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LoggerConfig(component))
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	for _, w := range cfg.Warnings() {
		logger.Warn("config warning", "field", w.Field, "message", w.Message)
	}

	env := &Env{
		Config: cfg,
		Logger: logger,
		Crash: logging.NewCrashHandler(&logging.CrashHandlerConfig{
			Component: component,
			Logger:    logger,
		}),
		Model:   lm.NewModel(LoadBaseTable(cfg.Data.BaseModelPath, logger.Logger)),
		Metrics: metrics.NewEngineMetrics(metrics.NewRegistry("mcbopomofo")),
	}

	if err := env.openStore(); err != nil {
		logger.Close()
		return nil, err
	}

	phrases, err := env.Store.Load()
	if err != nil {
		// A broken phrase table must not keep the engine from starting.
		logger.Error("load user phrases failed", "error", err)
		phrases = map[string][]string{}
	}
	env.Model.SetUserPhrases(phrases)
	env.Metrics.SetUserPhraseTable(phrases)
	env.Model.SetConverter(LoadConverter(&cfg.Input, &cfg.Data, logger.Logger))
	logger.Info("environment ready", "store", cfg.Data.UserPhraseStore, "user_readings", len(phrases))

	return env, nil
}

func (e *Env) openStore() error {
	switch e.Config.Data.UserPhraseStore {
	case config.StoreSQLite:
		db, err := store.Open(e.Config.Data.DatabasePath,
			store.WithBusyTimeout(time.Duration(e.Config.Data.BusyTimeoutMs)*time.Millisecond))
		if err != nil {
			return fmt.Errorf("open phrase database: %w", err)
		}
		e.db = db
		e.Store = db
	default:
		f, err := ime.NewPhraseFile(e.Config.Data.UserPhrasePath)
		if err != nil {
			return fmt.Errorf("open phrase file: %w", err)
		}
		f.SetLogger(e.Logger.Logger)
		e.phraseFile = f
		e.Store = f
	}
	return nil
}

// LoadBaseTable reads the phrase table at path, falling back to the bundled
// sample table when path is empty or unreadable.
func LoadBaseTable(path string, logger *slog.Logger) *lm.Table {
	if path == "" {
		return lm.SampleTable()
	}
	t, err := lm.LoadTableFile(path)
	if err != nil {
		logger.Warn("base table unavailable, using bundled table", "path", path, "error", err)
		return lm.SampleTable()
	}
	logger.Info("base table loaded", "path", path, "readings", t.Len())
	return t
}

// LoadConverter returns the candidate converter the config asks for, or nil
// when Chinese conversion is off. An unreadable table falls back to the
// bundled one.
func LoadConverter(in *config.InputConfig, data *config.DataConfig, logger *slog.Logger) lm.Converter {
	if !in.ChineseConversion {
		return nil
	}
	if data.ConversionTablePath == "" {
		return lm.BundledConversionTable().Converter()
	}
	t, err := lm.LoadConversionTable(data.ConversionTablePath)
	if err != nil {
		logger.Warn("conversion table unavailable, using bundled table", "path", data.ConversionTablePath, "error", err)
		return lm.BundledConversionTable().Converter()
	}
	logger.Info("conversion table loaded", "path", data.ConversionTablePath, "entries", t.Len())
	return t.Converter()
}

// Settings returns the controller settings from the config. Invalid input
// settings fall back to the defaults.
func (e *Env) Settings() ime.Settings {
	s, err := e.Config.InputSettings()
	if err != nil {
		e.Logger.Warn("invalid input settings, using defaults", "error", err)
		return ime.DefaultSettings()
	}
	return s
}

// DB returns the SQLite store, or nil when phrases live in a JSON file.
func (e *Env) DB() *store.Store { return e.db }

// PersistPhrases saves the user phrase table every time the model changes.
func (e *Env) PersistPhrases() {
	e.Model.SetOnPhraseChange(func(phrases map[string][]string) {
		if err := e.Store.Save(phrases); err != nil {
			e.Logger.Error("save user phrases failed", "error", err)
			return
		}
		e.Metrics.SetUserPhraseTable(phrases)
		e.Logger.Debug("user phrases saved", "readings", len(phrases))
	})
}

// WatchPhrases calls onChange with the reloaded table when another process
// edits the JSON phrase file. It does nothing for the SQLite store or when
// watching is disabled.
func (e *Env) WatchPhrases(ctx context.Context, onChange func(map[string][]string)) error {
	if e.phraseFile == nil || !e.Config.Data.WatchUserPhrases {
		return nil
	}
	debounce := time.Duration(e.Config.Data.ReloadDebounceMs) * time.Millisecond
	return e.phraseFile.Watch(ctx, debounce, func(phrases map[string][]string) {
		e.Metrics.PhraseReloads.Inc()
		e.Metrics.SetUserPhraseTable(phrases)
		e.Crash.Recover(map[string]string{"callback": "phrase reload"}, func() {
			onChange(phrases)
		})
	})
}

// Close releases the store and the log file.
func (e *Env) Close() error {
	var firstErr error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			firstErr = err
		}
	}
	if err := e.Logger.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
