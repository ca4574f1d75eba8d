package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// codec reads and writes one config file format.
type codec struct {
	name   string
	decode func([]byte, *Config) error
	encode func(*Config) ([]byte, error)
}

var (
	tomlCodec = codec{
		name: "TOML",
		decode: func(b []byte, c *Config) error {
			_, err := toml.Decode(string(b), c)
			return err
		},
		encode: encodeToTOML,
	}
	jsonCodec = codec{
		name:   "JSON",
		decode: func(b []byte, c *Config) error { return json.Unmarshal(b, c) },
		encode: func(c *Config) ([]byte, error) { return json.MarshalIndent(c, "", "  ") },
	}
	yamlCodec = codec{
		name:   "YAML",
		decode: func(b []byte, c *Config) error { return yaml.Unmarshal(b, c) },
		encode: func(c *Config) ([]byte, error) { return yaml.Marshal(c) },
	}
)

// codecFor picks the codec from the file extension. ok is false for
// extensions it does not recognize.
func codecFor(path string) (codec, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return tomlCodec, true
	case ".json":
		return jsonCodec, true
	case ".yaml", ".yml":
		return yamlCodec, true
	}
	return tomlCodec, false
}

// readConfigFile decodes path over the defaults. A missing file yields the
// defaults. Files without a known extension are tried as TOML, JSON and YAML
// in turn.
func readConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if c, ok := codecFor(path); ok {
		cfg := DefaultConfig()
		if err := c.decode(data, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.name, err)
		}
		return cfg, nil
	}

	for _, c := range []codec{tomlCodec, jsonCodec, yamlCodec} {
		cfg := DefaultConfig()
		if c.decode(data, cfg) == nil {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("parse config %s: not TOML, JSON or YAML", path)
}

// resolve reads path, applies MCBOPOMOFO_* overrides and validates.
func resolve(path string) (*Config, error) {
	cfg, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Loader keeps the current configuration and reloads it when the file
// changes on disk. Reloads that fail to parse or validate are reported on
// Errors and leave the current configuration in place.
type Loader struct {
	path     string
	debounce time.Duration

	mu       sync.RWMutex
	current  *Config
	watchers []func(*Config)

	fsw  *fsnotify.Watcher
	errs chan error
	stop chan struct{}
	once sync.Once
}

// NewLoader returns a loader for path, or for ConfigPath when path is empty.
func NewLoader(path string) *Loader {
	if path == "" {
		path = ConfigPath()
	}
	return &Loader{
		path:     path,
		debounce: 100 * time.Millisecond,
		errs:     make(chan error, 1),
		stop:     make(chan struct{}),
	}
}

// Path returns the watched configuration file.
func (l *Loader) Path() string { return l.path }

// Load reads the file and makes it the current configuration.
func (l *Loader) Load() (*Config, error) {
	cfg, err := resolve(l.path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the current configuration, nil before a successful Load.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers fn to run after every successful reload.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	l.watchers = append(l.watchers, fn)
	l.mu.Unlock()
}

// Errors delivers reload failures. Errors are dropped while one is pending.
func (l *Loader) Errors() <-chan error { return l.errs }

// Watch starts reloading on changes until Close. The parent directory is
// watched because editors save by renaming a temporary file over the target.
func (l *Loader) Watch() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(l.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(l.path), err)
	}
	l.fsw = fsw
	go l.run(fsw)
	return nil
}

func (l *Loader) run(fsw *fsnotify.Watcher) {
	name := filepath.Base(l.path)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-l.stop:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(l.debounce)
		case <-timer.C:
			l.reload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			l.report(err)
		}
	}
}

func (l *Loader) reload() {
	cfg, err := resolve(l.path)
	if err != nil {
		l.report(fmt.Errorf("reload: %w", err))
		return
	}

	l.mu.Lock()
	l.current = cfg
	watchers := slices.Clone(l.watchers)
	l.mu.Unlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

func (l *Loader) report(err error) {
	select {
	case l.errs <- err:
	default:
	}
}

// Close stops watching. It is safe to call more than once.
func (l *Loader) Close() error {
	var err error
	l.once.Do(func() {
		close(l.stop)
		if l.fsw != nil {
			err = l.fsw.Close()
		}
	})
	return err
}

// LoadOrCreate loads path, first writing the defaults there when the file
// does not exist. created reports whether the file was written.
func LoadOrCreate(path string) (cfg *Config, created bool, err error) {
	if path == "" {
		path = ConfigPath()
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if err := SaveConfig(DefaultConfig(), path); err != nil {
			return nil, false, fmt.Errorf("create default config: %w", err)
		}
		created = true
	}
	cfg, err = resolve(path)
	if err != nil {
		return nil, false, err
	}
	return cfg, created, nil
}

// SaveConfig writes cfg in the format named by the path's extension.
// Unknown extensions are written as TOML. The file is readable by the
// owner only.
func SaveConfig(cfg *Config, path string) error {
	c, _ := codecFor(path)
	data, err := c.encode(cfg.Clone())
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
