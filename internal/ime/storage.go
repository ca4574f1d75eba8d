package ime

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mcbopomofo/internal/schemavalidation"
)

// PhraseStore persists the user phrase table.
type PhraseStore interface {
	Load() (map[string][]string, error)
	Save(phrases map[string][]string) error
}

// PhraseFile stores the user phrase table as one JSON object mapping reading
// keys to phrase lists.
type PhraseFile struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger

	// seen is the digest of the content last loaded or saved through this
	// PhraseFile. Watch skips file events that leave it unchanged.
	seen [sha256.Size]byte
}

// NewPhraseFile returns the phrase file at path. If path is empty the
// platform default location is used.
func NewPhraseFile(path string) (*PhraseFile, error) {
	if path == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "user-phrases.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return &PhraseFile{path: path, logger: slog.Default()}, nil
}

// DefaultDataDir returns the platform-specific data directory.
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "McBopomofo"), nil

	case "linux":
		// Follow XDG Base Directory Specification
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, "mcbopomofo"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "mcbopomofo"), nil

	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			return "", errors.New("LOCALAPPDATA not set")
		}
		return filepath.Join(localAppData, "McBopomofo"), nil

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".mcbopomofo"), nil
	}
}

// SetLogger sets the logger used by Watch.
func (f *PhraseFile) SetLogger(logger *slog.Logger) {
	if logger != nil {
		f.logger = logger
	}
}

// Path returns the file location.
func (f *PhraseFile) Path() string { return f.path }

// Load reads the table. A missing file is an empty table.
func (f *PhraseFile) Load() (map[string][]string, error) {
	phrases, _, err := f.load()
	return phrases, err
}

// load reads the table and reports whether its content differs from what
// this PhraseFile last loaded or saved.
func (f *PhraseFile) load() (map[string][]string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	missing := os.IsNotExist(err)
	if err != nil && !missing {
		return nil, false, err
	}
	phrases := map[string][]string{}
	if !missing {
		if phrases, err = DecodePhrases(data); err != nil {
			return nil, false, err
		}
	}
	sum := sha256.Sum256(data)
	changed := sum != f.seen
	f.seen = sum
	return phrases, changed, nil
}

// DecodePhrases parses and validates an encoded user phrase table.
func DecodePhrases(data []byte) (map[string][]string, error) {
	if err := schemavalidation.ValidateUserPhrases(data); err != nil {
		return nil, fmt.Errorf("invalid user phrase file: %w", err)
	}
	var phrases map[string][]string
	if err := json.Unmarshal(data, &phrases); err != nil {
		return nil, err
	}
	if phrases == nil {
		phrases = map[string][]string{}
	}
	return phrases, nil
}

// Save writes the table atomically while holding an advisory lock, so two
// processes sharing the file do not interleave writes.
func (f *PhraseFile) Save(phrases map[string][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if phrases == nil {
		phrases = map[string][]string{}
	}
	data, err := json.MarshalIndent(phrases, "", "  ")
	if err != nil {
		return err
	}

	unlock, err := lockFile(f.path + ".lock")
	if err != nil {
		return fmt.Errorf("lock user phrase file: %w", err)
	}
	defer unlock()

	// Write atomically using temp file + rename
	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		return err
	}
	f.seen = sha256.Sum256(data)
	return nil
}

// Watch calls onChange with the reloaded table whenever the file changes,
// until ctx is done. Bursts of events within debounce are coalesced. Events
// caused by this PhraseFile's own Save, or that leave the content as last
// seen, do not call onChange.
func (f *PhraseFile) Watch(ctx context.Context, debounce time.Duration, onChange func(map[string][]string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: atomic saves replace the file.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(f.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				phrases, changed, err := f.load()
				if err != nil {
					f.logger.Warn("reload user phrases failed", "path", f.path, "error", err)
					continue
				}
				if !changed {
					f.logger.Debug("user phrase file unchanged", "path", f.path)
					continue
				}
				f.logger.Info("user phrases reloaded", "path", f.path, "keys", len(phrases))
				onChange(phrases)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("user phrase watcher error", "error", err)
			}
		}
	}()
	return nil
}
