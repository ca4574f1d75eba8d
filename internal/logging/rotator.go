package logging

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// backupStamp sorts lexically in time order.
const backupStamp = "20060102-150405.000"

// FileRotator is an io.Writer over a log file. The file is moved aside when
// a write would take it past MaxSize or when the local date changes.
// Backups are named <name>-<stamp><ext>, gzipped when Compress is set, and
// pruned to MaxBackups files no older than MaxAge days.
type FileRotator struct {
	path       string
	maxBytes   int64
	maxAge     int
	maxBackups int
	compress   bool

	mu       sync.Mutex
	file     *os.File
	size     int64
	openedAt time.Time
	now      func() time.Time

	// pending tracks background compression and pruning.
	pending sync.WaitGroup
}

// NewFileRotator opens cfg.FilePath for appending, creating its directory.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	if cfg.FilePath == "" {
		return nil, errors.New("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	r := &FileRotator{
		path:       cfg.FilePath,
		maxBytes:   cfg.MaxSize << 20,
		maxAge:     cfg.MaxAge,
		maxBackups: cfg.MaxBackups,
		compress:   cfg.Compress,
		now:        time.Now,
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	r.file, r.size, r.openedAt = f, info.Size(), r.now()
	return nil
}

// Write appends p, rotating first when needed. Writes after Close reopen
// the file.
func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	if r.due(int64(len(p))) {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// due reports whether n more bytes belong in a new file. An empty file is
// never rotated.
func (r *FileRotator) due(n int64) bool {
	switch {
	case r.size == 0:
		return false
	case r.maxBytes > 0 && r.size+n > r.maxBytes:
		return true
	}
	return r.openedAt.Format(time.DateOnly) != r.now().Format(time.DateOnly)
}

// Rotate moves the current file aside now.
func (r *FileRotator) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotate()
}

// rotate is called with r.mu held.
func (r *FileRotator) rotate() error {
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return fmt.Errorf("close current log: %w", err)
		}
		r.file = nil
	}

	stem, ext := r.split()
	backup := stem + "-" + r.now().Format(backupStamp) + ext
	if err := os.Rename(r.path, backup); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("rename log file: %w", err)
	}
	if err := r.open(); err != nil {
		return err
	}

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		if r.compress {
			gzipFile(backup)
		}
		r.prune()
	}()
	return nil
}

// split returns the path without its extension, and the extension.
func (r *FileRotator) split() (stem, ext string) {
	ext = filepath.Ext(r.path)
	return strings.TrimSuffix(r.path, ext), ext
}

// backups lists the rotated files, oldest first.
func (r *FileRotator) backups() ([]string, error) {
	stem, ext := r.split()
	files, err := filepath.Glob(stem + "-*" + ext + "*")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (r *FileRotator) prune() {
	files, err := r.backups()
	if err != nil {
		return
	}
	if r.maxBackups > 0 && len(files) > r.maxBackups {
		for _, f := range files[:len(files)-r.maxBackups] {
			os.Remove(f)
		}
		files = files[len(files)-r.maxBackups:]
	}
	if r.maxAge > 0 {
		cutoff := r.now().AddDate(0, 0, -r.maxAge)
		for _, f := range files {
			if info, err := os.Stat(f); err == nil && info.ModTime().Before(cutoff) {
				os.Remove(f)
			}
		}
	}
}

// gzipFile replaces path with path.gz. On failure the original stays.
func gzipFile(path string) {
	in, err := os.Open(path)
	if err != nil {
		return
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(path)

	_, err = io.Copy(zw, in)
	err = errors.Join(err, zw.Close(), out.Close())
	if err != nil {
		os.Remove(path + ".gz")
		return
	}
	os.Remove(path)
}

// Sync flushes the current file.
func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}

// Close waits for background work and closes the current file.
func (r *FileRotator) Close() error {
	r.pending.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// GetLogFiles returns the live log followed by the backups, oldest first.
func (r *FileRotator) GetLogFiles() ([]string, error) {
	backups, err := r.backups()
	return append([]string{r.path}, backups...), err
}
