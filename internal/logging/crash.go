package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// CrashReport describes a recovered panic. It never carries composing text:
// callers put only method and session names in Context.
type CrashReport struct {
	Time      time.Time         `json:"time"`
	Component string            `json:"component,omitempty"`
	Version   string            `json:"version,omitempty"`
	Panic     string            `json:"panic"`
	Stack     string            `json:"stack"`
	Context   map[string]string `json:"context,omitempty"`
	Runtime   RuntimeInfo       `json:"runtime"`
}

// RuntimeInfo is the Go runtime state at the time of the panic.
type RuntimeInfo struct {
	GoVersion  string `json:"go_version"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	Goroutines int    `json:"goroutines"`
}

// CrashHandlerConfig configures NewCrashHandler.
type CrashHandlerConfig struct {
	// CrashDir receives one JSON file per report. Empty means DefaultCrashDir.
	CrashDir  string
	Version   string
	Component string

	// Logger receives an error record per crash. Nil uses Default().
	Logger *Logger

	// OnCrash runs after the report is recorded.
	OnCrash func(CrashReport)
}

// CrashHandler turns panics in engine callbacks into crash reports so a bad
// key event or reload does not take the input method down with it.
type CrashHandler struct {
	cfg    CrashHandlerConfig
	stderr io.Writer
	mu     sync.Mutex
}

// DefaultCrashDir is the crashes directory next to the default log file.
func DefaultCrashDir() string {
	return filepath.Join(stateDir(), "crashes")
}

// NewCrashHandler returns a handler for cfg. A nil cfg uses the defaults.
func NewCrashHandler(cfg *CrashHandlerConfig) *CrashHandler {
	h := &CrashHandler{stderr: os.Stderr}
	if cfg != nil {
		h.cfg = *cfg
	}
	if h.cfg.CrashDir == "" {
		h.cfg.CrashDir = DefaultCrashDir()
	}
	return h
}

// Recover runs fn and records a panic instead of propagating it. It
// reports whether fn panicked.
func (h *CrashHandler) Recover(context map[string]string, fn func()) (panicked bool) {
	defer func() {
		if v := recover(); v != nil {
			h.HandlePanic(v, context)
			panicked = true
		}
	}()
	fn()
	return false
}

// RecoverGoroutine is deferred first thing in a goroutine named name.
func (h *CrashHandler) RecoverGoroutine(name string) {
	if v := recover(); v != nil {
		h.HandlePanic(v, map[string]string{"goroutine": name})
	}
}

// HandlePanic writes and logs a report for the panic value v.
func (h *CrashHandler) HandlePanic(v any, context map[string]string) CrashReport {
	report := CrashReport{
		Time:      time.Now().UTC(),
		Component: h.cfg.Component,
		Version:   h.cfg.Version,
		Panic:     fmt.Sprint(v),
		Stack:     string(debug.Stack()),
		Context:   context,
		Runtime: RuntimeInfo{
			GoVersion:  runtime.Version(),
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			Goroutines: runtime.NumGoroutine(),
		},
	}

	h.mu.Lock()
	path, err := h.write(report)
	h.mu.Unlock()

	logger := h.cfg.Logger
	if logger == nil {
		logger = Default()
	}
	if err != nil {
		logger.Error("panic recovered, crash report not written", "panic", report.Panic, "error", err)
		fmt.Fprintf(h.stderr, "panic: %s\n%s\n", report.Panic, report.Stack)
	} else {
		logger.Error("panic recovered", "panic", report.Panic, "report", path)
	}

	if h.cfg.OnCrash != nil {
		h.cfg.OnCrash(report)
	}
	return report
}

func (h *CrashHandler) write(report CrashReport) (string, error) {
	if err := os.MkdirAll(h.cfg.CrashDir, 0750); err != nil {
		return "", fmt.Errorf("create crash directory: %w", err)
	}
	component := report.Component
	if component == "" {
		component = "mcbopomofo"
	}
	name := fmt.Sprintf("crash-%s-%s.json", component, report.Time.Format("20060102-150405.000000"))
	path := filepath.Join(h.cfg.CrashDir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	return path, nil
}

func (h *CrashHandler) reportFiles() ([]string, error) {
	return filepath.Glob(filepath.Join(h.cfg.CrashDir, "crash-*.json"))
}

// GetCrashReports returns the readable reports, oldest first.
func (h *CrashHandler) GetCrashReports() ([]CrashReport, error) {
	files, err := h.reportFiles()
	if err != nil {
		return nil, err
	}
	var reports []CrashReport
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		var r CrashReport
		if json.Unmarshal(data, &r) == nil {
			reports = append(reports, r)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Time.Before(reports[j].Time) })
	return reports, nil
}

// CleanupOldCrashReports deletes reports last modified before maxAge ago.
func (h *CrashHandler) CleanupOldCrashReports(maxAge time.Duration) error {
	files, err := h.reportFiles()
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-maxAge)
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && info.ModTime().Before(cutoff) {
			os.Remove(f)
		}
	}
	return nil
}
