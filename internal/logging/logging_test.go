package logging

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"ERROR", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if result := LevelString(test.level); result != test.expected {
				t.Errorf("expected %q, got %q", test.expected, result)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("expected default level Info, got %v", cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("expected default format Text, got %v", cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected default output stderr, got %s", cfg.Output)
	}
	if !cfg.RedactTyping {
		t.Error("typing redaction should default on")
	}
	if !strings.Contains(cfg.FilePath, "mcbopomofo") {
		t.Errorf("default log path should contain mcbopomofo: %s", cfg.FilePath)
	}
}

func TestShouldRedact(t *testing.T) {
	tests := []struct {
		key      string
		typing   bool
		expected bool
	}{
		{"password", false, true},
		{"PASSWORD", false, true},
		{"auth_token", false, true},
		{"credential", false, true},
		{"reading", true, true},
		{"reading_key", true, true},
		{"phrase", true, true},
		{"commit_text", true, true},
		{"candidate", true, true},
		{"reading", false, false},
		{"phrase", false, false},
		{"session", true, false},
		{"keys", true, false},
		{"state", true, false},
		{"path", true, false},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			if result := shouldRedact(test.key, test.typing); result != test.expected {
				t.Errorf("shouldRedact(%q, %v) = %v, expected %v", test.key, test.typing, result, test.expected)
			}
		})
	}
}

func TestJSONFormatRedactsTyping(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(&Config{
		Level:        LevelDebug,
		Format:       FormatJSON,
		Writer:       &buf,
		RedactTyping: true,
		Component:    "test",
	})
	if err != nil {
		t.Fatalf("failed to create JSON logger: %v", err)
	}
	defer logger.Close()

	logger.Debug("unknown reading discarded", "session", "s1", "reading", "ㄋㄧˇ")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if record["reading"] != Redacted {
		t.Errorf("reading = %v, want redacted", record["reading"])
	}
	if record["session"] != "s1" {
		t.Errorf("session = %v", record["session"])
	}
	if record["component"] != "test" {
		t.Errorf("component = %v", record["component"])
	}
	if record["msg"] != "unknown reading discarded" {
		t.Errorf("msg = %v", record["msg"])
	}
}

func TestTextFormatKeepsTypingWhenAllowed(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(&Config{Level: LevelInfo, Format: FormatText, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("phrase added", "phrase", "你好")
	logger.Debug("dropped")

	out := buf.String()
	if !strings.Contains(out, "phrase=你好") {
		t.Errorf("phrase missing from %q", out)
	}
	if strings.Contains(out, "dropped") {
		t.Error("debug record written at info level")
	}
}

func TestLoggerWithComponentAndProcess(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(&Config{Format: FormatJSON, Writer: &buf, Component: "root"})
	if err != nil {
		t.Fatal(err)
	}

	logger.WithComponent("config").WithProcess().Info("reloaded")

	line := buf.String()
	if !strings.Contains(line, `"component":"config"`) {
		t.Errorf("component missing: %s", line)
	}
	if !strings.Contains(line, `"process_id":"`) {
		t.Errorf("process id missing: %s", line)
	}
}

func TestLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ime.log")
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = path

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	logger.Info("engine enabled")
	if err := logger.Sync(); err != nil {
		t.Errorf("sync failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "engine enabled") {
		t.Errorf("log file content: %q", data)
	}
}

func TestFileRotator(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	rotator, err := NewFileRotator(&Config{FilePath: logPath, MaxSize: 1, MaxAge: 7, MaxBackups: 3})
	if err != nil {
		t.Fatalf("failed to create rotator: %v", err)
	}
	defer rotator.Close()

	testData := []byte("test log line\n")
	n, err := rotator.Write(testData)
	if err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if n != len(testData) {
		t.Errorf("expected to write %d bytes, wrote %d", len(testData), n)
	}

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
	if err := rotator.Sync(); err != nil {
		t.Errorf("sync failed: %v", err)
	}
}

func TestFileRotatorRejectsEmptyPath(t *testing.T) {
	if _, err := NewFileRotator(&Config{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestFileRotatorRotatesBySize(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	rotator, err := NewFileRotator(&Config{FilePath: logPath, MaxSize: 1, MaxBackups: 2})
	if err != nil {
		t.Fatal(err)
	}

	line := bytes.Repeat([]byte("x"), 400*1024)
	for i := 0; i < 8; i++ {
		if _, err := rotator.Write(line); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		// Distinct rotation timestamps.
		time.Sleep(2 * time.Millisecond)
	}
	if err := rotator.Close(); err != nil {
		t.Fatal(err)
	}

	files, err := rotator.GetLogFiles()
	if err != nil {
		t.Fatalf("failed to get log files: %v", err)
	}
	if files[0] != logPath {
		t.Errorf("first file = %s, want the live log", files[0])
	}
	if rotated := len(files) - 1; rotated != 2 {
		t.Errorf("rotated files = %d, want MaxBackups=2: %v", rotated, files)
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() > 1024*1024 {
		t.Errorf("live log grew past the limit: %d", info.Size())
	}
}

func TestFileRotatorRotatesDaily(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	rotator, err := NewFileRotator(&Config{FilePath: logPath, Compress: true})
	if err != nil {
		t.Fatal(err)
	}
	day := time.Date(2024, 3, 1, 23, 59, 0, 0, time.Local)
	rotator.now = func() time.Time { return day }
	rotator.openedAt = day

	rotator.Write([]byte("before midnight\n"))
	day = day.Add(2 * time.Minute)
	rotator.Write([]byte("after midnight\n"))
	if err := rotator.Close(); err != nil {
		t.Fatal(err)
	}

	files, _ := rotator.GetLogFiles()
	if len(files) != 2 {
		t.Fatalf("files = %v, want live log and one rotated", files)
	}
	if !strings.HasSuffix(files[1], ".gz") {
		t.Fatalf("rotated file not compressed: %s", files[1])
	}

	f, err := os.Open(files[1])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "before midnight\n" {
		t.Errorf("rotated content = %q", data)
	}

	live, _ := os.ReadFile(logPath)
	if string(live) != "after midnight\n" {
		t.Errorf("live content = %q", live)
	}
}

func TestCrashHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&Config{Format: FormatJSON, Writer: &buf})

	var seen []CrashReport
	handler := NewCrashHandler(&CrashHandlerConfig{
		CrashDir:  t.TempDir(),
		Version:   "1.0.0",
		Component: "test",
		Logger:    logger,
		OnCrash:   func(r CrashReport) { seen = append(seen, r) },
	})

	handler.HandlePanic("test panic value", map[string]string{"method": "ProcessKeyEvent"})

	reports, err := handler.GetCrashReports()
	if err != nil {
		t.Fatalf("failed to get crash reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 crash report, got %d", len(reports))
	}

	report := reports[0]
	if report.Panic != "test panic value" {
		t.Errorf("expected panic value 'test panic value', got %q", report.Panic)
	}
	if report.Version != "1.0.0" || report.Component != "test" {
		t.Errorf("report = %+v", report)
	}
	if report.Context["method"] != "ProcessKeyEvent" {
		t.Errorf("context = %v", report.Context)
	}
	if report.Stack == "" {
		t.Error("stack trace missing")
	}
	if report.Runtime.GoVersion == "" {
		t.Error("runtime info missing")
	}
	if len(seen) != 1 {
		t.Errorf("OnCrash called %d times", len(seen))
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("crash not logged: %s", buf.String())
	}
}

func TestCrashHandlerRecover(t *testing.T) {
	handler := NewCrashHandler(&CrashHandlerConfig{
		CrashDir: t.TempDir(),
		Logger:   &Logger{Logger: Default().Logger},
	})

	if handler.Recover(nil, func() {}) {
		t.Error("Recover reported a panic for a clean call")
	}
	if !handler.Recover(nil, func() { panic("intentional test panic") }) {
		t.Error("Recover did not report the panic")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer handler.RecoverGoroutine("watcher")
		panic("goroutine panic")
	}()
	<-done

	reports, _ := handler.GetCrashReports()
	if len(reports) != 2 {
		t.Fatalf("expected 2 crash reports, got %d", len(reports))
	}
	if reports[1].Context["goroutine"] != "watcher" {
		t.Errorf("goroutine context = %v", reports[1].Context)
	}
}

func TestCrashHandlerCleanupOld(t *testing.T) {
	dir := t.TempDir()
	handler := NewCrashHandler(&CrashHandlerConfig{CrashDir: dir, Logger: &Logger{Logger: Default().Logger}})

	handler.HandlePanic("old", nil)
	reports, _ := handler.GetCrashReports()
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}

	files, _ := filepath.Glob(filepath.Join(dir, "crash-*.json"))
	past := time.Now().Add(-48 * time.Hour)
	for _, f := range files {
		os.Chtimes(f, past, past)
	}

	if err := handler.CleanupOldCrashReports(24 * time.Hour); err != nil {
		t.Errorf("CleanupOldCrashReports failed: %v", err)
	}
	reports, _ = handler.GetCrashReports()
	if len(reports) != 0 {
		t.Errorf("expected old reports removed, got %d", len(reports))
	}
}
