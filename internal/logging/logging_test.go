package logging

import (
	"bytes"
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
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		parsed, err := ParseLevel(LevelString(level))
		if err != nil || parsed != level {
			t.Errorf("round trip of %v gave %v, %v", level, parsed, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("expected default level Info, got %v", cfg.Level)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected default output stderr, got %s", cfg.Output)
	}
	if !strings.HasSuffix(cfg.FilePath, filepath.Join("wlchewing", "wlchewing.log")) {
		t.Errorf("unexpected default log path %s", cfg.FilePath)
	}
}

func TestStateDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	if got := StateDir(); got != "/tmp/state/wlchewing" {
		t.Errorf("StateDir() = %s", got)
	}
}

func TestShouldRedact(t *testing.T) {
	tests := []struct {
		key      string
		level    Level
		expected bool
	}{
		{"password", LevelDebug, true},
		{"auth_token", LevelInfo, true},
		{"preedit", LevelInfo, true},
		{"commit_text", LevelWarn, true},
		{"candidates", LevelInfo, true},
		{"preedit", LevelDebug, false},
		{"candidates", LevelDebug, false},
		{"code", LevelInfo, false},
		{"mode", LevelInfo, false},
		{"serial", LevelInfo, false},
	}

	for _, test := range tests {
		t.Run(test.key+"/"+LevelString(test.level), func(t *testing.T) {
			if got := shouldRedact(test.key, test.level); got != test.expected {
				t.Errorf("shouldRedact(%q, %v) = %v, expected %v", test.key, test.level, got, test.expected)
			}
		})
	}
}

func TestJSONFormatWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, &Config{Level: LevelInfo, Format: FormatJSON, Component: "test"})

	logger.WithComponent("wayland").Info("connected", "globals", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if rec["msg"] != "connected" {
		t.Errorf("unexpected msg %v", rec["msg"])
	}
	if rec["component"] != "wayland" {
		t.Errorf("expected component wayland, got %v", rec["component"])
	}
}

func TestRedactionFollowsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, &Config{Level: LevelInfo, Format: FormatText})

	logger.Info("flush", "preedit", "測試")
	if strings.Contains(buf.String(), "測試") {
		t.Errorf("composed text leaked at info level: %s", buf.String())
	}

	buf.Reset()
	logger.SetLevel(LevelDebug)
	logger.Debug("flush", "preedit", "測試")
	if !strings.Contains(buf.String(), "測試") {
		t.Errorf("composed text hidden at debug level: %s", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, &Config{Level: LevelWarn})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}

	logger.SetLevel(LevelInfo)
	child := logger.WithComponent("ime")
	child.Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("derived logger did not follow the new level")
	}
	if logger.Level() != LevelInfo {
		t.Errorf("Level() = %v", logger.Level())
	}
}

func TestLoggerFileOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = filepath.Join(t.TempDir(), "logs", "wlchewing.log")

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	logger.Info("hello")
	if err := logger.Sync(); err != nil {
		t.Errorf("sync failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing record: %s", data)
	}
}

func TestFileRotator(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	rotator, err := NewFileRotator(&Config{FilePath: logPath, MaxSize: 1, MaxBackups: 3})
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
}

func TestFileRotatorRotatesBySize(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	rotator, err := NewFileRotator(&Config{FilePath: logPath, MaxSize: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("failed to create rotator: %v", err)
	}
	tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rotator.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 5; i++ {
		if _, err := rotator.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if err := rotator.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := rotator.Files()
	if err != nil {
		t.Fatalf("failed to list log files: %v", err)
	}
	if len(files) != 3 {
		t.Errorf("expected current file plus 2 backups, got %v", files)
	}
}

func TestFileRotatorCompresses(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	rotator, err := NewFileRotator(&Config{FilePath: logPath, MaxSize: 1, MaxBackups: 5, Compress: true})
	if err != nil {
		t.Fatalf("failed to create rotator: %v", err)
	}
	chunk := bytes.Repeat([]byte("y"), 700*1024)
	rotator.Write(chunk)
	rotator.Write(chunk)
	rotator.Close()

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(logPath), "test-*.log.gz"))
	if len(matches) != 1 {
		t.Errorf("expected one compressed backup, got %v", matches)
	}
}

func newTestCrashHandler(t *testing.T) *CrashHandler {
	t.Helper()
	h := NewCrashHandler(&CrashHandlerConfig{
		CrashDir:  t.TempDir(),
		Version:   "1.0.0",
		Component: "test",
	})
	h.stderr = io.Discard
	return h
}

func TestCrashHandler(t *testing.T) {
	handler := newTestCrashHandler(t)

	handler.HandlePanic("test panic value", map[string]any{"goroutine": "loop"})

	reports, err := handler.CrashReports()
	if err != nil {
		t.Fatalf("failed to get crash reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected one crash report, got %d", len(reports))
	}

	report := reports[0]
	if report.PanicValue != "test panic value" {
		t.Errorf("expected panic value 'test panic value', got %q", report.PanicValue)
	}
	if report.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", report.Version)
	}
	if report.Context["goroutine"] != "loop" {
		t.Errorf("context not recorded: %v", report.Context)
	}
}

func TestCrashHandlerRecover(t *testing.T) {
	handler := newTestCrashHandler(t)

	if !handler.Recover(func() { panic("intentional test panic") }) {
		t.Error("Recover did not report the panic")
	}
	if handler.Recover(func() {}) {
		t.Error("Recover reported a panic for a clean run")
	}

	reports, _ := handler.CrashReports()
	if len(reports) != 1 {
		t.Errorf("expected one report, got %d", len(reports))
	}
}

func TestCrashHandlerGuardRepanics(t *testing.T) {
	handler := newTestCrashHandler(t)

	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("expected re-panic with boom, got %v", r)
		}
		reports, _ := handler.CrashReports()
		if len(reports) != 1 || reports[0].Context["goroutine"] != "pump" {
			t.Errorf("unexpected reports %+v", reports)
		}
	}()

	func() {
		defer handler.Guard("pump")
		panic("boom")
	}()
}

func TestCrashHandlerCleanupOld(t *testing.T) {
	handler := newTestCrashHandler(t)
	handler.HandlePanic("old", nil)

	files, _ := filepath.Glob(filepath.Join(handler.crashDir, "crash-*.json"))
	past := time.Now().Add(-48 * time.Hour)
	for _, f := range files {
		os.Chtimes(f, past, past)
	}

	if err := handler.CleanupOldCrashReports(24 * time.Hour); err != nil {
		t.Errorf("CleanupOldCrashReports failed: %v", err)
	}
	reports, _ := handler.CrashReports()
	if len(reports) != 0 {
		t.Errorf("expected old reports removed, got %d", len(reports))
	}
}
