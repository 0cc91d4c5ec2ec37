package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"handoff/internal/config"
	"handoff/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.LogDir = t.TempDir()
	cfg.Logging.Level = "info"

	var stderr bytes.Buffer
	logger, err := logging.NewFromConfig(&cfg, &stderr)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon probe", logging.String(logging.FieldURL, "http://localhost:3000"))

	content, err := os.ReadFile(filepath.Join(cfg.Logging.LogDir, "handoff.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon probe") {
		t.Fatalf("expected message in log file, got %q", content)
	}
	if !strings.Contains(stderr.String(), "url=http://localhost:3000") {
		t.Fatalf("expected url attr on stderr, got %q", stderr.String())
	}
}

func TestConsoleLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "WARN shown") {
		t.Fatalf("expected warn line, got %q", out)
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no caller information above debug, got %q", out)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("with caller")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller in debug output, got %q", buf.String())
	}
}

func TestComponentLoggerPrefixesMessage(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger := logging.NewComponentLogger(base, "ipc")
	logger.Info("connected", logging.String("note", "two words"))

	out := buf.String()
	if !strings.Contains(out, "INFO ipc: connected") {
		t.Fatalf("expected component prefix, got %q", out)
	}
	if !strings.Contains(out, `note="two words"`) {
		t.Fatalf("expected quoted value, got %q", out)
	}
}

func TestJSONLoggerCarriesExchangeFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithExchange(context.Background(), "req-1", "STOP")
	logging.WithContext(ctx, base).Info("emitted")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record["request_id"] != "req-1" || record["event"] != "STOP" {
		t.Fatalf("unexpected exchange fields: %#v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %#v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "pid check failed", "pid_check_failed")
	out := buf.String()
	for _, fragment := range []string{"event_type=pid_check_failed", "error_hint=", "impact="} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in %q", fragment, out)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should never be enabled")
	}
}
