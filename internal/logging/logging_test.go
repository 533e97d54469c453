package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOpenWritesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "taskmate.log")
	log, closeFn, err := Open(p, "warn")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	log.Info("hidden")
	log.Warn("login failed", "user", "gulshan")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(b)
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, "user=gulshan") {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestOpenEmptyPathDiscards(t *testing.T) {
	log, closeFn, err := Open("", "debug")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	log.Info("nothing")
	if err := closeFn(); err != nil {
		t.Errorf("close: %v", err)
	}
}
