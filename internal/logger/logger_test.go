package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildJSONHonoursLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	log, err := build(true, false, []string{path})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	log.Named("finn").Debug("hidden")
	log.Named("finn").Info("listings found")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single info line, got %d: %q", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if entry["level"] != "info" || entry["msg"] != "listings found" || entry["component"] != "finn" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestBuildConsoleDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	log, err := build(false, true, []string{path})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	log.Debug("prompt built")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "DEBUG") || !strings.Contains(string(data), "prompt built") {
		t.Fatalf("expected a console debug line, got %q", data)
	}
}
