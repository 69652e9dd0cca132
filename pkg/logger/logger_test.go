package logger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Named("loader").With(String("symbol", "BTCUSDT")).Info("hello",
		Int("files", 3), Float("loss", 0.5), Error(errors.New("boom")))
	l.Debug("hidden")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the info entry, got %d lines", len(lines))
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	want := map[string]any{"component": "loader", "symbol": "BTCUSDT", "files": 3.0, "loss": 0.5, "error": "boom", "message": "hello"}
	for k, v := range want {
		if entry[k] != v {
			t.Fatalf("%s: expected %v, got %v", k, v, entry[k])
		}
	}
}

func TestFieldValue(t *testing.T) {
	if v := Error(nil).Value(); v != nil {
		t.Fatalf("expected nil error value, got %v", v)
	}
	if v := Int("n", 2).Value(); v != int64(2) {
		t.Fatalf("unexpected int value %v", v)
	}
}
