package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Service: "plantsim", Level: "info", Output: &buf})

	log.Info("plan_pass", "planning pass committed", Fields{"run_id": "RUN-1", "orders": 3})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON entry, got %q: %v", buf.String(), err)
	}
	for key, expected := range map[string]any{
		"service": "plantsim",
		"action":  "plan_pass",
		"message": "planning pass committed",
		"level":   "INFO",
		"run_id":  "RUN-1",
	} {
		if entry[key] != expected {
			t.Errorf("Expected %s=%v, got %v", key, expected, entry[key])
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("Expected timestamp field")
	}
}

func TestLogger_ErrorCarriesMessage(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Service: "plantsim", Output: &buf})

	log.Error("journal_commit", errors.New("disk full"), nil)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON entry: %v", err)
	}
	errField, ok := entry["error"].(map[string]any)
	if !ok || errField["msg"] != "disk full" {
		t.Errorf("Expected error.msg 'disk full', got %v", entry["error"])
	}
}

func TestLogger_FieldsKeepTheirKeys(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Service: "plantsim", Output: &buf})

	log.Info("tick", "tick done", Fields{"time": "06:00"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON entry: %v", err)
	}
	if entry["time"] != "06:00" {
		t.Errorf("Expected time field '06:00', got %v", entry["time"])
	}
	if entry["message"] != "tick done" {
		t.Errorf("Expected message 'tick done', got %v", entry["message"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Errorf("Expected a timestamp, got %v", entry)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Service: "plantsim", Level: "warn", Output: &buf})

	log.Debug("tick", "debug", nil)
	log.Info("tick", "info", nil)
	if buf.Len() != 0 {
		t.Errorf("Expected debug and info to be filtered, got %q", buf.String())
	}

	log.Warn("tick", "warn", nil)
	if buf.Len() == 0 {
		t.Error("Expected warn entry to be written")
	}
}

func TestParseLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, expected := range testCases {
		if got := ParseLevel(input); got != expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", input, got, expected)
		}
	}
}
