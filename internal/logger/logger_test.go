// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// logger_test.go: logger initialisation and level tests.

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInitJSONAndSetLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := Init(Config{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("hidden")
	log.Info("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["msg"] != "shown" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %v", entry)
	}

	if err := SetLevel("debug"); err != nil {
		t.Fatal(err)
	}
	if Level() != "debug" {
		t.Fatalf("level %s", Level())
	}
	Zap().Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatal("debug entry missing after SetLevel")
	}
}

func TestRejectsUnknownLevel(t *testing.T) {
	if _, err := Init(Config{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error")
	}
	if err := SetLevel("loud"); err == nil {
		t.Fatal("expected error")
	}
}
