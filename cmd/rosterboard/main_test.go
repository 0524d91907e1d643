package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenLogWritesWarningsAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.log")
	log, closeLog, err := openLog(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}

	log.Info("poll: ok")
	log.Warn("poll: fetch failed", "program", "daycare")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := closeLog(); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("expected file to be closed, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "poll: fetch failed") || strings.Contains(string(data), "poll: ok") {
		t.Fatalf("unexpected log contents: %s", data)
	}
}

func TestOpenLogWithoutPath(t *testing.T) {
	log, closeLog, err := openLog("")
	if err != nil || log == nil {
		t.Fatalf("expected nop logger, got %v", err)
	}
	if err := closeLog(); err != nil {
		t.Fatalf("expected no-op close, got %v", err)
	}
}
