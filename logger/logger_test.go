package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLoggerWritesAtOrBelowFileLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lspconn.log")
	l, err := NewFileLogger(path, LevelInfo)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer l.Close()

	l.Error("boom: %d", 1)
	l.Info("starting up")
	l.Debug("very chatty: %s", "detail")

	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "boom: 1") {
		t.Error("expected error-level line in file")
	}
	if !strings.Contains(content, "starting up") {
		t.Error("expected info-level line in file")
	}
	if strings.Contains(content, "very chatty") {
		t.Error("debug-level line should not have been written at fileLevel=Info")
	}
}

func TestRecentIncludesEveryLevelRegardlessOfFileLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lspconn.log")
	l, err := NewFileLogger(path, LevelError)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer l.Close()

	l.Debug("debug line")
	l.Info("info line")

	recent := l.Recent(LevelDebug)
	if !strings.Contains(recent, "debug line") {
		t.Error("Recent should include debug entries even though fileLevel is Error")
	}
	if !strings.Contains(recent, "info line") {
		t.Error("Recent should include info entries")
	}
}

func TestRecentFiltersByMinLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lspconn.log")
	l, err := NewFileLogger(path, LevelDebug)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer l.Close()

	l.Error("an error")
	l.Debug("a debug line")

	recent := l.Recent(LevelError)
	if strings.Contains(recent, "a debug line") {
		t.Error("Recent(LevelError) should not include debug entries")
	}
	if !strings.Contains(recent, "an error") {
		t.Error("Recent(LevelError) should include error entries")
	}
}

func TestNullLoggerDiscardsEverything(t *testing.T) {
	var l NullLogger
	// These must not panic and have no observable effect; there is nothing
	// else to assert against a discard-everything logger.
	l.Error("x")
	l.Info("y")
	l.Debug("z")
	l.WithFields(map[string]any{"id": "1"}).Info("w")
}

func TestWithFieldsTagsEntriesAndAccumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lspconn.log")
	l, err := NewFileLogger(path, LevelInfo)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer l.Close()

	scoped := l.WithFields(map[string]any{"method": "textDocument/didOpen"})
	scoped.WithFields(map[string]any{"id": "42"}).Info("dropping response")

	recent := l.Recent(LevelInfo)
	if !strings.Contains(recent, "method=textDocument/didOpen") {
		t.Error("expected the first WithFields call's field in the log line")
	}
	if !strings.Contains(recent, "id=42") {
		t.Error("expected the chained WithFields call's field in the log line")
	}
	if !strings.Contains(recent, "dropping response") {
		t.Error("expected the message itself in the log line")
	}

	// The original scoped logger's fields must be untouched by the chain.
	scoped.Info("unrelated")
	recent = l.Recent(LevelInfo)
	if strings.Contains(recent, "id=42 method=textDocument/didOpen unrelated") {
		t.Error("chaining WithFields must not mutate the logger it was derived from")
	}
}
