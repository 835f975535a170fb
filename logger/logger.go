// Package logger provides the diagnostic logging interface lspconn uses
// for its own internal warnings (pump backpressure, downgraded server
// requests, spurious responses, file-watcher errors). Codec errors, pump
// termination and spawn failures are returned as errors, not logged. Callers embedding lspconn in a larger application supply their
// own Logger; the zero value behavior (NullLogger) keeps the library
// silent unless a caller opts in.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level is a logging severity.
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

// Entry is a single log line kept in memory. Fields carries the structured
// context (request id, method) a scoped Logger attached, if any — nil for
// a plain Error/Info/Debug call made directly against a FileLogger.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Message   string
	Fields    map[string]any
}

// Logger is the interface lspconn depends on for diagnostic output.
type Logger interface {
	Error(format string, args ...any)
	Info(format string, args ...any)
	Debug(format string, args ...any)

	// WithFields returns a Logger that tags every message it logs with
	// fields, merged on top of any fields already attached by an earlier
	// WithFields call. This is how a warning carries its context — the
	// correlator's spurious-response warning its request id, the pump's
	// warnings the component that raised them — instead of burying it in a
	// format string the caller has to parse back out.
	WithFields(fields map[string]any) Logger
}

// FileLogger writes log lines at or below fileLevel to a file while
// keeping a bounded ring buffer of every entry regardless of level, so a
// caller can retrieve recent debug-level activity after the fact without
// having paid to write it to disk.
type FileLogger struct {
	mu        sync.Mutex
	file      *os.File
	fileLevel Level
	maxSize   int64
	filePath  string

	memory    []Entry
	maxMemory int
}

// NewFileLogger opens (creating if needed) a log file at path, deleting it
// first if it has grown past 1MB, and returns a FileLogger that writes
// entries at or below fileLevel to it.
func NewFileLogger(path string, fileLevel Level) (*FileLogger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("logger: create log directory: %w", err)
		}
	}

	const maxSize = 1024 * 1024
	if info, err := os.Stat(path); err == nil && info.Size() > maxSize {
		os.Remove(path)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}

	return &FileLogger{
		file:      file,
		fileLevel: fileLevel,
		maxSize:   maxSize,
		filePath:  path,
		memory:    make([]Entry, 0, 4096),
		maxMemory: 4096,
	}, nil
}

func (l *FileLogger) log(level Level, fields map[string]any, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{Timestamp: time.Now(), Level: level, Message: fmt.Sprintf(format, args...), Fields: fields}

	if len(l.memory) >= l.maxMemory {
		l.memory = l.memory[1:]
	}
	l.memory = append(l.memory, entry)

	if level <= l.fileLevel {
		fmt.Fprintf(l.file, "[%s] [%s] %s%s\n", entry.Timestamp.Format("2006-01-02 15:04:05.000"), levelName(level), formatFields(fields), entry.Message)
	}
}

func (l *FileLogger) Error(format string, args ...any) { l.log(LevelError, nil, format, args...) }
func (l *FileLogger) Info(format string, args ...any)  { l.log(LevelInfo, nil, format, args...) }
func (l *FileLogger) Debug(format string, args ...any) { l.log(LevelDebug, nil, format, args...) }

// WithFields returns a Logger that tags every message with fields.
func (l *FileLogger) WithFields(fields map[string]any) Logger {
	return &scopedLogger{base: l, fields: fields}
}

// scopedLogger is what WithFields returns: a Logger that forwards to the
// FileLogger it was derived from, merging its fixed fields into every
// entry. Chained WithFields calls accumulate fields rather than replacing
// them, so a caller can attach "method" once at dial time and "id" again
// per call without losing the first.
type scopedLogger struct {
	base   *FileLogger
	fields map[string]any
}

func (s *scopedLogger) Error(format string, args ...any) { s.base.log(LevelError, s.fields, format, args...) }
func (s *scopedLogger) Info(format string, args ...any)  { s.base.log(LevelInfo, s.fields, format, args...) }
func (s *scopedLogger) Debug(format string, args ...any) { s.base.log(LevelDebug, s.fields, format, args...) }

func (s *scopedLogger) WithFields(fields map[string]any) Logger {
	merged := make(map[string]any, len(s.fields)+len(fields))
	for k, v := range s.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &scopedLogger{base: s.base, fields: merged}
}

// formatFields renders fields as a sorted "key=value " prefix, or "" when
// empty, so plain (unscoped) log lines keep their original format.
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v ", k, fields[k])
	}
	return b.String()
}

// Close closes the underlying file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Recent returns in-memory entries at or below minLevel, oldest first,
// joined into a single string.
func (l *FileLogger) Recent(minLevel Level) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lines []string
	for _, entry := range l.memory {
		if entry.Level <= minLevel {
			lines = append(lines, fmt.Sprintf("[%s] [%s] %s%s", entry.Timestamp.Format("2006-01-02 15:04:05.000"), levelName(entry.Level), formatFields(entry.Fields), entry.Message))
		}
	}
	return strings.Join(lines, "\n")
}

func levelName(l Level) string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelDebug:
		return "DEBUG"
	default:
		return "INFO"
	}
}

// NullLogger discards everything. It is the default Logger for a Client
// that isn't given one explicitly.
type NullLogger struct{}

func (NullLogger) Error(string, ...any)               {}
func (NullLogger) Info(string, ...any)                {}
func (NullLogger) Debug(string, ...any)               {}
func (NullLogger) WithFields(map[string]any) Logger   { return NullLogger{} }
