package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Logger writes timestamped diagnostic lines about the runner itself, as
// opposed to the job lifecycle events the eventlog sinks carry.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	clock  func() time.Time
}

// New writes to w. A nil writer discards everything.
func New(w io.Writer) *Logger {
	return &Logger{w: w, clock: time.Now}
}

// Open creates (or reuses) a log file at path.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{w: f, closer: f, clock: time.Now}, nil
}

// Close releases the file handle, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Printf writes a single timestamped line.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.w == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "[%s] %s\n", l.clock().Format(time.RFC3339), line)
}
