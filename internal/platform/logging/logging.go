// Package logging provides the process-wide logger used across the
// coordination core. It writes tagged lines to any number of outputs; the
// interactive CLI attaches an in-memory buffer so the terminal UI can
// render the tail of the log.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type level string

const (
	levelDebug level = "DEBUG"
	levelInfo  level = "INFO"
	levelWarn  level = "WARN"
	levelError level = "ERROR"
)

var (
	mu      sync.Mutex
	outputs = []io.Writer{os.Stderr}
	debug   bool
	clock   = time.Now
)

// SetOutputs replaces the output writers. Passing none silences the log.
func SetOutputs(ws ...io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	outputs = ws
}

// AddOutput attaches an additional output writer.
func AddOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	outputs = append(outputs, w)
}

// SetDebug toggles emission of debug-level lines.
func SetDebug(on bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = on
}

func emit(lv level, tag, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if lv == levelDebug && !debug {
		return
	}
	line := fmt.Sprintf("%s %-5s [%s] %s\n",
		clock().Format("15:04:05.000"), lv, tag, fmt.Sprintf(format, args...))
	for _, w := range outputs {
		io.WriteString(w, line)
	}
}

// Debugf logs a debug-level line under the given tag.
func Debugf(tag, format string, args ...any) { emit(levelDebug, tag, format, args...) }

// Infof logs an info-level line under the given tag.
func Infof(tag, format string, args ...any) { emit(levelInfo, tag, format, args...) }

// Warnf logs a warning-level line under the given tag.
func Warnf(tag, format string, args ...any) { emit(levelWarn, tag, format, args...) }

// Errorf logs an error-level line under the given tag.
func Errorf(tag, format string, args ...any) { emit(levelError, tag, format, args...) }

// Buffer is a bounded in-memory log sink keeping the most recent lines.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	limit int
}

// NewBuffer creates a buffer keeping at most limit lines.
func NewBuffer(limit int) *Buffer {
	return &Buffer{limit: limit}
}

// Write implements io.Writer; each write is treated as one line.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	line := string(p)
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	b.lines = append(b.lines, line)
	if len(b.lines) > b.limit {
		b.lines = b.lines[len(b.lines)-b.limit:]
	}
	return len(p), nil
}

// Tail returns up to n most recent lines, oldest first.
func (b *Buffer) Tail(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > len(b.lines) {
		n = len(b.lines)
	}
	out := make([]string, n)
	copy(out, b.lines[len(b.lines)-n:])
	return out
}
