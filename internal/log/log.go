// Package log provides centralized debug logging for the formatter and CLI.
//
// Logging is disabled until an output is set. When the PUGFMT_DEBUG
// environment variable names a file, the CLI opens it with [Open].
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var (
	out io.Writer
	mu  sync.Mutex
)

// SetOutput sets the log output. Pass nil to disable logging.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Open appends log output to the file at path, creating its directory.
// The returned closer restores the disabled state.
func Open(path string) (io.Closer, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open debug log: %w", err)
	}
	SetOutput(f)
	return closerFunc(func() error {
		SetOutput(nil)
		return f.Close()
	}), nil
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

// Enabled returns true if logging is enabled.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return out != nil
}

// Debug writes an unprefixed log message if logging is enabled.
func Debug(format string, args ...any) {
	write("", format, args...)
}

// Format writes a format-prefixed log message.
func Format(format string, args ...any) {
	write("[format] ", format, args...)
}

// Deps writes a dependency-registry-prefixed log message.
func Deps(format string, args ...any) {
	write("[deps] ", format, args...)
}

// Mixin writes a mixin-prefixed log message.
func Mixin(format string, args ...any) {
	write("[mixin] ", format, args...)
}

// CLI writes a cli-prefixed log message.
func CLI(format string, args ...any) {
	write("[cli] ", format, args...)
}

func write(prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if out != nil {
		fmt.Fprintf(out, prefix+format+"\n", args...)
	}
}
