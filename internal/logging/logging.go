// Package logging routes the standard logger to stderr and an optional log
// file, and provides leveled helpers on top of it.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

var (
	mu      sync.Mutex
	logFile *os.File
	debug   bool
	console io.Writer = os.Stderr
)

// Init directs log output to stderr and, when logPath is set, appends to that
// file as well. Calling Init again replaces the previous destination.
func Init(logPath string, debugEnabled bool) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	debug = debugEnabled

	writers := []io.Writer{console}
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetFlags(log.LstdFlags)
	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// SetConsole changes the console writer used by the next Init. The TUI uses
// it to keep log lines off the alternate screen.
func SetConsole(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	console = w
}

// Close flushes and closes the log file and restores stderr output.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	log.SetOutput(os.Stderr)
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// DebugEnabled reports whether Debugf lines are emitted.
func DebugEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return debug
}

func Infof(format string, args ...any) { emit("INFO", format, args...) }

func Warnf(format string, args ...any) { emit("WARN", format, args...) }

func Errorf(format string, args ...any) { emit("ERROR", format, args...) }

func Debugf(format string, args ...any) {
	if !DebugEnabled() {
		return
	}
	emit("DEBUG", format, args...)
}

func emit(level, format string, args ...any) {
	log.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}
