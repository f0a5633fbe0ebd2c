package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToFileAndConsole(t *testing.T) {
	var console bytes.Buffer
	SetConsole(&console)
	t.Cleanup(func() { SetConsole(os.Stderr) })

	logPath := filepath.Join(t.TempDir(), "logs", "wikiqa.log")
	if err := Init(logPath, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Infof("built %d chunks", 3)
	Warnf("checkpoint %s", "corrupt")
	Debugf("hidden")
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "[INFO] built 3 chunks") {
		t.Fatalf("expected info line in log file, got %q", out)
	}
	if !strings.Contains(out, "[WARN] checkpoint corrupt") {
		t.Fatalf("expected warn line in log file, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be suppressed, got %q", out)
	}
	if !strings.Contains(console.String(), "[INFO] built 3 chunks") {
		t.Fatalf("expected console copy, got %q", console.String())
	}
}

func TestDebugEnabled(t *testing.T) {
	var console bytes.Buffer
	SetConsole(&console)
	t.Cleanup(func() { SetConsole(os.Stderr) })

	if err := Init("", true); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	Debugf("visible %d", 1)
	if !strings.Contains(console.String(), "[DEBUG] visible 1") {
		t.Fatalf("expected debug line, got %q", console.String())
	}
}
