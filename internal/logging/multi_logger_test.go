package logging

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

type closeErrLogger struct {
	NoOpLogger
	err error
}

func (c *closeErrLogger) Close() error { return c.err }

func TestMultiLogger_FansOutPerLevel(t *testing.T) {
	var verbose, quiet bytes.Buffer
	multi := NewMultiLogger(
		NewConsoleLogger(ConsoleLoggerConfig{Writer: &verbose, Level: DEBUG}),
		NewConsoleLogger(ConsoleLoggerConfig{Writer: &quiet, Level: WARN}),
	)

	multi.Debug("Skipping excluded entry", F("name", "cache.tmp"))
	multi.Info("Uploaded file", F("fileId", "f1"))
	multi.Warn("Multiple remote entries share a name; using the first listed")
	multi.Error("Folder push failed", F("kind", "RemoteUnavailable"))

	if n := strings.Count(verbose.String(), "\n"); n != 4 {
		t.Errorf("debug logger got %d lines, want 4:\n%s", n, verbose.String())
	}
	if n := strings.Count(quiet.String(), "\n"); n != 2 {
		t.Errorf("warn logger got %d lines, want 2:\n%s", n, quiet.String())
	}
	if !strings.Contains(quiet.String(), "kind=RemoteUnavailable") {
		t.Errorf("fields missing: %s", quiet.String())
	}

	multi.SetLevel(ERROR)
	verbose.Reset()
	multi.Warn("dropped")
	if verbose.Len() != 0 {
		t.Errorf("SetLevel should reach every logger, got %q", verbose.String())
	}
}

func TestMultiLogger_TraceIDReachesEveryLogger(t *testing.T) {
	var a, b bytes.Buffer
	multi := NewMultiLogger(
		NewConsoleLogger(ConsoleLoggerConfig{Writer: &a, Level: INFO}),
		NewConsoleLogger(ConsoleLoggerConfig{Writer: &b, Level: INFO}),
	)

	if got := multi.WithContext(context.Background()); got != Logger(multi) {
		t.Error("WithContext without a trace ID should return the same logger")
	}

	multi.WithContext(ContextWithTraceID(context.Background(), "5f0c9a7e-1111")).Info("Folder pull completed")
	for i, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, "[5f0c9a7e] Folder pull completed") {
			t.Errorf("logger %d missing trace ID: %q", i, out)
		}
	}
}

func TestMultiLogger_ConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drivesync.log")
	var console bytes.Buffer

	logger, err := NewLogger(LogConfig{Level: INFO, OutputFile: path, RedactSensitive: true})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	file, ok := logger.(*FileLogger)
	if !ok {
		t.Fatalf("expected *FileLogger, got %T", logger)
	}
	multi := NewMultiLogger(NewConsoleLogger(ConsoleLoggerConfig{Writer: &console, Level: INFO, RedactSensitive: true}), file)

	multi.Info("Drive shared", F("email", "ops@example.com"), F("token", "access_token=ya29.abc"))
	if err := multi.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readEntries(t, path)
	if len(entries) != 1 || entries[0].Fields["email"] != "ops@example.com" {
		t.Fatalf("file entries = %+v", entries)
	}
	for _, out := range []string{console.String(), entries[0].Fields["token"].(string)} {
		if strings.Contains(out, "ya29.abc") {
			t.Errorf("token leaked: %q", out)
		}
	}
}

func TestMultiLogger_CloseJoinsErrors(t *testing.T) {
	errA := errors.New("flush a")
	errB := errors.New("flush b")
	multi := NewMultiLogger(&closeErrLogger{err: errA}, NewNoOpLogger(), &closeErrLogger{err: errB})

	err := multi.Close()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Close() = %v, want both errors", err)
	}
	if err := NewMultiLogger(NewNoOpLogger()).Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
