package logx

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })
	return &buf
}

func withDebug(t *testing.T, enabled bool, domains []string) {
	t.Helper()
	debugMutex.RLock()
	prev := *debugConfig
	debugMutex.RUnlock()

	SetDebugConfig(enabled, false, "")
	SetDebugDomains(domains)
	t.Cleanup(func() {
		debugMutex.Lock()
		*debugConfig = prev
		debugMutex.Unlock()
	})
}

func TestLogFormat(t *testing.T) {
	buf := captureOutput(t)

	NewLogger("retrieval").Info("Test message with %s", "formatting")

	output := buf.String()
	if !strings.Contains(output, "[retrieval]") {
		t.Errorf("Expected component in output, got: %s", output)
	}
	if !strings.Contains(output, "INFO: Test message with formatting") {
		t.Errorf("Expected level and message in output, got: %s", output)
	}
	if !strings.HasPrefix(output, "[") || !strings.Contains(output, "Z]") {
		t.Errorf("Expected ISO timestamp prefix, got: %s", output)
	}
}

func TestLogLevels(t *testing.T) {
	withDebug(t, true, nil)
	buf := captureOutput(t)
	logger := NewLogger("levels")

	tests := []struct {
		logFunc  func(string, ...any)
		expected Level
	}{
		{logger.Debug, LevelDebug},
		{logger.Info, LevelInfo},
		{logger.Warn, LevelWarn},
		{logger.Error, LevelError},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.logFunc("message")
		if !strings.Contains(buf.String(), string(tt.expected)+":") {
			t.Errorf("Expected level %s in output, got: %s", tt.expected, buf.String())
		}
	}
}

func TestDebugSuppressedWhenDisabled(t *testing.T) {
	withDebug(t, false, nil)
	buf := captureOutput(t)

	NewLogger("quiet").Debug("should not appear")
	Debug(context.Background(), "dispatch", "nor this")

	if buf.Len() != 0 {
		t.Errorf("Expected no output with debug disabled, got: %s", buf.String())
	}
}

func TestDebugDomainFiltering(t *testing.T) {
	withDebug(t, true, []string{"retrieval"})
	buf := captureOutput(t)

	ctx := WithComponent(context.Background(), "engine")
	Debug(ctx, "retrieval", "kept %d", 1)
	Debug(ctx, "dispatch", "dropped")

	output := buf.String()
	if !strings.Contains(output, "[engine] DEBUG: [retrieval] kept 1") {
		t.Errorf("Expected retrieval debug line, got: %s", output)
	}
	if strings.Contains(output, "dropped") {
		t.Errorf("Expected dispatch domain to be filtered, got: %s", output)
	}
}

func TestComponentFromDefaults(t *testing.T) {
	if got := ComponentFrom(context.Background()); got != "unknown" {
		t.Errorf("Expected 'unknown', got %q", got)
	}
}

func TestWrap(t *testing.T) {
	buf := captureOutput(t)

	if Wrap(nil, "noop") != nil {
		t.Error("Expected nil for nil error")
	}

	base := errors.New("boom")
	err := Wrap(base, "create board")
	if !errors.Is(err, base) {
		t.Errorf("Expected wrapped error to match base")
	}
	if err.Error() != "create board: boom" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
	if !strings.Contains(buf.String(), "ERROR: create board: boom") {
		t.Errorf("Expected error to be logged, got: %s", buf.String())
	}
}
