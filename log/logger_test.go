package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug": "debug",
		"warn":  "warn",
		"error": "error",
		"info":  "info",
		"":      "info",
		"bogus": "info",
	}
	for input, want := range cases {
		if got := parseLevel(input).String(); got != want {
			t.Errorf("parseLevel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewLoggerWithConfig_WritesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithConfig("app", "info", "json").WithOutput(&buf)
	l.Info("hello", map[string]any{"k": "v"})
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected log output to contain message, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"cluster":"app"`) {
		t.Fatalf("expected cluster field in output, got %q", buf.String())
	}
}

func TestLogger_WithAddressAddsField(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithConfig("app", "debug", "json").WithOutput(&buf).WithAddress("10.0.0.1:80")
	l.Debug("probe", nil)
	if !strings.Contains(buf.String(), `"address":"10.0.0.1:80"`) {
		t.Fatalf("expected address field in output, got %q", buf.String())
	}
}

func TestLogger_WithOutputPreservesConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithConfig("app", "warn", "json").WithOutput(&buf)
	l.Debug("should be filtered out", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected a warn-level logger to drop a Debug line, got %q", buf.String())
	}

	l.Warn("should pass through", nil)
	if !strings.Contains(buf.String(), "should pass through") {
		t.Fatalf("expected a warn-level logger to emit a Warn line, got %q", buf.String())
	}
}
