package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: ComponentApp,
		Handler:   slog.NewTextHandler(buf, nil),
	})
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Info("starting", "port", "8081")

	out := buf.String()
	if !strings.Contains(out, FieldComponent+"="+ComponentApp) {
		t.Errorf("expected component tag in %q", out)
	}
	if !strings.Contains(out, "port=8081") {
		t.Errorf("expected caller attributes in %q", out)
	}
}

func TestWithComponentRetags(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf).WithComponent(ComponentWorker)

	logger.Warn("backlog found")

	out := buf.String()
	if !strings.Contains(out, FieldComponent+"="+ComponentWorker) {
		t.Errorf("expected worker component in %q", out)
	}
	if got := strings.Count(out, FieldComponent+"="); got != 1 {
		t.Errorf("component tagged %d times in %q", got, out)
	}
	if logger.Component() != ComponentWorker {
		t.Errorf("Component() = %q", logger.Component())
	}
}

func TestWithKeepsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf).With("request_id", "req_1")

	logger.Error("boom")

	out := buf.String()
	if !strings.Contains(out, "request_id=req_1") {
		t.Errorf("expected bound attribute in %q", out)
	}
	if !strings.Contains(out, FieldComponent+"="+ComponentApp) {
		t.Errorf("expected component tag in %q", out)
	}
}
