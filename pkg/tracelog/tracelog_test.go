package tracelog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerWritesLineWithMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo))
	logger.Info("hart booted", "pc", "0x0")
	out := buf.String()
	if !strings.Contains(out, "hart booted") {
		t.Fatalf("got %q", out)
	}
	if !strings.Contains(out, "INFO:") {
		t.Fatalf("got %q", out)
	}
}

func TestHandlerFiltersBelowMin(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelWarn))
	logger.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged, got %q", buf.String())
	}
}

func TestWithAttrsPrefixesSubsequentRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo)).With("hart", "0")
	logger.Info("trap")
	if !strings.Contains(buf.String(), "hart=0") {
		t.Fatalf("got %q", buf.String())
	}
}
