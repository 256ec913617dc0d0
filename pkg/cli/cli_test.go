package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("history.path", "must be set")
	if !strings.Contains(err.Error(), "history.path") {
		t.Errorf("expected field in message, got %q", err.Error())
	}

	bare := NewConfigError("", "file unreadable")
	if strings.Contains(bare.Error(), " in ") {
		t.Errorf("expected no field clause, got %q", bare.Error())
	}
}

func TestCommandError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewCommandError("evaluate", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "evaluate") {
		t.Errorf("expected command name in message, got %q", err.Error())
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON)

	data := map[string]int{"requested": 3}
	if err := f.FormatTo(&buf, data); err != nil {
		t.Fatalf("format failed: %v", err)
	}

	var decoded map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["requested"] != 3 {
		t.Errorf("expected requested=3, got %v", decoded)
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatText)

	if err := f.FormatTo(&buf, "hello"); err != nil {
		t.Fatalf("format failed: %v", err)
	}
	if buf.String() != "hello\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestNewFormatter_UnknownFallsBackToText(t *testing.T) {
	if _, ok := NewFormatter("csv").(*TextFormatter); !ok {
		t.Error("expected text formatter for unknown format")
	}
}
