package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestZeroLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug")

	tests := []struct {
		name      string
		fn        func()
		wantLevel string
		wantMsg   string
	}{
		{
			name:      "Info",
			fn:        func() { l.Info("test message") },
			wantLevel: "info",
			wantMsg:   "test message",
		},
		{
			name:      "Warn",
			fn:        func() { l.Warn("warning message") },
			wantLevel: "warn",
			wantMsg:   "warning message",
		},
		{
			name:      "Error",
			fn:        func() { l.Error("error message") },
			wantLevel: "error",
			wantMsg:   "error message",
		},
		{
			name:      "Debug",
			fn:        func() { l.Debug("debug message") },
			wantLevel: "debug",
			wantMsg:   "debug message",
		},
		{
			name:      "Info with args",
			fn:        func() { l.Info("test %s=%d", "count", 42) },
			wantLevel: "info",
			wantMsg:   "test count=42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn()
			var line map[string]any
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
			}
			if line["level"] != tt.wantLevel {
				t.Errorf("level: got %v, want %q", line["level"], tt.wantLevel)
			}
			if line["message"] != tt.wantMsg {
				t.Errorf("message: got %v, want %q", line["message"], tt.wantMsg)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")

	l.Info("dropped")
	l.Debug("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %q", buf.String())
	}

	l.Warn("kept")
	if buf.Len() == 0 {
		t.Error("expected warn line to be written")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info").With("store")

	l.Info("hello")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatal(err)
	}
	if line["component"] != "store" {
		t.Errorf("component: got %v, want %q", line["component"], "store")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDefault(t *testing.T) {
	if Default == nil {
		t.Error("Default logger should not be nil")
	}

	Default.Info("test")
}
