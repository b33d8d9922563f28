package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}

func TestLogger_ServiceFieldAndStack(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "lookup-bot", "debug")
	log.Error().Stack().Err(errors.New("boom")).Msg("failed")

	var m map[string]interface{}
	if err := json.Unmarshal([]byte(lastNonEmptyLine(buf.String())), &m); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if m["service"] != "lookup-bot" {
		t.Fatalf("service field missing: %v", m)
	}
	if m["error"] != "boom" {
		t.Fatalf("error field = %v", m["error"])
	}
	if _, ok := m["stack"]; !ok {
		t.Fatalf("expected stack field: %v", m)
	}
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "svc", "warn")
	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	log.Warn().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":  zerolog.DebugLevel,
		" WARN ": zerolog.WarnLevel,
		"":       zerolog.InfoLevel,
		"bogus":  zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
