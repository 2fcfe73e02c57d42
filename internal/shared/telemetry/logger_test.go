package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestInfoWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Info("generation.complete", map[string]any{
		"kind":     "card-interpretation",
		"attempts": 2,
		"err":      errors.New("boom"),
	})

	line := strings.TrimSpace(buf.String())
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode log json: %v (%s)", err, line)
	}
	for _, key := range []string{"ts", "level", "msg", "kind", "attempts", "err"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["level"] != "info" || payload["msg"] != "generation.complete" {
		t.Fatalf("unexpected level/msg: %v", payload)
	}
	if payload["err"] != "boom" {
		t.Fatalf("expected error rendered as string, got %v", payload["err"])
	}
}

func TestInitFiltersLevels(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()
	Init("warn")
	defer Init("info")

	Info("hidden", nil)
	Debug("hidden", nil)
	Warn("shown", nil)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info/debug to be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("expected warn line: %s", out)
	}
}
