package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestGet_LevelMethodsChain(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	Init(Options{Level: "debug", Output: &buf})

	Get().Warn().Str("key", "value").Msg("chained warn")
	Get().Error().Msg("chained error")

	out := buf.String()
	if !strings.Contains(out, "chained warn") || !strings.Contains(out, "chained error") {
		t.Fatalf("expected both events in output, got: %s", out)
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Fatalf("expected structured field in output, got: %s", out)
	}
}

func TestAudit_TagsEvents(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	Init(Options{Level: "info", Output: &buf})

	Audit().Str("username", "alice").Msg("login succeeded")

	out := buf.String()
	if !strings.Contains(out, `"audit":true`) {
		t.Fatalf("expected audit marker, got: %s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Fatalf("expected warn level, got: %s", out)
	}
}

func TestInit_OnlyFirstCallApplies(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Output: &first})
	Init(Options{Output: &second})

	Get().Info().Msg("goes to first")
	if first.Len() == 0 {
		t.Fatalf("first writer received nothing")
	}
	if second.Len() != 0 {
		t.Fatalf("second Init must not rebind the writer")
	}
}
