package logger

import "testing"

func TestNormalizeLevel(t *testing.T) {
	tests := map[string]string{
		"":        "INFO",
		" debug ": "DEBUG",
		"warning": "WARN",
		"none":    "OFF",
		"ERROR":   "ERROR",
	}
	for in, want := range tests {
		if got := normalizeLevel(in); got != want {
			t.Fatalf("normalizeLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOffIsSilent(t *testing.T) {
	l := New("off")
	if l.App == nil || l.HTTP == nil || l.Component("x") == nil {
		t.Fatalf("silent logger must still hand out loggers")
	}
}
