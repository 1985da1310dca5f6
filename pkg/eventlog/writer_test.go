package eventlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	waLog "go.mau.fi/whatsmeow/util/log"
)

func TestWriterStoresEnvelope(t *testing.T) {
	base := t.TempDir()
	w := NewWriter(base, waLog.Noop)

	path, err := w.Write("member.merged", "../alice", map[string]any{"winner": "alice"})
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !strings.HasPrefix(path, filepath.Join(base, "member.merged", "alice")) {
		t.Fatalf("unexpected path %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope["action"] != "member.merged" {
		t.Fatalf("unexpected envelope %v", envelope)
	}
}

func TestNilWriterIsDisabled(t *testing.T) {
	w := NewWriter("  ", nil)
	if w.Enabled() {
		t.Fatalf("empty base dir should disable the writer")
	}
	if path, err := w.Write("x", "y", struct{}{}); err != nil || path != "" {
		t.Fatalf("disabled writer should drop records, got %q %v", path, err)
	}
}
