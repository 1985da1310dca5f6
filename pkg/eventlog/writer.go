package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var invalidSegment = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Writer stores audit records (merges, migrations, resets) as JSON files.
type Writer struct {
	baseDir string
	log     waLog.Logger
	now     func() time.Time
}

// NewWriter returns a writer rooted at baseDir, or nil when baseDir is empty.
// A nil writer accepts and drops every record.
func NewWriter(baseDir string, log waLog.Logger) *Writer {
	base := strings.TrimSpace(baseDir)
	if base == "" {
		return nil
	}
	if log == nil {
		log = waLog.Noop
	}
	return &Writer{baseDir: filepath.Clean(base), log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Enabled reports whether records are written.
func (w *Writer) Enabled() bool {
	return w != nil && w.baseDir != ""
}

// Write stores record under baseDir/<action>/<subject>/<timestamp>-<uuid>.json
// and returns the file path.
func (w *Writer) Write(action, subject string, record any) (string, error) {
	if !w.Enabled() || record == nil {
		return "", nil
	}

	dir := filepath.Join(w.baseDir, sanitizeSegment(action), sanitizeSegment(subject))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	ts := w.now()
	fileName := fmt.Sprintf("%s-%s.json", ts.Format("20060102T150405Z"), uuid.NewString())
	path := filepath.Join(dir, fileName)

	envelope := map[string]any{
		"action":      action,
		"subject":     subject,
		"recorded_at": ts.Format(time.RFC3339Nano),
		"payload":     record,
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		fallback := map[string]any{
			"action":        action,
			"subject":       subject,
			"recorded_at":   ts.Format(time.RFC3339Nano),
			"marshal_error": err.Error(),
			"payload_text":  fmt.Sprintf("%+v", record),
		}
		data, err = json.MarshalIndent(fallback, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal fallback: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	w.log.Debugf("audit record %s written to %s", action, path)
	return path, nil
}

func sanitizeSegment(raw string) string {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "unknown"
	}
	sanitized := invalidSegment.ReplaceAllString(candidate, "_")
	sanitized = strings.Trim(sanitized, "._-")
	if sanitized == "" {
		return "unknown"
	}
	return sanitized
}
