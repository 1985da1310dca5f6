package logger

import (
	"os"
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"
)

type Logger struct {
	App  waLog.Logger
	HTTP waLog.Logger
}

// New returns stdout loggers at level. OFF (or NONE) silences everything,
// which the CLI uses to keep its JSON output clean.
func New(level string) *Logger {
	level = normalizeLevel(level)
	if level == "OFF" {
		return InitForTests()
	}
	app := waLog.Stdout("App", level, os.Getenv("NO_COLOR") == "")
	return &Logger{
		App:  app,
		HTTP: app.Sub("HTTP"),
	}
}

func normalizeLevel(level string) string {
	switch level = strings.ToUpper(strings.TrimSpace(level)); level {
	case "":
		return "INFO"
	case "WARNING":
		return "WARN"
	case "NONE", "SILENT":
		return "OFF"
	default:
		return level
	}
}

// Component returns a child of App named after a component.
func (l *Logger) Component(name string) waLog.Logger {
	return l.App.Sub(name)
}

func InitForTests() *Logger {
	return &Logger{App: waLog.Noop, HTTP: waLog.Noop}
}
