// Package logging configures the process-wide phuslu logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Init sets the global logger. level is debug|info|warn|error (unknown values
// fall back to info); format is "json" or anything else for console output.
func Init(level, format string) {
	InitWriter(level, format, os.Stderr)
}

// InitWriter is Init with an explicit destination.
func InitWriter(level, format string, w io.Writer) {
	var writer log.Writer
	if strings.EqualFold(format, "json") {
		writer = &log.IOWriter{Writer: w}
	} else {
		writer = &log.ConsoleWriter{Writer: w, ColorOutput: false, QuoteString: true}
	}
	log.DefaultLogger = log.Logger{
		Level:      ParseLevel(level),
		TimeFormat: "2006-01-02 15:04:05",
		Writer:     writer,
	}
}

// ParseLevel maps a config string onto a log level.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
