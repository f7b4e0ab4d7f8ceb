// Package logging configures the process-wide logrus logger, with
// optional rotation to a file via lumberjack.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how verbosely the logger writes.
type Options struct {
	// Level is one of logrus's level strings (debug, info, warn, error).
	// Empty defaults to "info".
	Level string
	// FilePath, if set, also writes rotated logs there alongside stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Configure sets the global logrus logger up per opts and returns it for
// callers that want an explicit reference rather than the package-level
// logrus functions.
func Configure(opts Options) *logrus.Logger {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(strings.ToLower(orDefault(opts.Level, "info")))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	writers := []io.Writer{os.Stderr}
	if opts.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    orDefaultInt(opts.MaxSizeMB, 10),
			MaxBackups: orDefaultInt(opts.MaxBackups, 3),
			MaxAge:     orDefaultInt(opts.MaxAgeDays, 28),
			Compress:   true,
		})
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
