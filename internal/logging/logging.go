// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a console logger on stderr. When file is set, JSON lines are
// also written there with size-based rotation.
func New(level, file string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}
	if file != "" {
		w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Setup builds a logger with New and installs it as the global logger.
func Setup(level, file string) zerolog.Logger {
	l := New(level, file)
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}
