package log

import (
	"io"
	"os"
	"strings"

	"pidsvc-backup/internal/config"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a new zerolog.Logger based on the provided configuration.
// Path "stdout" and "stderr" write to the console, anything else is a rotated file.
func New(cfg config.LogConfig) zerolog.Logger {
	return zerolog.New(writer(cfg)).With().Timestamp().Logger().Level(parseLevel(cfg.Level))
}

func writer(cfg config.LogConfig) io.Writer {
	switch strings.ToLower(cfg.Path) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}
