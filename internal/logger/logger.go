package logger

import (
	"io"
	"os"
	"time"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the process logger and installs it as the zerolog global.
// LOG_LEVEL wins over the APP_ENV default (debug in dev, info elsewhere).
func New(cfg config.Config) zerolog.Logger {
	return build(cfg, os.Stdout)
}

func build(cfg config.Config, w io.Writer) zerolog.Logger {
	zerolog.SetGlobalLevel(level(cfg))
	if cfg.AppEnv == "dev" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}
	logger := zerolog.New(w).With().Timestamp().Str("app", "delivery-dashboard").Logger()
	log.Logger = logger
	return logger
}

func level(cfg config.Config) zerolog.Level {
	if cfg.LogLevel != "" {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
			return lvl
		}
	}
	if cfg.AppEnv == "dev" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
