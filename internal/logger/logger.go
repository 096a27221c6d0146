// Package logger constructs the worker's structured logger.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/openverse/image-worker/internal/config"
)

// New returns a configured zerolog.Logger. Development environments get a
// human-readable console writer; everything else gets structured JSON.
func New(cfg *config.Config) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if cfg.IsDevelopment() {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.IsDevelopment() {
		out := zerolog.ConsoleWriter{Out: os.Stderr}
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
