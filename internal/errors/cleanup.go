// Package errors provides cleanup helpers that log instead of dropping errors.
package errors

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// DeferClose closes an io.Closer and logs a failure at warn level.
// Use this in defer statements to avoid suppressing close errors.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// DeferRemoveAll removes a scratch path, logging when it cannot be removed.
// An empty path is a no-op.
func DeferRemoveAll(logger zerolog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to remove scratch path")
	}
}
