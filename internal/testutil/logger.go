package testutil

import (
	"io"
	"log/slog"
	"time"

	"github.com/dtroode/valhalla-auth/internal/logger"
)

// MakeNoopLogger returns a logger that evaluates every record and discards it.
func MakeNoopLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, int(slog.LevelDebug))
}

// FixedClock returns a clock that always reports now.
func FixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}
