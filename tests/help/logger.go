package help

import (
	"io"
	"log/slog"
	"os"

	"github.com/rs/zerolog"
)

func Logger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}

	h := slog.NewJSONHandler(os.Stdout, opts)

	return slog.New(h).With(
		slog.String("service", "ashSegments"),
		slog.String("env", "test"),
	)
}

// DriverLogger is the zerolog counterpart used by driver tests.
func DriverLogger() zerolog.Logger {
	return zerolog.New(io.Discard).With().Timestamp().Str("env", "test").Logger()
}
