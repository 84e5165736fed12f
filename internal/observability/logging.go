// Package observability sets up structured logging and Prometheus metrics.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogging installs a JSON slog logger as the process default. The
// development environment logs at debug level.
func SetupLogging(env string) *slog.Logger {
	return setupLogging(os.Stdout, env)
}

func setupLogging(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo
	if strings.EqualFold(env, "development") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
