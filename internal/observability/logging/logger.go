package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

func NewJSONLogger(service, level string, w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// Setup builds the process logger: JSON to w and, when logFile is set, the
// same records appended to logFile. The returned func closes the file.
func Setup(service, level, logFile string, w io.Writer) (*slog.Logger, func() error, error) {
	if strings.TrimSpace(logFile) == "" {
		return NewJSONLogger(service, level, w), func() error { return nil }, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newFanout(service, level, w, file), file.Close, nil
}

func newFanout(service, level string, w, file io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	return slog.New(slogmulti.Fanout(
		slog.NewJSONHandler(w, opts),
		slog.NewJSONHandler(file, opts),
	)).With("service", service)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
