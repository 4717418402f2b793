package logging

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Logger wraps slog.Logger with application-specific functionality
type Logger struct {
	*slog.Logger
}

// ParseLevel maps a LOG_LEVEL string to a slog level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a new logger with the specified level
func New(level string) *Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter creates a JSON logger that writes to w.
func NewWithWriter(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &Logger{Logger: slog.New(handler)}
}

// NewWithFile fans records out to stdout and to an append-only file at path.
// When the file cannot be opened the logger degrades to stdout only. The
// returned cleanup closes the file.
func NewWithFile(level, path string) (*Logger, func() error) {
	if path == "" {
		return New(level), func() error { return nil }
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	stdout := slog.NewJSONHandler(os.Stdout, opts)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := &Logger{Logger: slog.New(stdout)}
		logger.Error("failed to open log file, using stdout only", "error", err, "file", path)
		return logger, func() error { return nil }
	}

	fileHandler := slog.NewJSONHandler(file, opts)
	logger := &Logger{Logger: slog.New(slogmulti.Fanout(stdout, fileHandler))}
	return logger, file.Close
}

// With returns a child logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a logger with default settings
func Default() *Logger {
	return New("info")
}
