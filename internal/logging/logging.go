// Package logging builds the slog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger wraps a slog logger and the optional log file behind it
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a text logger writing to stdout and, when path is not empty,
// appending to that file as well.
func New(level slog.Level, path string) (*Logger, error) {
	writers := []io.Writer{os.Stdout}

	var file *os.File
	if path != "" {
		var err error
		file, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, file)
	}

	return &Logger{
		Logger: NewWithWriter(io.MultiWriter(writers...), level),
		file:   file,
	}, nil
}

// NewWithWriter creates a text logger on w
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return NewWithWriter(io.Discard, slog.LevelError)
}

// Close closes the log file, if any. Later calls return nil.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
