package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
)

var logger *slog.Logger
var fileWriter *FileWriter

// Options configures the logger.
type Options struct {
	// Verbose enables debug/info output on stderr.
	Verbose bool
	// JSONFormat switches stderr output to JSON.
	JSONFormat bool
	// FileDir is the directory for the always-on debug log files.
	// If empty, file logging is disabled.
	FileDir string
	// RetentionDays is how many days of log files to keep (0 = no cleanup).
	RetentionDays int
	// Stderr overrides the stderr writer (defaults to os.Stderr).
	Stderr io.Writer
}

// Init initializes the global logger with the given options.
func Init(opts Options) error {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var handlers []slog.Handler

	// Stderr carries Warn+Error by default so command output stays clean.
	stderrLevel := slog.LevelWarn
	if opts.Verbose {
		stderrLevel = slog.LevelDebug
	}

	stderrOpts := &slog.HandlerOptions{
		Level: stderrLevel,
	}

	if opts.JSONFormat {
		handlers = append(handlers, slog.NewJSONHandler(stderr, stderrOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(stderr, stderrOpts))
	}

	// The file handler records everything, always as JSON.
	if opts.FileDir != "" {
		if opts.RetentionDays > 0 {
			Cleanup(opts.FileDir, opts.RetentionDays)
		}

		fw, err := NewFileWriter(opts.FileDir)
		if err != nil {
			return err
		}
		fileWriter = fw

		fileOpts := &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}
		handlers = append(handlers, slog.NewJSONHandler(fileWriter, fileOpts))
	}

	logger = slog.New(&multiHandler{handlers: handlers})
	slog.SetDefault(logger)
	return nil
}

// Close closes the file writer if one was created.
func Close() {
	if fileWriter != nil {
		fileWriter.Close()
		fileWriter = nil
	}
}

// multiHandler fans out log records to multiple handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

// With returns a logger with additional context.
func With(args ...any) *slog.Logger {
	return logger.With(args...)
}

// SetOutput sets the output writer (for testing).
func SetOutput(w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func init() {
	// Default logger until Init is called
	logger = slog.Default()
}
