// Package logging provides structured logging with zerolog.
// Every message is passed through a redacting formatter before it is
// written, so values of sensitive fields never reach the log sink. The text
// format renders each event as "[APP] name LEVEL time: message".
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/thalib/veil/cmd/veil/internal/constants"
	"github.com/thalib/veil/cmd/veil/internal/redact"
)

// loggerFieldName carries the logger name in every event.
const loggerFieldName = "logger"

// lineWriter re-renders zerolog JSON events through the line template.
type lineWriter struct {
	out       io.Writer
	name      string
	formatter *redact.Formatter
}

func (lw *lineWriter) Write(p []byte) (n int, err error) {
	var logEntry map[string]any
	if err := json.Unmarshal(p, &logEntry); err != nil {
		// If not JSON, just write as-is
		return lw.out.Write(p)
	}

	level, _ := logEntry[zerolog.LevelFieldName].(string)
	message, _ := logEntry[zerolog.MessageFieldName].(string)

	name := lw.name
	if loggerName, ok := logEntry[loggerFieldName].(string); ok && loggerName != "" {
		name = loggerName
	}

	ts := time.Now()
	if raw, ok := logEntry[zerolog.TimestampFieldName].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			ts = parsed
		}
	}

	line := lw.formatter.Render(name, levelName(level), ts, message) + "\n"
	if _, err := io.WriteString(lw.out, line); err != nil {
		return 0, err
	}
	return len(p), nil
}

// levelName maps zerolog level names to the names existing log consumers expect.
func levelName(level string) string {
	switch level {
	case zerolog.LevelWarnValue:
		return "WARNING"
	case zerolog.LevelFatalValue:
		return "CRITICAL"
	default:
		return strings.ToUpper(level)
	}
}

// Level represents logging levels
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	// Name is the logger name rendered in every line
	Name string

	// Level is the minimum log level (debug, info, warn, error)
	Level Level

	// Format is the output format: text (default), json or console
	Format string

	// Output is the writer for logs (default: os.Stderr)
	Output io.Writer

	// FilePath is the path to the log file (if specified, Output is ignored)
	FilePath string

	// Formatter redacts messages and renders text lines.
	// Default: the PII field set with the default template.
	Formatter *redact.Formatter

	// Clock returns the event time (default: time.Now)
	Clock func() time.Time
}

// Logger wraps zerolog for redacted structured logging.
// A Logger is safe for concurrent use.
type Logger struct {
	logger    zerolog.Logger
	config    LoggerConfig
	formatter *redact.Formatter
	closer    io.Closer
}

// NewLogger creates a new structured logger
func NewLogger(config LoggerConfig) (*Logger, error) {
	if config.Formatter == nil {
		formatter, err := redact.NewFormatter(redact.Config{Fields: constants.PIIFields})
		if err != nil {
			return nil, fmt.Errorf("failed to create formatter: %w", err)
		}
		config.Formatter = formatter
	}
	if config.Name == "" {
		config.Name = constants.LoggerName
	}
	if config.Level == "" {
		config.Level = LevelInfo
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	var output io.Writer
	var closer io.Closer
	if config.FilePath != "" {
		dir := filepath.Dir(config.FilePath)
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log directory %s: %v\n", dir, err)
			output = os.Stderr
		} else {
			file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, constants.FilePermissions)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", config.FilePath, err)
				output = os.Stderr
			} else {
				output = file
				closer = file
			}
		}
	} else if config.Output != nil {
		output = config.Output
	} else {
		output = os.Stderr
	}

	// Set zerolog level
	var zeroLevel zerolog.Level
	switch config.Level {
	case LevelDebug:
		zeroLevel = zerolog.DebugLevel
	case LevelInfo:
		zeroLevel = zerolog.InfoLevel
	case LevelWarn:
		zeroLevel = zerolog.WarnLevel
	case LevelError:
		zeroLevel = zerolog.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level %q", config.Level)
	}

	var logger zerolog.Logger
	switch config.Format {
	case "json":
		logger = zerolog.New(output)
	case "console":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339})
	case "", "text":
		logger = zerolog.New(&lineWriter{out: output, name: config.Name, formatter: config.Formatter})
	default:
		return nil, fmt.Errorf("unknown log format %q, must be one of: text, json, console", config.Format)
	}
	logger = logger.Level(zeroLevel)

	return &Logger{
		logger:    logger,
		config:    config,
		formatter: config.Formatter,
		closer:    closer,
	}, nil
}

// Close closes the log file opened for FilePath, if any.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Formatter returns the formatter used to redact messages.
func (l *Logger) Formatter() *redact.Formatter {
	return l.formatter
}

// WithName returns a logger that renders name instead of the configured name.
func (l *Logger) WithName(name string) *Logger {
	newLogger := *l
	newLogger.config.Name = name
	return &newLogger
}

// WithField returns a logger with an additional field
func (l *Logger) WithField(key string, value any) *Logger {
	newLogger := *l
	newLogger.logger = l.logger.With().Interface(key, l.maskSensitive(key, value)).Logger()
	return &newLogger
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	newLogger := *l
	ctx := l.logger.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, l.maskSensitive(key, value))
	}
	newLogger.logger = ctx.Logger()
	return &newLogger
}

// maskSensitive masks sensitive field values (exact or lowercase key match)
func (l *Logger) maskSensitive(key string, value any) any {
	if l.formatter.IsSensitive(key) || l.formatter.IsSensitive(strings.ToLower(key)) {
		return l.formatter.Redaction()
	}
	return value
}

// emit stamps the event and writes the redacted message.
func (l *Logger) emit(event *zerolog.Event, msg string) {
	if !event.Enabled() {
		return
	}
	event.
		Str(loggerFieldName, l.config.Name).
		Str(zerolog.TimestampFieldName, l.config.Clock().Format(time.RFC3339Nano)).
		Msg(l.formatter.Filter(msg))
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.emit(l.logger.Debug(), msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...any) {
	l.emit(l.logger.Debug(), fmt.Sprintf(format, args...))
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.emit(l.logger.Info(), msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...any) {
	l.emit(l.logger.Info(), fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.emit(l.logger.Warn(), msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...any) {
	l.emit(l.logger.Warn(), fmt.Sprintf(format, args...))
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.emit(l.logger.Error(), msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.emit(l.logger.Error(), fmt.Sprintf(format, args...))
}

// ErrorWithErr logs an error with the error object. The error text is
// redacted like the message.
func (l *Logger) ErrorWithErr(msg string, err error) {
	event := l.logger.Error()
	if err != nil {
		event = event.Str(zerolog.ErrorFieldName, l.formatter.Filter(err.Error()))
	}
	l.emit(event, msg)
}
