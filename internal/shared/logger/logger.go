package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"secure-auth/internal/shared/contextkeys"

	"github.com/sirupsen/logrus"
)

const (
	logFormatJSON = "json"

	backendLogrus = "logrus"
	backendZap    = "zap"

	envProduction = "production"
	envProd       = "prod"

	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
	textTimestamp   = "2006-01-02 15:04:05"
)

// Logger defines the interface for structured logging operations
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithComponent(component string) Logger
}

// Options selects the backend and output shape of a logger.
type Options struct {
	Backend string
	Level   string
	Format  string
	Output  io.Writer
}

// New builds a logger for the requested backend. Unknown backends fall back to logrus.
func New(opts Options) Logger {
	if strings.EqualFold(opts.Backend, backendZap) {
		return NewZapLogger(opts)
	}
	return newLogrus(opts)
}

// LogrusLogger implements the Logger interface using logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogger creates a new logger instance configured from LOG_LEVEL, LOG_FORMAT and ENVIRONMENT.
func NewLogger() Logger {
	return newLogrus(Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
}

func newLogrus(opts Options) *LogrusLogger {
	logger := logrus.New()
	logger.SetLevel(parseLevel(opts.Level))
	logger.SetFormatter(logrusFormatter(opts.Format))
	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return &LogrusLogger{entry: logrus.NewEntry(logger)}
}

func (l *LogrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *LogrusLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *LogrusLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *LogrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *LogrusLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }

func (l *LogrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *LogrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *LogrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *LogrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

// WithFields adds structured fields to the logger
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithContext adds request-scoped identifiers carried in ctx.
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithComponent adds component name to the logger
func (l *LogrusLogger) WithComponent(component string) Logger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

// contextFields extracts the known identifiers from ctx, skipping empty values.
func contextFields(ctx context.Context) map[string]interface{} {
	fields := map[string]interface{}{}
	if ctx == nil {
		return fields
	}
	keys := []struct {
		key  interface{}
		name string
	}{
		{contextkeys.UserIDKey, "user_id"},
		{contextkeys.SessionIDKey, "session_id"},
		{contextkeys.RequestIDKey, "request_id"},
		{contextkeys.ClientIPKey, "client_ip"},
		{contextkeys.ComponentKey, "component"},
		{contextkeys.OperationKey, "operation"},
	}
	for _, k := range keys {
		if val, ok := ctx.Value(k.key).(string); ok && val != "" {
			fields[k.name] = val
		}
	}
	return fields
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func logrusFormatter(format string) logrus.Formatter {
	env := os.Getenv("ENVIRONMENT")
	if strings.EqualFold(format, logFormatJSON) || env == envProduction || env == envProd {
		return &logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		}
	}

	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: textTimestamp,
	}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &LogrusLogger{entry: logrus.NewEntry(&logrus.Logger{
		Out:       io.Discard,
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.PanicLevel,
		ExitFunc:  os.Exit,
	})}
}

var defaultLogger Logger = NewLogger()

// SetDefault replaces the package-level logger.
func SetDefault(l Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Default returns the package-level logger.
func Default() Logger { return defaultLogger }

// Info logs an info message using the default logger
func Info(args ...interface{}) { defaultLogger.Info(args...) }

// Warn logs a warning message using the default logger
func Warn(args ...interface{}) { defaultLogger.Warn(args...) }

// Error logs an error message using the default logger
func Error(args ...interface{}) { defaultLogger.Error(args...) }

// Infof logs a formatted info message using the default logger
func Infof(format string, args ...interface{}) { defaultLogger.Infof(format, args...) }

// Errorf logs a formatted error message using the default logger
func Errorf(format string, args ...interface{}) { defaultLogger.Errorf(format, args...) }

// WithContext creates a logger with context information
func WithContext(ctx context.Context) Logger { return defaultLogger.WithContext(ctx) }

// WithComponent creates a logger with component information
func WithComponent(component string) Logger { return defaultLogger.WithComponent(component) }
