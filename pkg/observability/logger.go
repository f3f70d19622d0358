package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/elearnhq/elearn/pkg/contextkeys"
)

// LogLevel is the minimum severity a Logger writes.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[LogLevel]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

// ParseLogLevel reads ELEARN_LOG_LEVEL style values; anything unknown is info.
func ParseLogLevel(s string) LogLevel {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		name = "WARN"
	}
	for level, n := range levelNames {
		if n == name {
			return level
		}
	}
	return InfoLevel
}

func (l LogLevel) slogLevel() slog.Level {
	return map[LogLevel]slog.Level{
		DebugLevel: slog.LevelDebug,
		WarnLevel:  slog.LevelWarn,
		ErrorLevel: slog.LevelError,
	}[l]
}

// Logger writes one JSON object per line. Derived loggers share the output
// and carry their fields into every entry.
type Logger struct {
	sl *slog.Logger
}

// NewLogger writes to out, or stdout when out is nil.
func NewLogger(level LogLevel, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{sl: slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level.slogLevel()}))}
}

func (l *Logger) with(args ...interface{}) *Logger {
	return &Logger{sl: l.sl.With(args...)}
}

// WithField returns a logger that adds key to every entry.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(key, value)
}

// WithFields is WithField for several keys at once.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, 2*len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.with(args...)
}

// WithError records err under "error". A nil err returns l unchanged.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

func (l *Logger) Debug(msg string) { l.sl.Debug(msg) }
func (l *Logger) Info(msg string)  { l.sl.Info(msg) }
func (l *Logger) Warn(msg string)  { l.sl.Warn(msg) }
func (l *Logger) Error(msg string) { l.sl.Error(msg) }

// Infof is Info with Sprintf formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.sl.Info(fmt.Sprintf(format, args...))
}

// Errorf is Error with Sprintf formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.sl.Error(fmt.Sprintf(format, args...))
}

// WithLogger stores logger in ctx for FromContext.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return contextkeys.WithLogger(ctx, logger)
}

// FromContext returns the request's logger tagged with request_id and
// user_id when those are known. Without a stored logger it falls back to an
// info-level stdout logger.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextkeys.LoggerKey).(*Logger)
	if !ok {
		logger = NewLogger(InfoLevel, nil)
	}
	if id := contextkeys.GetRequestID(ctx); id != "" {
		logger = logger.WithField("request_id", id)
	}
	if id := contextkeys.GetUserID(ctx); id != "" {
		logger = logger.WithField("user_id", id)
	}
	return logger
}
