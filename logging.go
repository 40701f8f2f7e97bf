package stamp

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel grades a LogEvent.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

// LogEvent describes one step of a version check for logging.
type LogEvent struct {
	Level      LogLevel
	Message    string
	Outcome    Outcome
	Key        string
	OldVersion string
	NewVersion string
	Engine     string
	Duration   time.Duration
	Err        error
}

// Logger records version manager events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

type zapLogger struct {
	logger *zap.Logger
}

// NewZapLogger adapts a zap logger. A nil logger yields a silent Logger.
func NewZapLogger(logger *zap.Logger) Logger {
	if logger == nil {
		return noopLogger{}
	}
	return zapLogger{logger: logger.Named("stamp")}
}

func (l zapLogger) Log(event LogEvent) {
	fields := make([]zap.Field, 0, 7)
	if event.Outcome != "" {
		fields = append(fields, zap.String("outcome", event.Outcome.String()))
	}
	if event.Key != "" {
		fields = append(fields, zap.String("key", event.Key))
	}
	if event.OldVersion != "" {
		fields = append(fields, zap.String("old_version", event.OldVersion))
	}
	if event.NewVersion != "" {
		fields = append(fields, zap.String("new_version", event.NewVersion))
	}
	if event.Engine != "" {
		fields = append(fields, zap.String("engine", event.Engine))
	}
	if event.Duration > 0 {
		fields = append(fields, zap.Duration("duration", event.Duration))
	}
	if event.Err != nil {
		fields = append(fields, zap.Error(event.Err))
	}
	if ce := l.logger.Check(zapLevel(event.Level), event.Message); ce != nil {
		ce.Write(fields...)
	}
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogDebug:
		return zapcore.DebugLevel
	case LogWarn:
		return zapcore.WarnLevel
	case LogError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
