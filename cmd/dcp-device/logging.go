package main

import (
	"os"
	"strings"
	"time"

	"github.com/pion/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds a zap logger writing to stdout and, when a file name is
// configured, to a rotated log file.
func newLogger(cfg LoggingConfig) *zap.Logger {
	level := zapcore.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug", "trace":
		level = zapcore.DebugLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format(time.RFC3339Nano)) },
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	ws := zapcore.AddSync(os.Stdout)
	if cfg.File.Filename != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		ws = zapcore.NewMultiWriteSyncer(ws, zapcore.AddSync(lj))
	}

	return zap.New(zapcore.NewCore(encoder, ws, level), zap.AddCaller(), zap.AddCallerSkip(1))
}

// zapFactory adapts a zap logger to the pion logging interfaces used by
// the library packages. Each scope becomes a named child logger.
type zapFactory struct {
	base *zap.Logger
}

func (f zapFactory) NewLogger(scope string) logging.LeveledLogger {
	return zapLogger{f.base.Named(scope).Sugar()}
}

// zapLogger maps pion levels onto zap. zap has no trace level, so trace
// messages are logged at debug.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Trace(msg string)                          { l.s.Debug(msg) }
func (l zapLogger) Tracef(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l zapLogger) Debug(msg string)                          { l.s.Debug(msg) }
func (l zapLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l zapLogger) Info(msg string)                           { l.s.Info(msg) }
func (l zapLogger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l zapLogger) Warn(msg string)                           { l.s.Warn(msg) }
func (l zapLogger) Warnf(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l zapLogger) Error(msg string)                          { l.s.Error(msg) }
func (l zapLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }

var _ logging.LoggerFactory = zapFactory{}
