package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

// Init configures the global logger. mode is "production" or "development";
// level overrides the default level for the chosen mode.
func Init(mode, level string) {
	var zapConfig zap.Config

	if mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	switch level {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	l, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}

	log = l.Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

func Debug(msg string, keysAndValues ...interface{}) {
	ensure()
	log.Debugw(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...interface{}) {
	ensure()
	log.Infow(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	ensure()
	log.Warnw(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...interface{}) {
	ensure()
	log.Errorw(msg, keysAndValues...)
}

// ensure lets packages log before Init runs (tests, early boot failures).
func ensure() {
	if log == nil {
		Init("development", "info")
	}
}
