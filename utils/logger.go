package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging environment variables.
const (
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvLogFile   = "LOG_FILE"
)

var (
	mu    sync.Mutex
	log   *zap.Logger
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// InitLogger builds the global logger on first use and sets its level.
// debug overrides LOG_LEVEL. Later calls only change the level, so the
// logger handed to long-lived components keeps following --debug.
func InitLogger(debug bool) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return initLocked(debug)
}

func initLocked(debug bool) *zap.Logger {
	lvl := levelFromEnv()
	if debug {
		lvl = zapcore.DebugLevel
	}
	level.SetLevel(lvl)

	if log == nil {
		log = build(os.Getenv(EnvLogFormat), os.Getenv(EnvLogFile))
	}
	return log
}

// build writes to stderr, plus LOG_FILE when set, so command output on
// stdout stays machine readable.
func build(format, file string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = level
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if strings.EqualFold(format, "console") {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.StacktraceKey = "stacktrace"

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if file != "" {
		withFile := config
		withFile.OutputPaths = append([]string{file}, config.OutputPaths...)
		if logger, err := withFile.Build(opts...); err == nil {
			return logger.Named("cwflash")
		}
	}

	logger, err := config.Build(opts...)
	if err != nil {
		panic(err)
	}
	return logger.Named("cwflash")
}

func levelFromEnv() zapcore.Level {
	raw := os.Getenv(EnvLogLevel)
	if raw == "" {
		return zapcore.InfoLevel
	}
	lvl, err := zapcore.ParseLevel(raw)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// GetLogger returns the global logger, building it at the LOG_LEVEL level if
// InitLogger was never called.
func GetLogger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		return initLocked(false)
	}
	return log
}

// CleanupLogger flushes any buffered log entries
func CleanupLogger() {
	mu.Lock()
	defer mu.Unlock()
	if log != nil {
		_ = log.Sync()
	}
}
