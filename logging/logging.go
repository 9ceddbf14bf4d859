package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	logger  *zap.Logger
	sugar   *zap.SugaredLogger
	mu      sync.Mutex
	isSetup bool
)

func init() {
	logger = zap.NewNop()
	sugar = logger.Sugar()
}

// SetupLogger initializes the package logger. Debug mode uses zap's development
// config (console encoding, debug level); otherwise the production config is used.
// An empty logFilePath logs to stderr.
func SetupLogger(debug bool, logFilePath string) error {
	mu.Lock()
	defer mu.Unlock()

	// Check if logger is already set up
	if isSetup {
		return nil
	}

	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	if logFilePath != "" {
		cfg.OutputPaths = []string{logFilePath}
		cfg.ErrorOutputPaths = []string{logFilePath}
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	logger = l
	sugar = l.Sugar()
	sugar.Debugf("--- dupfinder log started at %s ---", time.Now().Format(time.RFC3339))

	isSetup = true
	return nil
}

// UseLogger replaces the package logger, mainly for tests
func UseLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()

	logger = l
	sugar = l.Sugar()
	isSetup = true
}

// CloseLogger flushes buffered entries and resets the logger to a no-op
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		_ = logger.Sync()
		logger = zap.NewNop()
		sugar = logger.Sugar()
		isSetup = false
	}
}

// Logger returns the underlying zap logger
func Logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// DebugLog logs a message at debug level
func DebugLog(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// LogImageProcessed logs the outcome of fingerprinting one file
func LogImageProcessed(path string, success bool, errMsg string) {
	if success {
		current().Debugw("processed", "path", path)
	} else {
		current().Warnw("failed", "path", path, "error", errMsg)
	}
}

func current() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return sugar
}
