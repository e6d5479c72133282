// Package logger wraps zap for structured logging.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level, the console encoding and an optional JSON
// log file.
type Config struct {
	Level  string `mapstructure:"level" default:"info"`
	Format string `mapstructure:"format" default:"console"`
	File   string `mapstructure:"file"`
}

var (
	mu      sync.Mutex
	log     *zap.Logger
	logFile = "vantage.log" // Default log file
	level   = "info"
)

// New builds a logger that tees a console core on stderr with a JSON file
// core when cfg.File is set. Stdout stays free for command output.
func New(cfg Config) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		lvl.SetLevel(parsed)
	}

	var consoleEncoder zapcore.Encoder
	switch cfg.Format {
	case "", "console":
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	case "json":
		consoleEncoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), lvl)}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(file), lvl))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// InitLogger initializes the global logger once, writing to the configured
// log file.
func InitLogger() {
	mu.Lock()
	defer mu.Unlock()
	if log != nil {
		return
	}
	l, err := New(Config{Level: level, File: logFile})
	if err != nil {
		l = zap.NewNop()
	}
	log = l
}

// SetGlobal replaces the global logger.
func SetGlobal(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// GetLogger provides access to the initialized logger.
func GetLogger() *zap.Logger {
	mu.Lock()
	l := log
	mu.Unlock()
	if l == nil {
		InitLogger()
		mu.Lock()
		l = log
		mu.Unlock()
	}
	return l
}

// SetLogPath changes the file used by InitLogger. It has no effect on an
// already initialized logger.
func SetLogPath(path string) {
	mu.Lock()
	defer mu.Unlock()
	logFile = path
}

// SetLevel changes the level used by InitLogger.
func SetLevel(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// ResetLogger drops the global logger so the next call initializes a new one.
func ResetLogger() {
	Sync()
	mu.Lock()
	defer mu.Unlock()
	log = nil
}

// Sync ensures buffered logs are written before the application exits.
func Sync() {
	mu.Lock()
	l := log
	mu.Unlock()
	if l != nil {
		_ = l.Sync()
	}
}
