// Package observability holds the process-wide loggers.
package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging profiles.
const (
	ProfileStructured = "structured"
	ProfileConsole    = "console"
)

// CLILogger is the logger used by CLI commands. It discards everything
// until InitCLILogger runs.
var CLILogger = zap.NewNop()

// ServerLogger is the logger used by the HTTP server. It discards
// everything until InitServerLogger runs.
var ServerLogger = zap.NewNop()

// InitCLILogger replaces CLILogger. Verbose output uses the console encoder
// at debug level; otherwise warnings and above are written as JSON. Both go
// to stderr so stdout stays reserved for JSONL records.
func InitCLILogger(name string, verbose bool) {
	profile, level := ProfileStructured, "warn"
	if verbose {
		profile, level = ProfileConsole, "debug"
	}
	logger, err := NewLogger(level, profile)
	if err != nil {
		return
	}
	CLILogger = logger.Named(name)
}

// InitServerLogger replaces ServerLogger with a logger for the configured
// level and profile.
func InitServerLogger(name, level, profile string) error {
	logger, err := NewLogger(level, profile)
	if err != nil {
		return err
	}
	ServerLogger = logger.Named(name)
	return nil
}

// NewLogger builds a stderr logger for the given level and profile.
func NewLogger(level, profile string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(profile) {
	case "", ProfileStructured:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case ProfileConsole:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log profile %q (expected %s or %s)", profile, ProfileStructured, ProfileConsole)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
