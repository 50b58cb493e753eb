package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/immortalis/archivesync/pkg/logging"
)

// validLevels are the levels accepted from flags and configuration.
var validLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// NewLogger builds the CLI logger. The level comes from, in order: log_level
// (or --log-level), --quiet (warn, wins over --verbose), --verbose (debug),
// then info.
//
// The logger itself stays open at trace; the chosen level is applied as the
// zerolog global level, so SetLogLevel can later move it in either direction.
// The result also becomes the logging default. Warnings about the
// configuration go to warn.
func NewLogger(config *Config, warn io.Writer) zerolog.Logger {
	level := determineLogLevel(config, warn)

	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:   level,
		Format:  config.LogFormat,
		Output:  config.LogOutput,
		NoColor: config.NoColor,
	})
	SetLogLevel(level)
	logger = logger.Level(zerolog.TraceLevel)
	logging.SetDefault(logger)
	return logger
}

// SetLogLevel applies level globally. Invalid levels fall back to info.
func SetLogLevel(level string) zerolog.Level {
	l := logging.ParseLevel(validateLogLevel(level))
	zerolog.SetGlobalLevel(l)
	return l
}

// determineLogLevel picks the level name and warns about conflicts.
func determineLogLevel(config *Config, warn io.Writer) string {
	if config.LogLevel != "" {
		validated := validateLogLevel(config.LogLevel)
		if validated != strings.ToLower(config.LogLevel) {
			fmt.Fprintf(warn, "Warning: invalid log level %q, using %q\n", config.LogLevel, validated)
		}
		return validated
	}

	if config.Verbose && config.Quiet {
		fmt.Fprintf(warn, "Warning: both --verbose and --quiet specified, using --quiet\n")
		return "warn"
	}
	if config.Verbose {
		return "debug"
	}
	if config.Quiet {
		return "warn"
	}
	return "info"
}

// validateLogLevel returns level if valid, otherwise "info".
func validateLogLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	if validLevels[level] {
		return level
	}
	return "info"
}
