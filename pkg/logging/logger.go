// Package logging holds the zerolog setup shared by every archivesync
// component: a process-wide default logger configured from the environment,
// constructors for explicit configurations, and context helpers that carry
// a logger annotated with the bus channel or connection it belongs to.
//
// Components take a *zerolog.Logger through their options and fall back to
// Default when none is given:
//
//	b := bus.New(bus.WithLogger(logging.OrDefault(nil)))
//
//	ctx := logging.WithConnection(ctx, adapter.ID())
//	logging.FromContext(ctx).Debug().Msg("Frame received")
package logging

import (
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger atomic.Pointer[zerolog.Logger]

func init() {
	logger := NewLoggerFromConfig(ConfigFromEnv())
	defaultLogger.Store(&logger)
}

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger, including zerolog's global
// log.Logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger.Store(&logger)
	log.Logger = logger
}

// OrDefault returns logger, or Default when logger is nil.
func OrDefault(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		return Default()
	}
	return logger
}
