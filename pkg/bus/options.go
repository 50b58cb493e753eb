package bus

import "github.com/rs/zerolog"

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report handler failures.
func WithLogger(logger *zerolog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// WithErrorHandler sets a callback invoked for every isolated handler failure,
// after it has been logged.
func WithErrorHandler(h ErrorHandler) Option {
	return func(b *Bus) { b.errorHandler = h }
}
