// Package app is the archivesync command line application. An App owns the
// configuration, the logger and a lazily created client, and shuts them down
// together.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/immortalis/archivesync"
	"github.com/immortalis/archivesync/pkg/errors"
)

// App represents the archivesync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config
	viper  *viper.Viper

	// Logger
	logger       *zerolog.Logger
	customLogger bool

	// Diagnostics written outside the logger, such as config warnings
	errOut io.Writer

	// Client instance (lazy-initialized, singleton)
	mu     sync.RWMutex
	client archivesync.Client
}

// New loads configuration and builds an App stamped with build metadata.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		errOut:  os.Stderr,
	}

	config, v, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config
	app.viper = v

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.logger == nil {
		logger := NewLogger(app.config, app.errOut)
		app.logger = &logger
	}

	return app, nil
}

// Version is the release version.
func (a *App) Version() string {
	return a.version
}

// Config is the effective configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger is the CLI logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Client returns the archivesync client, creating it lazily if needed.
func (a *App) Client() (archivesync.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// another goroutine may have won
	if a.client != nil {
		return a.client, nil
	}

	opts := append(a.config.ClientOptions(), archivesync.WithLogger(a.logger))
	c, err := archivesync.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", a.config.ServerURL, err)
	}

	a.client = c
	return c, nil
}

// Shutdown closes the client if one was created.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	c := a.client
	a.client = nil
	a.mu.Unlock()

	if c == nil {
		return nil
	}
	if err := c.Close(); err != nil {
		return err
	}
	return c.Wait(ctx)
}

// Option customizes an App during New.
type Option func(*App) error

// WithConfig replaces the loaded configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger. It is kept even when flags change the
// log level.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		a.customLogger = true
		return nil
	}
}

// WithErrWriter sets where configuration warnings are written.
func WithErrWriter(w io.Writer) Option {
	return func(a *App) error {
		a.errOut = w
		return nil
	}
}

// WithClient sets a custom client instance (useful for testing).
func WithClient(c archivesync.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}
