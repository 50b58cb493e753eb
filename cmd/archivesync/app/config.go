package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/immortalis/archivesync"
	"github.com/immortalis/archivesync/pkg/constants"
	"github.com/immortalis/archivesync/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "ARCHIVESYNC"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Server configuration
	ServerURL        string
	WebSocketURL     string
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	PingInterval     time.Duration
	Resync           bool
	RefreshInterval  time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by ApplyFlags)
// 2. Environment variables (ARCHIVESYNC_*)
// 3. .env files
// 4. Config file (explicit path, or ~/.archivesync.yaml, or ./.archivesync.yaml)
// 5. Defaults
//
// The returned viper instance is the one the config file was read with.
func LoadConfig(configFile string) (*Config, *viper.Viper, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// The unprefixed logging variables are shared with pkg/logging
	for _, key := range []string{"log_level", "log_format", "log_output"} {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), strings.ToUpper(key)); err != nil {
			return nil, nil, errors.NewConfigError("env", "bind "+key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, errors.NewConfigError("file", "read "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".archivesync")

		// A missing default config file is fine
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, nil, errors.NewConfigError("file", "read default config", err)
			}
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		ServerURL:        v.GetString("server_url"),
		WebSocketURL:     v.GetString("websocket_url"),
		ReconnectInitial: v.GetDuration("reconnect_initial"),
		ReconnectMax:     v.GetDuration("reconnect_max"),
		PingInterval:     v.GetDuration("ping_interval"),
		Resync:           v.GetBool("resync"),
		RefreshInterval:  v.GetDuration("refresh_interval"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	return config, v, nil
}

// setDefaults registers defaults so AutomaticEnv resolves every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("no_color", false)
	v.SetDefault("format", "")
	v.SetDefault("server_url", constants.DefaultServerURL)
	v.SetDefault("websocket_url", "")
	v.SetDefault("reconnect_initial", constants.ReconnectInitialInterval)
	v.SetDefault("reconnect_max", constants.ReconnectMaxInterval)
	v.SetDefault("ping_interval", constants.PingPeriod)
	v.SetDefault("resync", true)
	v.SetDefault("refresh_interval", time.Duration(0))
	v.SetDefault("log_level", "")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// ApplyFlags overrides config values with flags the user actually set, so
// flag defaults never mask the environment or the config file.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) {
	if f := flags.Lookup("verbose"); f != nil && f.Changed {
		c.Verbose, _ = flags.GetBool("verbose")
	}
	if f := flags.Lookup("quiet"); f != nil && f.Changed {
		c.Quiet, _ = flags.GetBool("quiet")
	}
	if f := flags.Lookup("no-color"); f != nil && f.Changed {
		c.NoColor, _ = flags.GetBool("no-color")
	}
	if f := flags.Lookup("format"); f != nil && f.Changed {
		c.Format, _ = flags.GetString("format")
	}
	if f := flags.Lookup("log-level"); f != nil && f.Changed {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if f := flags.Lookup("server"); f != nil && f.Changed {
		c.ServerURL, _ = flags.GetString("server")
	}
}

// ClientOptions translates the configuration into client options.
func (c *Config) ClientOptions() []archivesync.Option {
	opts := []archivesync.Option{
		archivesync.WithServerURL(c.ServerURL),
		archivesync.WithPingInterval(c.PingInterval),
		archivesync.WithResync(c.Resync),
	}
	if c.WebSocketURL != "" {
		opts = append(opts, archivesync.WithWebSocketURL(c.WebSocketURL))
	}
	if c.ReconnectInitial > 0 && c.ReconnectMax > 0 {
		opts = append(opts, archivesync.WithReconnectInterval(c.ReconnectInitial, c.ReconnectMax))
	}
	if c.RefreshInterval > 0 {
		opts = append(opts, archivesync.WithAutoRefresh(c.RefreshInterval))
	}
	return opts
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env; real environment variables win over both.
func loadEnvFiles() {
	envFiles := []string{".env.local", ".env"}
	for _, envFile := range envFiles {
		if _, err := os.Stat(filepath.Clean(envFile)); err == nil {
			_ = godotenv.Load(envFile)
		}
	}
}
