package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/immortalis/archivesync/internal/cmd/output"
	"github.com/immortalis/archivesync/pkg/errors"
)

// Execute runs the archivesync CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand builds the root command, its persistent flags and groups.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "archivesync",
		Short:   "Live view of an archival server's queue and tracked collections",
		Version: a.version,
		Long: `archivesync keeps a local copy of an archival server's scheduled
archivals and tracked collections in step with the server.

It listens for change notifications over a websocket, folds them into the
local collections, and re-fetches full snapshots whenever the connection
opens. It can also queue videos, track channels and search the archive.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is $HOME/.archivesync.yaml)")
	flags.String("server", a.config.ServerURL, "archival server base URL")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringP("format", "o", "", "output format: table, json, yaml, wide")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("archivesync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand runs before every command: it reloads an explicit config
// file, applies changed flags and rebuilds the logger.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if configFile := mustGetString(cmd, "config"); configFile != "" {
		config, v, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		a.config, a.viper = config, v
	}

	a.config.ApplyFlags(cmd.Flags())

	if _, err := output.ParseFormat(a.config.Format); err != nil {
		return errors.NewValidationError("format", a.config.Format, err.Error())
	}

	if !a.customLogger {
		logger := NewLogger(a.config, a.errOut)
		a.logger = &logger
	}

	return nil
}

// registerCommands attaches every subcommand.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(a.NewWatchCommand())
	rootCmd.AddCommand(a.NewListCommand())
	rootCmd.AddCommand(a.NewSearchCommand())

	// Management commands
	rootCmd.AddCommand(a.NewScheduleCommand())
	rootCmd.AddCommand(a.NewTrackCommand())
	rootCmd.AddCommand(a.NewHealthCommand())

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
}

// ExitOnError prints err to stderr and exits 1. Nil is a no-op.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetString reads a flag registered by createRootCommand.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
