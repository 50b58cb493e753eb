package app

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/immortalis/archivesync/internal/cmd/output"
	"github.com/immortalis/archivesync/pkg/query"
)

// healthReport is the health command result.
type healthReport struct {
	Server  string `json:"server" yaml:"server"`
	Healthy bool   `json:"healthy" yaml:"healthy"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// submission is the schedule and track command result.
type submission struct {
	URL     string `json:"url" yaml:"url"`
	Outcome string `json:"outcome" yaml:"outcome"`
}

// render writes data in the configured output format.
func (a *App) render(cmd *cobra.Command, data any) error {
	format := output.DetectFormat(a.config.Format)
	return output.NewFormatter(format).Format(cmd.OutOrStdout(), data)
}

// NewListCommand creates the list command.
func (a *App) NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "core",
		Short:   "List scheduled archivals or tracked collections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "schedules",
		Aliases: []string{"schedule", "scheduled"},
		Short:   "List URLs queued for archiving",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.Client()
			if err != nil {
				return err
			}
			if err := c.Refresh(cmd.Context()); err != nil {
				return err
			}
			return a.render(cmd, output.ScheduledArchivals(c.ScheduledArchivals().List()))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection", "tracked"},
		Short:   "List tracked channels and playlists",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.Client()
			if err != nil {
				return err
			}
			if err := c.Refresh(cmd.Context()); err != nil {
				return err
			}
			return a.render(cmd, output.TrackedCollections(c.TrackedCollections().List()))
		},
	})

	return cmd
}

// NewSearchCommand creates the search command.
func (a *App) NewSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "search [term...]",
		GroupID: "core",
		Short:   "Search archived videos by title",
		Long: `Search archived videos whose title contains the term, newest first.
Without a term every archived video is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.Client()
			if err != nil {
				return err
			}
			videos, err := c.Query().Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.render(cmd, output.Videos(videos))
		},
	}
}

// NewScheduleCommand creates the schedule command.
func (a *App) NewScheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "schedule <url>",
		GroupID: "management",
		Short:   "Queue a video URL for archiving",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.Client()
			if err != nil {
				return err
			}
			outcome, err := c.Query().Schedule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.renderSubmission(cmd, args[0], outcome, "Scheduled", "Already scheduled")
		},
	}
}

// NewTrackCommand creates the track command.
func (a *App) NewTrackCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "track <url>",
		GroupID: "management",
		Short:   "Start tracking a channel or playlist URL",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.Client()
			if err != nil {
				return err
			}
			outcome, err := c.Query().Track(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.renderSubmission(cmd, args[0], outcome, "Tracking", "Already tracked")
		},
	}
}

func (a *App) renderSubmission(cmd *cobra.Command, url string, outcome query.Outcome, created, existing string) error {
	switch output.DetectFormat(a.config.Format) {
	case output.FormatJSON, output.FormatYAML:
		return a.render(cmd, submission{URL: url, Outcome: outcome.String()})
	}
	verb := created
	if outcome == query.Existing {
		verb = existing
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, url)
	return err
}

// NewHealthCommand creates the health command.
func (a *App) NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "health",
		GroupID: "management",
		Short:   "Check whether the server is up",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.Client()
			if err != nil {
				return err
			}
			report := healthReport{Server: c.Query().BaseURL(), Healthy: true}
			healthErr := c.Query().Health(cmd.Context())
			if healthErr != nil {
				report.Healthy = false
				report.Error = healthErr.Error()
			}
			if err := a.render(cmd, report); err != nil {
				return err
			}
			return healthErr
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("archivesync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
				cmd.Printf("  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
		},
	}
}
