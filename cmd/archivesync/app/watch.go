package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/immortalis/archivesync/internal/cmd/output"
	"github.com/immortalis/archivesync/pkg/archive"
	"github.com/immortalis/archivesync/pkg/change"
	"github.com/immortalis/archivesync/pkg/constants"
	"github.com/immortalis/archivesync/pkg/realtime"
	"github.com/immortalis/archivesync/pkg/store"
)

// watchLine is one printed collection change.
type watchLine struct {
	Time       time.Time        `json:"time"`
	Collection string           `json:"collection"`
	Kind       string           `json:"kind"`
	Action     change.Action    `json:"action,omitempty"`
	ID         archive.EntityID `json:"id,omitempty"`
	Record     any              `json:"record,omitempty"`
	Size       int              `json:"size"`
	Changes    string           `json:"changes,omitempty"`
}

// watchPrinter serializes change output from the connection goroutine.
type watchPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

func (p *watchPrinter) print(line watchLine) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		_ = json.NewEncoder(p.w).Encode(line)
		return
	}

	ts := line.Time.Format(output.TimeLayout)
	if line.Kind == "replaced" {
		fmt.Fprintf(p.w, "%s  %-20s resync      %d entries (%s)\n", ts, line.Collection, line.Size, line.Changes)
		return
	}
	fmt.Fprintf(p.w, "%s  %-20s %-11s %s\n", ts, line.Collection, line.Action, line.ID)
}

func lineFor[T archive.Keyed](coll *store.Collection[T], e store.Event[T]) watchLine {
	line := watchLine{
		Time:       time.Now(),
		Collection: coll.Name(),
		Kind:       "applied",
		Size:       coll.Len(),
	}
	if e.Kind == store.Replaced {
		line.Kind = "replaced"
		if e.Changes != nil {
			line.Changes = e.Changes.String()
		}
		return line
	}
	line.Action = e.Action
	line.ID = e.Key
	line.Record = e.Record
	return line
}

// NewWatchCommand creates the watch command.
func (a *App) NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		GroupID: "core",
		Short:   "Stream live changes to scheduled archivals and tracked collections",
		Long: `Watch connects to the server's change notifications and prints every
change applied to the local collections until interrupted. Each time the
connection opens, both collections are re-fetched and a resync line is
printed. With -o json every change is printed as one JSON object per line.

If a config file is in use, edits to its log_level take effect immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.watch(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (a *App) watch(ctx context.Context, w io.Writer) error {
	c, err := a.Client()
	if err != nil {
		return err
	}

	format := output.DetectFormat(a.config.Format)
	printer := &watchPrinter{w: w, json: format == output.FormatJSON}

	scheduled, tracked := c.ScheduledArchivals(), c.TrackedCollections()
	defer c.OnScheduledArchival(func(e store.Event[archive.ScheduledArchival]) {
		printer.print(lineFor(scheduled, e))
	})()
	defer c.OnTrackedCollection(func(e store.Event[archive.TrackedCollection]) {
		printer.print(lineFor(tracked, e))
	})()
	defer c.OnStateChange(func(sc realtime.StateChange) {
		event := a.logger.Info()
		if sc.To == realtime.Closed && sc.Reason != realtime.ReasonClientRequested {
			event = a.logger.Warn()
		}
		event.Str("state", sc.To.String()).
			Str("reason", sc.Reason).
			Int("attempt", sc.Attempt).
			Msg("Connection")
	})()

	a.watchConfig()

	c.Connect()
	<-ctx.Done()
	c.Disconnect()

	waitCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	return c.Wait(waitCtx)
}

// watchConfig re-applies log_level whenever the config file changes.
func (a *App) watchConfig() {
	if a.viper == nil || a.viper.ConfigFileUsed() == "" {
		return
	}
	a.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := SetLogLevel(a.viper.GetString("log_level"))
		a.logger.Info().
			Str("file", e.Name).
			Str("level", level.String()).
			Msg("Configuration reloaded")
	})
	a.viper.WatchConfig()
}
