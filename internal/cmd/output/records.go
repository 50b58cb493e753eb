package output

import (
	"fmt"
	"strconv"
	"time"

	"github.com/immortalis/archivesync/pkg/archive"
)

// TimeLayout is the table rendering of timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// ScheduledArchivals renders scheduled archivals as a table.
type ScheduledArchivals []archive.ScheduledArchival

// Table implements Tabular.
func (s ScheduledArchivals) Table(wide bool) Data {
	d := Data{Headers: []string{"ID", "URL", "Scheduled"}}
	if wide {
		d.Headers = append(d.Headers, "Not Before")
	}
	for _, item := range s {
		row := []string{item.ID.String(), item.URL, formatTime(item.ScheduledAt)}
		if wide {
			row = append(row, formatTime(item.NotBefore))
		}
		d.Rows = append(d.Rows, row)
	}
	return d
}

// TrackedCollections renders tracked collections as a table.
type TrackedCollections []archive.TrackedCollection

// Table implements Tabular.
func (c TrackedCollections) Table(wide bool) Data {
	d := Data{Headers: []string{"ID", "URL", "Last Checked"}}
	if wide {
		d.Headers = append(d.Headers, "Tracking Since")
	}
	for _, item := range c {
		row := []string{item.ID.String(), item.URL, formatTime(item.LastChecked)}
		if wide {
			row = append(row, formatTime(item.TrackingStartedAt))
		}
		d.Rows = append(d.Rows, row)
	}
	return d
}

// Videos renders archived videos as a table.
type Videos []archive.Video

// Table implements Tabular.
func (v Videos) Table(wide bool) Data {
	d := Data{
		Headers:         []string{"Title", "Channel", "Duration", "Views"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight},
	}
	if wide {
		d.Headers = append(d.Headers, "Uploaded", "Archived", "Status", "File ID", "Original URL")
		d.ColumnAlignment = append(d.ColumnAlignment, AlignDefault, AlignDefault, AlignDefault, AlignDefault, AlignDefault)
	}
	for _, video := range v {
		row := []string{
			video.Title,
			video.Channel,
			formatDuration(video.DurationValue()),
			strconv.FormatInt(video.Views, 10),
		}
		if wide {
			row = append(row, formatTime(video.UploadDate), formatTime(video.ArchivedDate), video.Status, video.FileID, video.OriginalURL)
		}
		d.Rows = append(d.Rows, row)
	}
	return d
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(TimeLayout)
}

// formatDuration renders h:mm:ss, or m:ss under an hour.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	total := int64(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
