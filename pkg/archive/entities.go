package archive

import (
	"encoding/json"
	"time"
)

// ScheduledArchival is a URL queued for archiving.
type ScheduledArchival struct {
	ID          EntityID   `json:"id" yaml:"id"`
	URL         string     `json:"url,omitempty" yaml:"url,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty" yaml:"scheduledAt,omitempty"`
	NotBefore   *time.Time `json:"notBefore,omitempty" yaml:"notBefore,omitempty"`
}

// Key implements Keyed.
func (s ScheduledArchival) Key() EntityID {
	return s.ID
}

// Validate reports a record without identity.
func (s ScheduledArchival) Validate() error {
	return requireID(s.ID)
}

// UnmarshalJSON accepts camelCase and snake_case field names.
func (s *ScheduledArchival) UnmarshalJSON(data []byte) error {
	var w struct {
		ID           EntityID  `json:"id"`
		URL          string    `json:"url"`
		ScheduledAt  timestamp `json:"scheduledAt"`
		ScheduledAtS timestamp `json:"scheduled_at"`
		NotBefore    timestamp `json:"notBefore"`
		NotBeforeS   timestamp `json:"not_before"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = ScheduledArchival{
		ID:          w.ID,
		URL:         w.URL,
		ScheduledAt: firstTime(w.ScheduledAt, w.ScheduledAtS),
		NotBefore:   firstTime(w.NotBefore, w.NotBeforeS),
	}
	return nil
}

// TrackedCollection is a channel or playlist the server checks for new videos.
type TrackedCollection struct {
	ID                EntityID   `json:"id" yaml:"id"`
	URL               string     `json:"url,omitempty" yaml:"url,omitempty"`
	TrackingStartedAt *time.Time `json:"trackingStartedAt,omitempty" yaml:"trackingStartedAt,omitempty"`
	LastChecked       *time.Time `json:"lastChecked,omitempty" yaml:"lastChecked,omitempty"`
}

// Key implements Keyed.
func (c TrackedCollection) Key() EntityID {
	return c.ID
}

// Validate reports a record without identity.
func (c TrackedCollection) Validate() error {
	return requireID(c.ID)
}

// UnmarshalJSON accepts camelCase and snake_case field names.
func (c *TrackedCollection) UnmarshalJSON(data []byte) error {
	var w struct {
		ID                 EntityID  `json:"id"`
		URL                string    `json:"url"`
		TrackingStartedAt  timestamp `json:"trackingStartedAt"`
		TrackingStartedAtS timestamp `json:"tracking_started_at"`
		LastChecked        timestamp `json:"lastChecked"`
		LastCheckedS       timestamp `json:"last_checked"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = TrackedCollection{
		ID:                w.ID,
		URL:               w.URL,
		TrackingStartedAt: firstTime(w.TrackingStartedAt, w.TrackingStartedAtS),
		LastChecked:       firstTime(w.LastChecked, w.LastCheckedS),
	}
	return nil
}

// Video is an archived video as returned by search.
type Video struct {
	Title            string     `json:"title" yaml:"title"`
	Channel          string     `json:"channel" yaml:"channel"`
	Views            int64      `json:"views" yaml:"views"`
	UploadDate       *time.Time `json:"uploadDate,omitempty" yaml:"uploadDate,omitempty"`
	ArchivedDate     *time.Time `json:"archivedDate,omitempty" yaml:"archivedDate,omitempty"`
	Duration         int64      `json:"duration" yaml:"duration"` // seconds
	ThumbnailAddress string     `json:"thumbnailAddress,omitempty" yaml:"thumbnailAddress,omitempty"`
	VideoSize        int64      `json:"videoSize,omitempty" yaml:"videoSize,omitempty"`
	OriginalURL      string     `json:"originalUrl" yaml:"originalUrl"`
	Status           string     `json:"status,omitempty" yaml:"status,omitempty"`
	FileID           string     `json:"fileId,omitempty" yaml:"fileId,omitempty"`
	ThumbnailID      string     `json:"thumbnailId,omitempty" yaml:"thumbnailId,omitempty"`
}

// DurationValue returns the video length.
func (v Video) DurationValue() time.Duration {
	return time.Duration(v.Duration) * time.Second
}

// UnmarshalJSON accepts the server's mixed time encodings.
func (v *Video) UnmarshalJSON(data []byte) error {
	type plain Video
	var w struct {
		plain
		UploadDate   timestamp `json:"uploadDate"`
		ArchivedDate timestamp `json:"archivedDate"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*v = Video(w.plain)
	v.UploadDate = w.UploadDate.t
	v.ArchivedDate = w.ArchivedDate.t
	return nil
}
