package archive

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/immortalis/archivesync/pkg/errors"
)

// Layouts accepted for timestamps. The server emits both zoned values and
// database timestamps without a zone; the latter are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// timestamp decodes any of the server's time encodings, including epoch
// milliseconds.
type timestamp struct {
	t *time.Time
}

func (ts *timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		ts.t = nil
		return nil
	}

	if data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return errors.NewParseError("json", "", "invalid timestamp "+string(data), err)
		}
		t := time.UnixMilli(ms).UTC()
		ts.t = &t
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		ts.t = nil
		return nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	ts.t = &t
	return nil
}

// ParseTime parses a timestamp in any of the layouts the server uses.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.NewParseError("json", "", "invalid timestamp "+strconv.Quote(s), nil)
}

// firstTime returns the first non-nil decoded time.
func firstTime(candidates ...timestamp) *time.Time {
	for _, c := range candidates {
		if c.t != nil {
			return c.t
		}
	}
	return nil
}
