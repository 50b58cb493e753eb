// Package archive holds the entities synchronized from the archival server
// and the bus channels that carry their changes.
package archive

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/immortalis/archivesync/pkg/errors"
)

// EntityID identifies an entity within its collection. The server uses
// integer ids; other producers may use opaque strings. Both decode into the
// same string form.
type EntityID string

// String returns the id as a string.
func (id EntityID) String() string {
	return string(id)
}

// IsZero reports whether the id is empty.
func (id EntityID) IsZero() bool {
	return id == ""
}

// Less orders ids numerically when both are integers, lexically otherwise.
func (id EntityID) Less(other EntityID) bool {
	a, aerr := strconv.ParseInt(string(id), 10, 64)
	b, berr := strconv.ParseInt(string(other), 10, 64)
	if aerr == nil && berr == nil {
		return a < b
	}
	return id < other
}

// UnmarshalJSON accepts a JSON string or number.
func (id *EntityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EntityID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.NewValidationError("id", string(data), "must be a string or a number")
	}
	*id = EntityID(n.String())
	return nil
}

// Keyed is implemented by every entity that lives in a keyed collection.
type Keyed interface {
	Key() EntityID
}

func requireID(id EntityID) error {
	if id.IsZero() {
		return errors.NewValidationError("id", "", "identity is required")
	}
	return nil
}
