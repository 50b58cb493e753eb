// Package change defines the change envelope: the (action, record) pair that
// describes one change to one entity, and the wire frame that carries it.
package change

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/immortalis/archivesync/pkg/errors"
)

// Action identifies what kind of change occurred.
type Action string

// Change actions. Every channel accepts all three; a producer that never
// emits Update simply never sends it.
const (
	Insert Action = "insert"
	Update Action = "update"
	Delete Action = "delete"
)

// ParseAction converts a wire value into an Action. Matching is
// case-insensitive. Unrecognized values are never guessed.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case Insert, Update, Delete:
		return a, nil
	default:
		return "", errors.NewMalformedEnvelopeError("", fmt.Sprintf("unknown action %q", s), nil)
	}
}

// String returns the wire spelling of the action.
func (a Action) String() string {
	return string(a)
}

// Valid reports whether a is one of the recognized actions.
func (a Action) Valid() bool {
	switch a {
	case Insert, Update, Delete:
		return true
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (a Action) MarshalJSON() ([]byte, error) {
	if !a.Valid() {
		return nil, errors.NewMalformedEnvelopeError("", fmt.Sprintf("unknown action %q", string(a)), nil)
	}
	return json.Marshal(string(a))
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.WrapMalformed("", err)
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
