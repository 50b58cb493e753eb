package change

import (
	"bytes"
	"encoding/json"

	"github.com/immortalis/archivesync/pkg/errors"
)

// Envelope is an immutable change notification for one entity of type T.
// The record always carries the entity's identity; for Delete it may carry
// nothing else, so consumers must not rely on other fields being set.
type Envelope[T any] struct {
	action Action
	record T
}

// New creates an envelope.
func New[T any](action Action, record T) Envelope[T] {
	return Envelope[T]{action: action, record: record}
}

// Action returns the change action.
func (e Envelope[T]) Action() Action {
	return e.action
}

// Record returns the affected entity, full or partial.
func (e Envelope[T]) Record() T {
	return e.record
}

// Validator is implemented by records that can check their own identity.
type Validator interface {
	Validate() error
}

type wireEnvelope struct {
	Action string          `json:"action"`
	Record json.RawMessage `json:"record"`
}

// MarshalJSON encodes the envelope in its wire shape.
func (e Envelope[T]) MarshalJSON() ([]byte, error) {
	record, err := json.Marshal(e.record)
	if err != nil {
		return nil, err
	}
	action, err := e.action.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Action json.RawMessage `json:"action"`
		Record json.RawMessage `json:"record"`
	}{action, record})
}

// Decode decodes an {"action": ..., "record": ...} payload into an
// Envelope[T]. Unknown record fields are ignored. An unknown action, a
// missing record, a record of the wrong shape, or a record that fails its
// own validation yields a MalformedEnvelopeError.
func Decode[T any](data []byte) (Envelope[T], error) {
	var zero Envelope[T]

	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return zero, errors.WrapMalformed("", err)
	}

	action, err := ParseAction(w.Action)
	if err != nil {
		return zero, err
	}

	raw := bytes.TrimSpace(w.Record)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return zero, errors.NewMalformedEnvelopeError("", "missing record", nil)
	}

	var record T
	if err := json.Unmarshal(raw, &record); err != nil {
		return zero, errors.WrapMalformed("", err)
	}

	if v, ok := any(&record).(Validator); ok {
		if err := v.Validate(); err != nil {
			return zero, errors.NewMalformedEnvelopeError("", "invalid record: "+err.Error(), err)
		}
	}

	return New(action, record), nil
}
