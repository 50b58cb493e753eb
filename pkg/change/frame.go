package change

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/immortalis/archivesync/pkg/errors"
)

// Frame is an inbound message from the server, split into the channel it
// is addressed to and its still-encoded envelope.
type Frame struct {
	Channel string
	Payload json.RawMessage
}

type wireFrame struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DecodeFrame reads the channel of an inbound message. Two shapes are
// accepted:
//
//	{"channel": "scheduled_archivals", "data": {"action": "insert", "record": {...}}}
//	{"channel": "scheduled-archival", "action": "insert", "record": {...}}
//
// The envelope itself is decoded later, by the route that knows its type.
func DecodeFrame(data []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return Frame{}, errors.WrapMalformed("", err)
	}

	channel := strings.TrimSpace(w.Channel)
	if channel == "" {
		return Frame{}, errors.NewMalformedEnvelopeError("", "missing channel", nil)
	}

	payload := bytes.TrimSpace(w.Data)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = data
	}

	return Frame{Channel: channel, Payload: json.RawMessage(payload)}, nil
}

// EncodeFrame encodes an envelope in the server's nested frame shape.
func EncodeFrame[T any](channel string, env Envelope[T]) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireFrame{Channel: channel, Data: data})
}
