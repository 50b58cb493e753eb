package errors

import (
	"errors"
	"fmt"
)

// ConnectionError is a failed dial or a dropped connection.
type ConnectionError struct {
	URL     string
	Attempt int // zero for a connection that dropped after opening
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Attempt == 0 {
		return fmt.Sprintf("connection to %s lost: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("connect to %s (attempt %d): %v", e.URL, e.Attempt, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is matches ErrConnectionFailure.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnectionFailure }

// NewConnectionError creates a ConnectionError.
func NewConnectionError(url string, attempt int, err error) *ConnectionError {
	return &ConnectionError{URL: url, Attempt: attempt, Err: err}
}

// MalformedEnvelopeError is one inbound frame that could not be decoded.
// The frame is dropped; the connection stays open.
type MalformedEnvelopeError struct {
	Channel string // empty when the channel name itself was unreadable
	Message string
	Err     error
}

func (e *MalformedEnvelopeError) Error() string {
	if e.Channel == "" {
		return "malformed envelope: " + e.Message
	}
	return fmt.Sprintf("malformed envelope on %s: %s", e.Channel, e.Message)
}

func (e *MalformedEnvelopeError) Unwrap() error { return e.Err }

// Is matches ErrMalformedEnvelope.
func (e *MalformedEnvelopeError) Is(target error) bool { return target == ErrMalformedEnvelope }

// NewMalformedEnvelopeError creates a MalformedEnvelopeError.
func NewMalformedEnvelopeError(channel, message string, err error) *MalformedEnvelopeError {
	return &MalformedEnvelopeError{Channel: channel, Message: message, Err: err}
}

// WrapMalformed wraps a decode failure; nil stays nil. An error that is
// already malformed only gets its channel filled in.
func WrapMalformed(channel string, err error) error {
	if err == nil {
		return nil
	}
	var m *MalformedEnvelopeError
	if errors.As(err, &m) {
		if m.Channel == "" {
			m.Channel = channel
		}
		return m
	}
	return NewMalformedEnvelopeError(channel, err.Error(), err)
}

// UnknownChannelError is a frame for a channel with no route.
type UnknownChannelError struct {
	Channel string
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("unknown channel %q", e.Channel)
}

// Is matches ErrUnknownChannel.
func (e *UnknownChannelError) Is(target error) bool { return target == ErrUnknownChannel }

// NewUnknownChannelError creates an UnknownChannelError.
func NewUnknownChannelError(channel string) *UnknownChannelError {
	return &UnknownChannelError{Channel: channel}
}

// HandlerError is a subscriber that returned an error or panicked.
type HandlerError struct {
	Channel string
	Handler uint64 // registration id
	Panic   any    // recovered value; nil when the handler returned Err
	Err     error
}

func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("handler %d on channel %s panicked: %v", e.Handler, e.Channel, e.Panic)
	}
	return fmt.Sprintf("handler %d on channel %s failed: %v", e.Handler, e.Channel, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Is matches ErrHandlerFailure.
func (e *HandlerError) Is(target error) bool { return target == ErrHandlerFailure }

// IsConnectionFailure reports whether err is a failed or lost connection.
func IsConnectionFailure(err error) bool { return errors.Is(err, ErrConnectionFailure) }

// IsMalformedEnvelope reports whether err is an undecodable frame.
func IsMalformedEnvelope(err error) bool { return errors.Is(err, ErrMalformedEnvelope) }

// IsUnknownChannel reports whether err is an unroutable frame.
func IsUnknownChannel(err error) bool { return errors.Is(err, ErrUnknownChannel) }

// IsHandlerFailure reports whether err came from a failing subscriber.
func IsHandlerFailure(err error) bool { return errors.Is(err, ErrHandlerFailure) }
