// Package errors defines the typed errors of archivesync. Each type maps to
// a sentinel through its Is method, so callers classify failures with the
// Is* helpers instead of type switches:
//
//	if errors.IsMalformedEnvelope(err) {
//	    // one frame was dropped; the connection is fine
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Aliases for the standard library, so callers need a single import.
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

// Sentinels matched by the typed errors.
var (
	ErrConnectionFailure = errors.New("connection failure")
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrUnknownChannel    = errors.New("unknown channel")
	ErrHandlerFailure    = errors.New("handler failure")

	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrServerUnavailable = errors.New("server unavailable")
)

// ValidationError is rejected input: an option, a URL, or an entity
// without an identity.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is matches ErrInvalidInput.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError creates a ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError is a failed query API request. StatusCode is zero when no
// response arrived.
type APIError struct {
	Endpoint   string // "GET /schedule"
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is maps 404 to ErrNotFound, 400 to ErrInvalidInput and 5xx to
// ErrServerUnavailable.
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return target == ErrNotFound
	case e.StatusCode == http.StatusBadRequest:
		return target == ErrInvalidInput
	case e.StatusCode >= http.StatusInternalServerError:
		return target == ErrServerUnavailable
	}
	return false
}

// Retryable reports whether repeating the request may succeed: no
// response, 429, or a server error.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// NewAPIError creates an APIError for a response.
func NewAPIError(endpoint string, statusCode int, message string) *APIError {
	return &APIError{Endpoint: endpoint, StatusCode: statusCode, Message: message}
}

// ParseError is a body or file that could not be decoded.
type ParseError struct {
	Format  string // "json", "yaml"
	Source  string // endpoint or file name
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse %s: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("parse %s from %s: %s", e.Format, e.Source, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError creates a ParseError.
func NewParseError(format, source, message string, err error) *ParseError {
	return &ParseError{Format: format, Source: source, Message: message, Err: err}
}

// ConfigError is an unreadable or invalid configuration source.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	msg := "config " + e.Component + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ResourceError adds the operation and the resource it was applied to.
type ResourceError struct {
	Operation string // "fetch", "create"
	Resource  string // "scheduled archivals", "client"
	ID        string
	Err       error
}

func (e *ResourceError) Error() string {
	target := e.Resource
	if e.ID != "" {
		target += " " + e.ID
	}
	return fmt.Sprintf("%s %s: %v", e.Operation, target, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// NewResourceError creates a ResourceError.
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Err: err}
}

// WrapResource wraps err in a ResourceError; nil stays nil.
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps err in a ParseError; nil stays nil.
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, source, err.Error(), err)
}

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidationError reports whether err is rejected input.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsServerUnavailable reports whether err is a server-side failure.
func IsServerUnavailable(err error) bool { return errors.Is(err, ErrServerUnavailable) }
