package sc2ranks

import (
	"errors"
	"fmt"
)

// TransportError is returned when the API could not be reached or produced no usable value.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("sc2ranks: transport: %v", e.Err)
	}
	return fmt.Sprintf("sc2ranks: transport %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a response body is not valid JSON or has an unexpected shape.
type DecodeError struct {
	URL  string
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("sc2ranks: decode: %v", e.Err)
	}
	return fmt.Sprintf("sc2ranks: decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// APIError carries the error payload reported by sc2ranks itself, e.g. an unknown character.
type APIError struct {
	Message string
	Payload map[string]any
}

func (e *APIError) Error() string {
	return "sc2ranks: api: " + e.Message
}

// ParameterError means the caller did not supply enough to build a request.
type ParameterError struct {
	Param   string
	Message string
}

func (e *ParameterError) Error() string {
	if e.Param == "" {
		return "sc2ranks: parameter: " + e.Message
	}
	return fmt.Sprintf("sc2ranks: parameter %s: %s", e.Param, e.Message)
}

var errNoValue = errors.New("no value returned")

// IsNotFound reports whether err is an error payload returned by the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsUnavailable reports whether err means the service could not be reached.
func IsUnavailable(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
