package haxcel

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Error type constants for classifying bridge failures
const (
	// ErrorTypeTransportWrite indicates the channel refused a write
	ErrorTypeTransportWrite = "transport_write"

	// ErrorTypeTransportRead indicates the channel produced no response or
	// was disconnected
	ErrorTypeTransportRead = "transport_read"

	// ErrorTypeProtocolEmptyType indicates type introspection returned nothing
	ErrorTypeProtocolEmptyType = "protocol_empty_type"

	// ErrorTypeStagingFailed indicates that assigning an expression to the
	// temporary binding produced output. The interpreter is silent on a
	// successful assignment, so any output is taken as an evaluation error.
	ErrorTypeStagingFailed = "staging_failed"

	// ErrorTypeZeroSizeDestination indicates a multi-valued result was
	// requested for a destination with a zero dimension
	ErrorTypeZeroSizeDestination = "zero_size_destination"
)

// BridgeError represents a classified failure of one bridge call.
// It supports Go's error wrapping patterns with Unwrap() method
type BridgeError struct {
	Type    string `json:"type"`
	Cause   string `json:"cause"`
	Wrapped error  `json:"-"`
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Cause)
}

// Unwrap implements the error unwrapping interface for Go's errors.Is and errors.As
func (e *BridgeError) Unwrap() error {
	return e.Wrapped
}

// Text returns the message placed into the host's cell for this failure.
func (e *BridgeError) Text() string {
	return "Error: " + e.Cause
}

// NewBridgeError creates a new BridgeError with the specified type and cause.
func NewBridgeError(errorType, cause string) *BridgeError {
	return &BridgeError{
		Type:  errorType,
		Cause: cause,
	}
}

// ClassifyError attempts to classify a regular error into a BridgeError
func ClassifyError(err error) *BridgeError {
	var bridgeError *BridgeError
	if errors.As(err, &bridgeError) {
		return bridgeError
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) {
		return &BridgeError{
			Type:    ErrorTypeTransportRead,
			Cause:   err.Error(),
			Wrapped: err,
		}
	}
	return &BridgeError{
		Type:    ErrorTypeTransportWrite,
		Cause:   err.Error(),
		Wrapped: err,
	}
}

// IsErrorType checks if an error classifies as the given error type
func IsErrorType(err error, errorType string) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).Type == errorType
}
