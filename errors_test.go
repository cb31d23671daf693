package haxcel

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBridgeErrorWrapping(t *testing.T) {
	err := NewBridgeError(ErrorTypeZeroSizeDestination, "destination of formula has zero size")
	require.Equal(t, "zero_size_destination: destination of formula has zero size", err.Error())
	require.Equal(t, "Error: destination of formula has zero size", err.Text())
	require.Nil(t, err.Unwrap())

	originalErr := errors.New("broken pipe")
	wrappedErr := &BridgeError{
		Type:    ErrorTypeTransportWrite,
		Cause:   originalErr.Error(),
		Wrapped: originalErr,
	}
	require.True(t, errors.Is(wrappedErr, originalErr))

	var bErr *BridgeError
	require.True(t, errors.As(fmt.Errorf("outer: %w", wrappedErr), &bErr))
	require.Equal(t, ErrorTypeTransportWrite, bErr.Type)
}

func TestErrorClassification(t *testing.T) {
	classified := ClassifyError(io.EOF)
	require.Equal(t, ErrorTypeTransportRead, classified.Type)
	require.True(t, errors.Is(classified, io.EOF))

	classified = ClassifyError(fmt.Errorf("read: %w", io.ErrClosedPipe))
	require.Equal(t, ErrorTypeTransportRead, classified.Type)

	classified = ClassifyError(errors.New("write |1: bad file descriptor"))
	require.Equal(t, ErrorTypeTransportWrite, classified.Type)

	original := NewBridgeError(ErrorTypeStagingFailed, "error: not in scope")
	require.Equal(t, original, ClassifyError(original))
}

func TestIsErrorType(t *testing.T) {
	require.False(t, IsErrorType(nil, ErrorTypeTransportRead))
	require.True(t, IsErrorType(io.EOF, ErrorTypeTransportRead))
	require.True(t, IsErrorType(NewBridgeError(ErrorTypeProtocolEmptyType, "x"), ErrorTypeProtocolEmptyType))
	require.False(t, IsErrorType(NewBridgeError(ErrorTypeProtocolEmptyType, "x"), ErrorTypeStagingFailed))
}
