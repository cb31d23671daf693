package haxcel

import (
	"time"

	"go.jetify.com/typeid"
)

// NewSessionID returns a new identifier for one bridge session
func NewSessionID() string {
	id, err := typeid.WithPrefix("sess")
	if err != nil {
		panic(err)
	}
	return id.String()
}

func newCommandID() string {
	id, err := typeid.WithPrefix("cmd")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// TranscriptEntry records a single round trip to the interpreter
type TranscriptEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Command   string    `json:"command"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
	ErrorType string    `json:"error_type,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	StartTime time.Time `json:"start_time"`
	Duration  float64   `json:"duration"`
}

// TranscriptLogger defines the round trip logging interface
type TranscriptLogger interface {
	// LogCommand logs a completed round trip
	LogCommand(entry *TranscriptEntry) error

	// History retrieves the round trips recorded for a session
	History(sessionID string) ([]*TranscriptEntry, error)
}
