package haxcel

// NullTranscriptLogger is a no-op implementation of TranscriptLogger.
type NullTranscriptLogger struct{}

func NewNullTranscriptLogger() *NullTranscriptLogger {
	return &NullTranscriptLogger{}
}

func (l *NullTranscriptLogger) LogCommand(entry *TranscriptEntry) error {
	return nil
}

func (l *NullTranscriptLogger) History(sessionID string) ([]*TranscriptEntry, error) {
	return nil, nil
}
