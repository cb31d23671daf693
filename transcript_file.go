package haxcel

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const transcriptExt = ".jsonl"

// FileTranscriptLogger writes one newline-delimited JSON file per session.
// Session ids are time ordered, so sorting the file names sorts the sessions
// by start time.
type FileTranscriptLogger struct {
	directory string
}

func NewFileTranscriptLogger(directory string) *FileTranscriptLogger {
	return &FileTranscriptLogger{directory: directory}
}

func (l *FileTranscriptLogger) sessionPath(sessionID string) string {
	return filepath.Join(l.directory, sessionID+transcriptExt)
}

// Sessions lists the recorded session ids, oldest first. A directory that
// does not exist yet holds no sessions.
func (l *FileTranscriptLogger) Sessions() ([]string, error) {
	files, err := os.ReadDir(l.directory)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sessions []string
	for _, file := range files {
		if id, ok := strings.CutSuffix(file.Name(), transcriptExt); ok && !file.IsDir() {
			sessions = append(sessions, id)
		}
	}
	slices.Sort(sessions)
	return sessions, nil
}

// History reads back a session's round trips in the order they happened.
func (l *FileTranscriptLogger) History(sessionID string) ([]*TranscriptEntry, error) {
	f, err := os.Open(l.sessionPath(sessionID))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []*TranscriptEntry
	scanner := bufio.NewScanner(f)
	// Responses to large takes can exceed the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry TranscriptEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("session %s line %d: %w", sessionID, line, err)
		}
		entries = append(entries, &entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (l *FileTranscriptLogger) LogCommand(entry *TranscriptEntry) error {
	if entry.SessionID == "" {
		return fmt.Errorf("transcript entry %s has no session", entry.ID)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.directory, 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.sessionPath(entry.SessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}
