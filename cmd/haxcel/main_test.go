package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	haxcel "github.com/tkx68/Haxcel"
	"github.com/tkx68/Haxcel/emulator"
)

func newEmulatorEvaluator(t *testing.T) (*haxcel.Evaluator, *emulator.Interpreter) {
	t.Helper()
	in := emulator.New(emulator.Options{})
	e, err := haxcel.New(haxcel.Options{Channel: in})
	require.NoError(t, err)
	return e, in
}

func TestRunCommand(t *testing.T) {
	e, in := newEmulatorEvaluator(t)
	config := &Config{}

	require.False(t, runCommand(e, ":a rate 0.5", config))
	rendered, ok := in.Binding("rate")
	require.True(t, ok)
	require.Equal(t, "0.5", rendered)

	require.False(t, runCommand(e, ":e 2x1 [1, 2, 3]", config))
	require.False(t, runCommand(e, ":s bogus [1]", config))
	require.False(t, runCommand(e, "rate * 2", config))
	require.True(t, runCommand(e, ":q", config))
}

func TestBatchStopsAtQuit(t *testing.T) {
	e, in := newEmulatorEvaluator(t)
	require.NoError(t, batch(e, &Config{}, strings.NewReader("1 + 1\n:a y 2\n:q\n:a z 3\n")))

	_, ok := in.Binding("y")
	require.True(t, ok)
	_, ok = in.Binding("z")
	require.False(t, ok, "commands after :q are not run")
}

func TestOpenBackend(t *testing.T) {
	channel, closer, err := openBackend(context.Background(), "emulator", haxcel.DefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, channel)
	require.NoError(t, closer.Close())

	_, _, err = openBackend(context.Background(), "python", haxcel.DefaultConfig(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown backend")
}

func TestBatchStopsWhenInterpreterIsGone(t *testing.T) {
	dir := t.TempDir()
	transcript := haxcel.NewFileTranscriptLogger(dir)
	in := emulator.New(emulator.Options{})
	e, err := haxcel.New(haxcel.Options{Channel: in, Transcript: transcript})
	require.NoError(t, err)

	input := ":a y 2\n:x :q\n:a z 3\n:a w 4\n"
	require.NoError(t, batch(e, &Config{}, strings.NewReader(input)))
	require.True(t, sessionBroken(e))

	entries, err := e.History()
	require.NoError(t, err)
	var commands []string
	for _, entry := range entries {
		commands = append(commands, entry.Command)
	}
	require.Equal(t, []string{"y = 2", ":q", "z = 3"}, commands)
	require.Equal(t, haxcel.ErrorTypeTransportWrite, entries[2].ErrorType)
	require.Equal(t, "file already closed", entries[2].Detail)

	var out bytes.Buffer
	printHistory(&out, entries)
	require.Contains(t, out.String(), "transport_write: Cannot write to interpreter")
	require.Contains(t, out.String(), "Leaving interpreter.")

	var sessions bytes.Buffer
	require.NoError(t, listSessions(&sessions, dir))
	require.Equal(t, e.SessionID()+"\n", sessions.String())
	require.Error(t, listSessions(&sessions, ""))
}
