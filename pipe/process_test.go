package pipe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const helperEnv = "HAXCEL_WANT_HELPER_PROCESS"

// TestHelperProcess is not a real test. It is re-executed as the child
// process and behaves like a minimal interactive interpreter.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	fakeInterpreter()
	os.Exit(0)
}

func fakeInterpreter() {
	prompt := "fake> "
	fmt.Fprint(os.Stdout, "Fake interpreter, version 0.1\n"+prompt)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		command, arg, _ := strings.Cut(line, " ")
		switch command {
		case ":set":
			if value, ok := strings.CutPrefix(arg, "prompt "); ok {
				if unquoted, err := strconv.Unquote(value); err == nil {
					prompt = unquoted
				}
			}
		case ":q":
			fmt.Fprintln(os.Stdout, "Leaving.")
			return
		case "echo":
			fmt.Fprintln(os.Stdout, arg)
		case "lines":
			for _, part := range strings.Split(arg, "|") {
				fmt.Fprintln(os.Stdout, part)
			}
		case "partial":
			fmt.Fprint(os.Stdout, arg)
		case "err":
			fmt.Fprintln(os.Stderr, arg)
		case "env":
			fmt.Fprintln(os.Stdout, os.Getenv(arg))
		case "pwd":
			dir, _ := os.Getwd()
			fmt.Fprintln(os.Stdout, dir)
		case "crash":
			os.Exit(3)
		case "silent":
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		}
		fmt.Fprint(os.Stdout, prompt)
	}
}

func startHelper(t *testing.T, opts Options) *Process {
	t.Helper()
	opts.Command = os.Args[0]
	opts.Args = []string{"-test.run=^TestHelperProcess$"}
	if opts.Environment == nil {
		opts.Environment = map[string]string{}
	}
	opts.Environment[helperEnv] = "1"
	if opts.Prompt == "" {
		opts.Prompt = "<<haxcel>>"
	}
	p, err := Start(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func send(t *testing.T, p *Process, command string) string {
	t.Helper()
	require.True(t, p.Write(command+"\n"))
	response, ok := p.ReadFullResponse()
	require.True(t, ok)
	return response
}

func TestStartValidation(t *testing.T) {
	_, err := Start(context.Background(), Options{Prompt: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "command cannot be empty")

	_, err = Start(context.Background(), Options{Command: "ghci", Prompt: "a\nb"})
	require.Error(t, err)

	_, err = Start(context.Background(), Options{Command: "/does/not/exist/ghci", Prompt: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to start")
}

func TestRoundTrips(t *testing.T) {
	p := startHelper(t, Options{})
	require.Positive(t, p.Pid())

	require.Equal(t, "hello", send(t, p, "echo hello"))
	require.Equal(t, "", send(t, p, "silent"))
	require.Equal(t, "a\nb\nc", send(t, p, "lines a|b|c"))
	require.Equal(t, "no newline", send(t, p, "partial no newline"))
	require.Equal(t, "boom", send(t, p, "err boom"))
	require.Equal(t, "after", send(t, p, "echo after"))
}

func TestEnvironmentAndWorkingDir(t *testing.T) {
	dir := t.TempDir()
	p := startHelper(t, Options{
		WorkingDir:  dir,
		Environment: map[string]string{"HAXCEL_SHEET": "budget"},
	})
	require.Equal(t, "budget", send(t, p, "env HAXCEL_SHEET"))

	wd := send(t, p, "pwd")
	want, err := os.Stat(dir)
	require.NoError(t, err)
	got, err := os.Stat(wd)
	require.NoError(t, err)
	require.True(t, os.SameFile(want, got))
}

func TestCrashBreaksChannel(t *testing.T) {
	p := startHelper(t, Options{})
	require.True(t, p.Write("crash\n"))
	_, ok := p.ReadFullResponse()
	require.False(t, ok)
	require.Equal(t, "Error: Cannot read: EOF", p.FormatError("Error: Cannot read"))
	require.ErrorIs(t, p.Err(), io.EOF)
}

func TestWriteAfterClose(t *testing.T) {
	p := startHelper(t, Options{})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	require.False(t, p.Write("echo x\n"))
	require.ErrorIs(t, p.Err(), os.ErrClosed)
	require.Contains(t, p.FormatError("Error: Cannot write"), "file already closed")
}
