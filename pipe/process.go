// Package pipe runs an interactive interpreter as a child process and
// exchanges line-oriented commands with it.
package pipe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Options configures the interpreter process
type Options struct {
	Command     string
	Args        []string
	WorkingDir  string
	Environment map[string]string

	// Prompt is installed as the interpreter prompt and marks the end of
	// every response. It must not occur in ordinary output.
	Prompt string
	Logger *slog.Logger
}

// Process is a running interpreter. Its stdout and stderr share one pipe so
// diagnostics arrive in order with regular output.
//
// Process is not safe for concurrent use.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	output *os.File
	reader *bufio.Reader
	prompt string
	logger *slog.Logger

	mutex   sync.Mutex
	lastErr error
	closed  bool
}

// Start spawns the interpreter, installs the sentinel prompt and discards the
// startup banner. Cancelling ctx kills the process.
func Start(ctx context.Context, opts Options) (*Process, error) {
	if opts.Command == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}
	if opts.Prompt == "" || strings.ContainsAny(opts.Prompt, "\r\n") {
		return nil, fmt.Errorf("prompt must be a non-empty single line")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	if opts.WorkingDir != "" {
		cmd.Dir = opts.WorkingDir
	}
	if len(opts.Environment) > 0 {
		cmd.Env = os.Environ()
		for key, value := range opts.Environment {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin: %w", err)
	}
	output, outputWriter, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to open output pipe: %w", err)
	}
	cmd.Stdout = outputWriter
	cmd.Stderr = outputWriter

	if err := cmd.Start(); err != nil {
		stdin.Close()
		output.Close()
		outputWriter.Close()
		return nil, fmt.Errorf("failed to start %s: %w", opts.Command, err)
	}
	// The child holds its own copy of the write end.
	outputWriter.Close()

	p := &Process{
		cmd:    cmd,
		stdin:  stdin,
		output: output,
		reader: bufio.NewReader(output),
		prompt: opts.Prompt,
		logger: logger.With(slog.String("command", opts.Command), slog.Int("pid", cmd.Process.Pid)),
	}
	p.logger.Debug("interpreter started")

	if !p.Write(fmt.Sprintf(":set prompt %s\n", strconv.Quote(opts.Prompt+"\n"))) {
		p.kill()
		return nil, fmt.Errorf("failed to set prompt: %w", p.Err())
	}
	banner, ok := p.ReadFullResponse()
	if !ok {
		p.kill()
		return nil, fmt.Errorf("interpreter exited during startup: %w", p.Err())
	}
	p.logger.Debug("interpreter ready", slog.String("banner", banner))
	return p, nil
}

// Write sends text to the interpreter's stdin.
func (p *Process) Write(text string) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		p.lastErr = os.ErrClosed
		return false
	}
	if _, err := io.WriteString(p.stdin, text); err != nil {
		p.lastErr = err
		p.logger.Warn("write failed", slog.Any("error", err))
		return false
	}
	return true
}

// ReadFullResponse reads output up to the next prompt. Output printed on the
// prompt line itself, such as text without a trailing newline, is part of the
// response.
func (p *Process) ReadFullResponse() (string, bool) {
	var lines []string
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil {
			p.setErr(err)
			p.logger.Warn("read failed", slog.Any("error", err))
			return "", false
		}
		line = strings.TrimRight(line, "\r\n")
		if rest, found := strings.CutSuffix(line, p.prompt); found {
			if rest != "" {
				lines = append(lines, rest)
			}
			return strings.Join(lines, "\n"), true
		}
		lines = append(lines, line)
	}
}

// FormatError appends the last OS level error, if any, to msg.
func (p *Process) FormatError(msg string) string {
	if err := p.Err(); err != nil {
		return fmt.Sprintf("%s: %v", msg, err)
	}
	return msg
}

// Pid returns the process id of the interpreter.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Close asks the interpreter to quit and waits for it to exit.
func (p *Process) Close() error {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return nil
	}
	_, _ = io.WriteString(p.stdin, ":q\n")
	p.closed = true
	p.mutex.Unlock()

	p.stdin.Close()
	_, _ = io.Copy(io.Discard, p.reader)
	err := p.cmd.Wait()
	p.output.Close()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("failed to wait for interpreter: %w", err)
	}
	p.logger.Debug("interpreter stopped")
	return nil
}

func (p *Process) kill() {
	_ = p.cmd.Process.Kill()
	_ = p.cmd.Wait()
	p.output.Close()
}

func (p *Process) setErr(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.lastErr = err
}

// Err returns the last OS level error seen on the pipes, if any.
func (p *Process) Err() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.lastErr
}
