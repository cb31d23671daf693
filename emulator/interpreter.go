// Package emulator provides an in-process interpreter that speaks the same
// line protocol as the interactive interpreter the bridge drives, using Risor
// as the expression language. It serves as a test double and as a backend
// for running the bridge without an external interpreter installed.
package emulator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/risor-io/risor/object"
)

var (
	assignPattern     = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=([^=].*)$`)
	takePattern       = regexp.MustCompile(`^take\s+(\d+)\s+([A-Za-z_][A-Za-z0-9_]*)$`)
	takeNestedPattern = regexp.MustCompile(`^take\s+(\d+)\s+\(map\s+\(take\s+(\d+)\)\s+([A-Za-z_][A-Za-z0-9_]*)\)$`)
	namePattern       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Options configures an Interpreter
type Options struct {
	Logger *slog.Logger
}

// Interpreter is an in-memory Channel. Each Write runs one command and
// queues its response for the following ReadFullResponse.
type Interpreter struct {
	mutex    sync.Mutex
	bindings map[string]object.Object
	loaded   []string
	pending  *string
	closed   bool
	lastErr  error
	logger   *slog.Logger
}

// New returns an Interpreter with no bindings.
func New(opts Options) *Interpreter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Interpreter{
		bindings: map[string]object.Object{},
		logger:   logger,
	}
}

// Write runs one command line.
func (in *Interpreter) Write(text string) bool {
	in.mutex.Lock()
	defer in.mutex.Unlock()

	if in.closed {
		in.lastErr = os.ErrClosed
		return false
	}
	response := in.handle(strings.TrimSpace(text))
	in.pending = &response
	return true
}

// ReadFullResponse returns the response to the last command. It fails when
// nothing was written since the last read or the interpreter has quit.
func (in *Interpreter) ReadFullResponse() (string, bool) {
	in.mutex.Lock()
	defer in.mutex.Unlock()

	if in.pending == nil {
		if in.lastErr == nil {
			in.lastErr = io.EOF
		}
		return "", false
	}
	response := *in.pending
	in.pending = nil
	return response, true
}

// FormatError appends the last channel error to msg.
func (in *Interpreter) FormatError(msg string) string {
	in.mutex.Lock()
	defer in.mutex.Unlock()

	if in.lastErr == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, in.lastErr)
}

// Err returns the last channel error, if any.
func (in *Interpreter) Err() error {
	in.mutex.Lock()
	defer in.mutex.Unlock()
	return in.lastErr
}

// Close shuts the interpreter down; later writes fail.
func (in *Interpreter) Close() error {
	in.mutex.Lock()
	defer in.mutex.Unlock()

	in.closed = true
	in.pending = nil
	return nil
}

// Binding returns the rendered value of a binding.
func (in *Interpreter) Binding(name string) (string, bool) {
	in.mutex.Lock()
	defer in.mutex.Unlock()

	value, ok := in.bindings[name]
	if !ok {
		return "", false
	}
	return render(value), true
}

func (in *Interpreter) handle(command string) string {
	in.logger.Debug("emulator command", slog.String("command", command))

	switch {
	case command == "":
		return ""
	case command == ":q" || command == ":quit":
		in.closed = true
		return "Leaving interpreter."
	case command == ":r" || command == ":reload":
		return in.reload()
	case strings.HasPrefix(command, ":l ") || strings.HasPrefix(command, ":load "):
		_, path, _ := strings.Cut(command, " ")
		return in.load(strings.Fields(path))
	case strings.HasPrefix(command, ":t ") || strings.HasPrefix(command, ":type "):
		_, name, _ := strings.Cut(command, " ")
		return in.typeOf(strings.TrimSpace(name))
	case strings.HasPrefix(command, ":"):
		return fmt.Sprintf("unknown command '%s'", command)
	}

	if m := takeNestedPattern.FindStringSubmatch(command); m != nil {
		rows, _ := strconv.Atoi(m[1])
		cols, _ := strconv.Atoi(m[2])
		value, err := in.lookup(m[3])
		if err != nil {
			return err.Error()
		}
		result, err := takeNested(rows, cols, value)
		if err != nil {
			return "error: " + err.Error()
		}
		return render(result)
	}
	if m := takePattern.FindStringSubmatch(command); m != nil {
		n, _ := strconv.Atoi(m[1])
		value, err := in.lookup(m[2])
		if err != nil {
			return err.Error()
		}
		result, err := take(n, value)
		if err != nil {
			return "error: " + err.Error()
		}
		return render(result)
	}
	if m := assignPattern.FindStringSubmatch(command); m != nil {
		return in.assign(m[1], strings.TrimSpace(m[2]))
	}
	if namePattern.MatchString(command) {
		if value, ok := in.bindings[command]; ok {
			return render(value)
		}
	}

	value, err := in.eval(command)
	if err != nil {
		return "error: " + err.Error()
	}
	return render(value)
}

func (in *Interpreter) assign(name, expression string) string {
	value, err := in.eval(expression)
	if err != nil {
		return "error: " + err.Error()
	}
	in.bindings[name] = value
	return ""
}

func (in *Interpreter) eval(expression string) (object.Object, error) {
	globals := builtinGlobals()
	for name, value := range in.bindings {
		globals[name] = value
	}
	return newEngine(globals).eval(context.Background(), expression)
}

func (in *Interpreter) lookup(name string) (object.Object, error) {
	value, ok := in.bindings[name]
	if !ok {
		return nil, fmt.Errorf("error: Variable not in scope: %s", name)
	}
	return value, nil
}

func (in *Interpreter) typeOf(name string) string {
	value, err := in.lookup(name)
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("%s :: %s", name, typeName(value))
}

// load runs files of "name = expression" lines. Blank lines and lines
// starting with "--" are skipped.
func (in *Interpreter) load(paths []string) string {
	if len(paths) == 0 {
		return "error: no module given"
	}
	in.loaded = paths
	count := 0
	for _, path := range paths {
		n, err := in.loadFile(path)
		count += n
		if err != nil {
			return err.Error()
		}
	}
	return fmt.Sprintf("Ok, %d bindings loaded.", count)
}

func (in *Interpreter) reload() string {
	if len(in.loaded) == 0 {
		return "Ok, no modules loaded."
	}
	return in.load(in.loaded)
}

func (in *Interpreter) loadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("error: can't find file: %s", path)
	}
	defer f.Close()

	count := 0
	lineNo := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		m := assignPattern.FindStringSubmatch(line)
		if m == nil {
			return count, fmt.Errorf("%s:%d: error: expected a binding", path, lineNo)
		}
		if response := in.assign(m[1], strings.TrimSpace(m[2])); response != "" {
			return count, fmt.Errorf("%s:%d: %s", path, lineNo, response)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("%s: error: %v", path, err)
	}
	return count, nil
}
