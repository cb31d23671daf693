package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	haxcel "github.com/tkx68/Haxcel"
	"github.com/tkx68/Haxcel/cell"
	"github.com/tkx68/Haxcel/emulator"
	"github.com/tkx68/Haxcel/pipe"
)

// CLI configuration
type Config struct {
	ConfigFile    string
	Backend       string
	Modules       []string
	EvalExpr      string
	ShowExpr      string
	Shape         string
	TranscriptDir string
	ListSessions  bool
	Verbose       bool
	JSON          bool
}

func main() {
	config := parseFlags()

	cfg := haxcel.DefaultConfig()
	if config.ConfigFile != "" {
		var err error
		cfg, err = haxcel.LoadConfig(config.ConfigFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if config.TranscriptDir != "" {
		cfg.TranscriptDir = config.TranscriptDir
	}
	cfg.Modules = append(cfg.Modules, config.Modules...)

	logger := setupLogger(cfg, config.Verbose)

	if config.ListSessions {
		if err := listSessions(os.Stdout, cfg.TranscriptDir); err != nil {
			log.Fatalf("Failed to list sessions: %v", err)
		}
		return
	}

	dest, err := haxcel.ParseShape(config.Shape)
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}

	channel, closer, err := openBackend(context.Background(), config.Backend, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start interpreter: %v", err)
	}
	defer closer.Close()

	var transcript haxcel.TranscriptLogger = haxcel.NewNullTranscriptLogger()
	if cfg.TranscriptDir != "" {
		transcript = haxcel.NewFileTranscriptLogger(cfg.TranscriptDir)
	}

	evaluator, err := haxcel.New(haxcel.Options{
		Channel:     channel,
		TempBinding: cfg.TempBinding,
		Logger:      logger,
		Transcript:  transcript,
	})
	if err != nil {
		closer.Close()
		log.Fatalf("Failed to create evaluator: %v", err)
	}
	if cfg.TranscriptDir != "" {
		color.Blue("Transcript: %s", cfg.TranscriptDir)
	}

	for _, module := range cfg.Modules {
		color.Blue("Loading %s", module)
		if response := evaluator.Load(module); response != "" {
			fmt.Println(response)
		}
	}

	switch {
	case config.EvalExpr != "":
		printValue(evaluator.Eval(config.EvalExpr, dest), config.JSON)
	case config.ShowExpr != "":
		printValue(evaluator.Show(config.ShowExpr, dest), config.JSON)
	case isatty.IsTerminal(os.Stdin.Fd()):
		interactive(evaluator, config)
	default:
		if err := batch(evaluator, config, os.Stdin); err != nil {
			closer.Close()
			color.Red("Error: %v", err)
			os.Exit(1)
		}
	}
}

func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.ConfigFile, "config", "", "Path to a YAML configuration file (optional)")
	flag.StringVar(&config.ConfigFile, "c", "", "Path to a YAML configuration file (shorthand)")

	flag.StringVar(&config.Backend, "backend", "ghci", "Interpreter backend: ghci or emulator")

	var moduleFlags stringSlice
	flag.Var(&moduleFlags, "load", "Module to load at startup (can be used multiple times)")
	flag.Var(&moduleFlags, "l", "Module to load at startup (shorthand, can be used multiple times)")

	flag.StringVar(&config.EvalExpr, "eval", "", "Evaluate an expression, converting numbers, and exit")
	flag.StringVar(&config.EvalExpr, "e", "", "Evaluate an expression (shorthand)")
	flag.StringVar(&config.ShowExpr, "show", "", "Evaluate an expression as text and exit")
	flag.StringVar(&config.Shape, "shape", "1x1", "Destination shape as WxH")

	flag.StringVar(&config.TranscriptDir, "transcript", "", "Directory to store round trip transcripts (optional)")
	flag.StringVar(&config.TranscriptDir, "t", "", "Directory to store round trip transcripts (shorthand)")

	flag.BoolVar(&config.ListSessions, "sessions", false, "List the sessions recorded in the transcript directory and exit")

	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&config.Verbose, "v", false, "Enable verbose logging (shorthand)")
	flag.BoolVar(&config.JSON, "json", false, "Print results as JSON")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `haxcel - evaluate interpreter expressions into spreadsheet-shaped results

Usage: %s [options]

Examples:
  # Evaluate the first five elements of an infinite list into a column
  %s -eval "[1..]" -shape 1x5

  # Start an interactive session with a module loaded
  %s -load Finance.hs

  # Try the bridge without an interpreter installed
  %s -backend emulator -eval "[[1, 2], [3, 4]]" -shape 2x2

Options:
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
		flag.PrintDefaults()

		fmt.Fprintf(os.Stderr, `
Session commands:
  :l <module>         - Load a module
  :r                  - Reload loaded modules
  :a <name> <expr>    - Bind name to expr
  :e <WxH> <expr>     - Evaluate expr into a WxH region, converting numbers
  :s <WxH> <expr>     - Evaluate expr into a WxH region as text
  :x <command>        - Send a raw command
  :h                  - Show this session's round trips
  :q                  - Quit
  <expr>              - Evaluate expr into a single cell

`)
	}

	flag.Parse()
	config.Modules = moduleFlags
	return config
}

// Custom flag type for handling multiple module values
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func setupLogger(cfg *haxcel.Config, verbose bool) *slog.Logger {
	level, err := cfg.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	if cfg.Log.JSON {
		return haxcel.NewJSONLogger(os.Stderr, level)
	}
	return haxcel.NewLogger(os.Stderr, level)
}

func openBackend(ctx context.Context, backend string, cfg *haxcel.Config, logger *slog.Logger) (haxcel.Channel, io.Closer, error) {
	switch backend {
	case "emulator":
		in := emulator.New(emulator.Options{Logger: logger})
		return in, in, nil
	case "ghci", "":
		process, err := pipe.Start(ctx, pipe.Options{
			Command:     cfg.Interpreter.Command,
			Args:        cfg.Interpreter.Args,
			WorkingDir:  cfg.Interpreter.WorkingDir,
			Environment: cfg.Interpreter.Environment,
			Prompt:      cfg.Interpreter.Prompt,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return process, process, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func interactive(evaluator *haxcel.Evaluator, config *Config) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	color.Green("Session %s", evaluator.SessionID())
	for {
		input, err := line.Prompt("haxcel> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Printf("\n")
			return
		}
		if err != nil {
			color.Red("Error: %v", err)
			return
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)
		if quit := runCommand(evaluator, input, config); quit || sessionBroken(evaluator) {
			return
		}
	}
}

func batch(evaluator *haxcel.Evaluator, config *Config, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		input := scanner.Text()
		if strings.TrimSpace(input) == "" {
			continue
		}
		if quit := runCommand(evaluator, input, config); quit || sessionBroken(evaluator) {
			return nil
		}
	}
	return scanner.Err()
}

// sessionBroken reports whether the last command lost the interpreter, after
// which no later command can succeed.
func sessionBroken(evaluator *haxcel.Evaluator) bool {
	err := evaluator.Err()
	if haxcel.IsErrorType(err, haxcel.ErrorTypeTransportRead) || haxcel.IsErrorType(err, haxcel.ErrorTypeTransportWrite) {
		color.Red("Interpreter connection lost: %v", err)
		return true
	}
	return false
}

func listSessions(w io.Writer, dir string) error {
	if dir == "" {
		return fmt.Errorf("no transcript directory configured")
	}
	sessions, err := haxcel.NewFileTranscriptLogger(dir).Sessions()
	if err != nil {
		return err
	}
	for _, id := range sessions {
		fmt.Fprintln(w, id)
	}
	return nil
}

func printHistory(w io.Writer, entries []*haxcel.TranscriptEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, entry := range entries {
		outcome := entry.Response
		if entry.ErrorType != "" {
			outcome = entry.ErrorType + ": " + entry.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			entry.StartTime.Format("15:04:05.000"), entry.Command, strings.ReplaceAll(outcome, "\n", " | "))
	}
	tw.Flush()
}

// runCommand executes one session command and reports whether the session
// should end.
func runCommand(evaluator *haxcel.Evaluator, input string, config *Config) bool {
	input = strings.TrimSpace(input)
	command, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch command {
	case ":q", ":quit":
		return true
	case ":l", ":load":
		printText(evaluator.Load(rest))
	case ":r", ":reload":
		printText(evaluator.Reload())
	case ":x":
		printText(evaluator.Execute(rest))
	case ":h", ":history":
		entries, err := evaluator.History()
		if err != nil {
			color.Red("Error: %v", err)
			return false
		}
		printHistory(os.Stdout, entries)
	case ":a", ":assign":
		name, expr, ok := strings.Cut(rest, " ")
		if !ok {
			color.Red("Error: usage :a <name> <expr>")
			return false
		}
		result := evaluator.Assign(name, strings.TrimSpace(expr))
		if result == name {
			color.Green("%s bound", name)
		} else {
			printText(result)
		}
	case ":e", ":eval", ":s", ":show":
		shape, expr, ok := strings.Cut(rest, " ")
		dest, err := haxcel.ParseShape(shape)
		if !ok || err != nil {
			color.Red("Error: usage %s <WxH> <expr>", command)
			return false
		}
		if command == ":s" || command == ":show" {
			printValue(evaluator.Show(strings.TrimSpace(expr), dest), config.JSON)
		} else {
			printValue(evaluator.Eval(strings.TrimSpace(expr), dest), config.JSON)
		}
	default:
		printValue(evaluator.Eval(input, haxcel.Shape{Width: 1, Height: 1}), config.JSON)
	}
	return false
}

func printText(text string) {
	if text == "" {
		return
	}
	if strings.HasPrefix(text, cell.ErrorPrefix) {
		color.Red("%s", text)
		return
	}
	fmt.Println(text)
}

func printValue(value cell.Value, asJSON bool) {
	if asJSON {
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			color.Red("Error formatting result: %v", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	switch value.Kind() {
	case cell.KindMissing:
		color.Yellow("#N/A")
	case cell.KindArray:
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		for row := 0; row < value.Height(); row++ {
			cells := make([]string, value.Width())
			for col := range cells {
				c := value.At(row, col)
				if c.Kind() == cell.KindMissing {
					cells[col] = "#N/A"
				} else {
					cells[col] = c.String()
				}
			}
			fmt.Fprintln(w, strings.Join(cells, "\t")+"\t")
		}
		w.Flush()
	default:
		if value.IsError() {
			color.Red("%s", value.Text())
			return
		}
		fmt.Println(value.String())
	}
}
