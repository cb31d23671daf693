package haxcel

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tkx68/Haxcel/cell"
)

// DefaultTempBinding is the interpreter-side name every evaluated expression
// is staged under. Reusing one name lets the interpreter reclaim the previous
// value.
const DefaultTempBinding = "hk_temp"

// Channel is the line-oriented pipe to the interpreter process.
type Channel interface {
	// Write sends text to the interpreter. It returns false on failure.
	Write(text string) bool

	// ReadFullResponse blocks until the interpreter's complete response to
	// the last command is available. It returns false if the channel is
	// broken.
	ReadFullResponse() (string, bool)

	// FormatError decorates msg with channel diagnostics such as the last
	// OS error.
	FormatError(msg string) string
}

// errorSource is implemented by channels that keep the OS level error behind
// their last failure.
type errorSource interface {
	Err() error
}

// Options configures a new Evaluator
type Options struct {
	Channel     Channel
	TempBinding string
	SessionID   string
	Logger      *slog.Logger
	Transcript  TranscriptLogger
}

// Evaluator bridges host requests to an interpreter over a Channel.
//
// An Evaluator is not safe for concurrent use. Every evaluation overwrites
// the same interpreter-side temporary binding, so callers must serialize
// access to one Evaluator (and to the interpreter process behind it).
type Evaluator struct {
	channel    Channel
	temp       string
	sessionID  string
	logger     *slog.Logger
	transcript TranscriptLogger
	lastErr    *BridgeError
}

// New returns an Evaluator configured with the given options.
func New(opts Options) (*Evaluator, error) {
	if opts.Channel == nil {
		return nil, fmt.Errorf("channel is required")
	}
	if opts.TempBinding == "" {
		opts.TempBinding = DefaultTempBinding
	}
	if strings.ContainsAny(opts.TempBinding, " \t\r\n=") {
		return nil, fmt.Errorf("invalid temporary binding name %q", opts.TempBinding)
	}
	if opts.SessionID == "" {
		opts.SessionID = NewSessionID()
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.Transcript == nil {
		opts.Transcript = NewNullTranscriptLogger()
	}
	return &Evaluator{
		channel:    opts.Channel,
		temp:       opts.TempBinding,
		sessionID:  opts.SessionID,
		logger:     opts.Logger.With(slog.String("session", opts.SessionID)),
		transcript: opts.Transcript,
	}, nil
}

// SessionID returns the identifier under which round trips are recorded
func (e *Evaluator) SessionID() string {
	return e.sessionID
}

// Err returns the transport failure of the most recent round trip, or nil if
// it completed. When the channel reports its own error the failure wraps it.
func (e *Evaluator) Err() error {
	if e.lastErr == nil {
		return nil
	}
	return e.lastErr
}

// History returns the round trips recorded for this session so far.
func (e *Evaluator) History() ([]*TranscriptEntry, error) {
	return e.transcript.History(e.sessionID)
}

// TempBinding returns the name expressions are staged under
func (e *Evaluator) TempBinding() string {
	return e.temp
}

// Execute sends one command and returns the interpreter's full response.
// Transport failures are returned as error text, never as a Go error.
func (e *Evaluator) Execute(command string) string {
	response, err := e.roundTrip(command)
	if err != nil {
		return e.channel.FormatError(err.Text())
	}
	return response
}

// Load loads an interpreter source module and returns its diagnostics
// verbatim.
func (e *Evaluator) Load(module string) string {
	return e.Execute(":l " + module)
}

// Reload reloads the loaded modules and returns the diagnostics verbatim.
func (e *Evaluator) Reload() string {
	return e.Execute(":r")
}

// Assign binds name to expression. The interpreter is silent on success, in
// which case name is returned. Any output is returned verbatim instead; an
// error and unexpected chatter cannot be told apart.
func (e *Evaluator) Assign(name, expression string) string {
	response := e.Execute(fmt.Sprintf("%s = %s", name, expression))
	if response == "" {
		return name
	}
	return response
}

// Show evaluates expression and fits the result into dest, keeping every
// element as text.
func (e *Evaluator) Show(expression string, dest Shape) cell.Value {
	return e.evaluate(expression, dest, AsText)
}

// Eval evaluates expression and fits the result into dest, turning elements
// into numbers where they parse as one.
func (e *Evaluator) Eval(expression string, dest Shape) cell.Value {
	return e.evaluate(expression, dest, AsNumber)
}

// EvalWith evaluates expression with a caller supplied scalar converter.
func (e *Evaluator) EvalWith(expression string, dest Shape, convert ScalarConverter) cell.Value {
	return e.evaluate(expression, dest, convert)
}

func (e *Evaluator) evaluate(expression string, dest Shape, convert ScalarConverter) cell.Value {
	// Staged directly rather than through Assign, which would replace an
	// empty response with the binding name.
	staged := e.Execute(fmt.Sprintf("%s = %s", e.temp, expression))
	if staged != "" {
		e.warn(NewBridgeError(ErrorTypeStagingFailed, staged), expression)
		return cell.FromString(staged)
	}

	signature, err := e.typeOf(e.temp)
	if err != nil {
		e.warn(err, expression)
		if err.Type == ErrorTypeTransportRead {
			return cell.FromString(e.channel.FormatError(err.Text()))
		}
		return cell.FromString(err.Text())
	}

	structure := ClassifyType(signature)
	e.logger.Debug("classified result",
		slog.String("signature", signature),
		slog.String("structure", structure.String()),
		slog.String("dest", dest.String()))

	switch structure {
	case StructureListOfLists:
		return e.showListOfLists(dest, convert)
	case StructureList:
		return e.showList(dest, convert)
	default:
		return convert(strings.TrimSpace(e.Execute(e.temp)))
	}
}

// typeOf asks the interpreter for the type signature of a binding.
func (e *Evaluator) typeOf(name string) (string, *BridgeError) {
	response, err := e.roundTrip(":t " + name)
	if err != nil {
		if err.Type == ErrorTypeTransportWrite {
			return "", &BridgeError{
				Type:    ErrorTypeTransportWrite,
				Cause:   "Cannot ask interpreter the type",
				Wrapped: err,
			}
		}
		return "", err
	}
	signature := strings.TrimSpace(response)
	if signature == "" {
		return "", NewBridgeError(ErrorTypeProtocolEmptyType, "no type response from interpreter")
	}
	return signature, nil
}

// showList fetches a flat list into a one-dimensional destination. The list
// is filled along the width when the destination is wider than one column,
// else along the height.
func (e *Evaluator) showList(dest Shape, convert ScalarConverter) cell.Value {
	if dest.Width <= 0 || dest.Height <= 0 {
		return e.zeroSize(dest)
	}
	cols := dest.Height
	if dest.Width > 1 {
		cols = dest.Width
	}

	list := strings.TrimSpace(e.Execute(fmt.Sprintf("take %d %s", cols, e.temp)))
	tokens := splitList(trimBrackets(list))
	if len(tokens) == 0 {
		return cell.Missing()
	}

	results := make([]cell.Value, 0, cols)
	for _, token := range tokens {
		results = append(results, convert(token))
	}
	return cell.FromArray(dest.Width, dest.Height, results)
}

// showListOfLists fetches the top-left Width x Height corner of a list of
// lists in a single round trip.
func (e *Evaluator) showListOfLists(dest Shape, convert ScalarConverter) cell.Value {
	if dest.Width <= 0 || dest.Height <= 0 {
		return e.zeroSize(dest)
	}

	list := strings.TrimSpace(e.Execute(fmt.Sprintf("take %d (map (take %d) %s)", dest.Height, dest.Width, e.temp)))
	if strings.TrimSpace(trimBrackets(list)) == "" {
		return cell.Missing()
	}

	// Splitting the whole rendering on the separator leaves bracket runs
	// attached to the first and last element of each row.
	tokens := splitList(list)
	results := make([]cell.Value, 0, dest.Width*dest.Height)
	for _, token := range tokens {
		results = append(results, convert(trimBrackets(token)))
	}
	return cell.FromArray(dest.Width, dest.Height, results)
}

func (e *Evaluator) zeroSize(dest Shape) cell.Value {
	err := NewBridgeError(ErrorTypeZeroSizeDestination, "destination of formula has zero size")
	e.logger.Warn("refusing multi-valued result",
		slog.String("dest", dest.String()),
		slog.String("error_type", err.Type))
	return cell.FromString(err.Text())
}

func (e *Evaluator) warn(err *BridgeError, expression string) {
	e.logger.Warn("evaluation failed",
		slog.String("expression", expression),
		slog.String("error_type", err.Type),
		slog.String("error", err.Cause))
}

// roundTrip writes one newline-terminated command and blocks for the
// response. Every round trip is recorded in the transcript.
func (e *Evaluator) roundTrip(command string) (string, *BridgeError) {
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	start := time.Now()

	var response string
	var bErr *BridgeError
	if !e.channel.Write(command) {
		bErr = NewBridgeError(ErrorTypeTransportWrite, "Cannot write to interpreter")
	} else if r, ok := e.channel.ReadFullResponse(); !ok {
		bErr = NewBridgeError(ErrorTypeTransportRead, "Cannot read from interpreter")
	} else {
		response = r
	}

	duration := time.Since(start)
	trimmed := strings.TrimSuffix(command, "\n")
	e.logger.Debug("round trip",
		slog.String("command", trimmed),
		slog.Int("response_bytes", len(response)),
		slog.Duration("duration", duration))

	entry := &TranscriptEntry{
		ID:        newCommandID(),
		SessionID: e.sessionID,
		Command:   trimmed,
		Response:  response,
		StartTime: start,
		Duration:  duration.Seconds(),
	}
	if bErr != nil {
		if source, ok := e.channel.(errorSource); ok {
			bErr.Wrapped = source.Err()
		}
		entry.Error = bErr.Cause
		entry.ErrorType = bErr.Type
		if bErr.Wrapped != nil {
			entry.Detail = bErr.Wrapped.Error()
		}
		e.logger.Warn("transport failure",
			slog.String("command", trimmed),
			slog.String("error_type", bErr.Type),
			slog.Any("error", bErr.Wrapped))
	}
	e.lastErr = bErr
	if err := e.transcript.LogCommand(entry); err != nil {
		e.logger.Error("failed to record round trip", slog.Any("error", err))
	}
	return response, bErr
}
