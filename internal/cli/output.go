package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joaolima7/geosegbar/internal/engine"
	"github.com/joaolima7/geosegbar/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation errors, rejected submissions, failing scenarios
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "MISSING_INPUT", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Submission outcomes reported by submit and reprocess.
const (
	OutcomePersisted = "persisted"
	OutcomePartial   = "partial"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

// ReadingView is the output form of a stored reading.
type ReadingView struct {
	ID           string       `json:"id"`
	InstrumentID int64        `json:"instrument_id"`
	MeasuredAt   string       `json:"measured_at"`
	Active       bool         `json:"active"`
	Outcome      string       `json:"outcome"`
	Comment      string       `json:"comment,omitempty"`
	ConfigHash   string       `json:"config_hash"`
	Outputs      []OutputView `json:"outputs"`
}

// OutputView is one computed output of a reading.
type OutputView struct {
	OutputID int64    `json:"output_id"`
	Acronym  string   `json:"acronym"`
	Value    *float64 `json:"value,omitempty"`
	Status   string   `json:"status,omitempty"`
	Error    string   `json:"error,omitempty"`
	Message  string   `json:"message,omitempty"`
}

func newReadingView(r *model.Reading) ReadingView {
	view := ReadingView{
		ID:           r.ID,
		InstrumentID: r.InstrumentID,
		MeasuredAt:   r.MeasuredAt.UTC().Format(time.RFC3339Nano),
		Active:       r.Active,
		Outcome:      OutcomePersisted,
		Comment:      r.Comment,
		ConfigHash:   r.ConfigHash,
		Outputs:      make([]OutputView, 0, len(r.Outputs)),
	}
	if r.HasFailures() {
		view.Outcome = OutcomePartial
	}
	for _, out := range r.Outputs {
		view.Outputs = append(view.Outputs, OutputView{
			OutputID: out.OutputID,
			Acronym:  out.Acronym,
			Value:    out.Value,
			Status:   string(out.Status),
			Error:    string(out.ErrorKind),
			Message:  out.ErrorMessage,
		})
	}
	return view
}

// writeReadingText renders a reading as an aligned output table.
func writeReadingText(w io.Writer, view ReadingView) {
	mark := "✓"
	if view.Outcome == OutcomePartial {
		mark = "!"
	}
	fmt.Fprintf(w, "%s %s %s (instrument %d, measured %s)\n",
		mark, view.ID, view.Outcome, view.InstrumentID, view.MeasuredAt)
	if !view.Active {
		fmt.Fprintln(w, "  (invalidated)")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, out := range view.Outputs {
		value := "-"
		if out.Value != nil {
			value = strconv.FormatFloat(*out.Value, 'f', -1, 64)
		}
		state := out.Status
		if out.Error != "" {
			state = out.Error
			if out.Message != "" {
				state += ": " + out.Message
			}
		}
		fmt.Fprintf(tw, "  %s\t(%d)\t%s\t%s\n", out.Acronym, out.OutputID, value, state)
	}
	tw.Flush()
}

// rejectionDetails returns the JSON details of an engine rejection.
func rejectionDetails(err error) any {
	var rej *engine.RejectionError
	if !errors.As(err, &rej) {
		return nil
	}
	return map[string]any{
		"instrument_id": rej.InstrumentID,
		"acronyms":      rej.Acronyms,
	}
}
