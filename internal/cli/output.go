package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/roach88/focusql/internal/compiler"
	"github.com/roach88/focusql/internal/postprocess"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Envelope with success=false, failed scenarios
	ExitCommandError = 2 // Bad flags, unreadable config, missing paths
)

// ExitError represents an error with a specific exit code.
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
	if err == nil {
		return ExitSuccess
	}
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
	ErrWriter io.Writer // verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the JSON shape of commands that do not print an envelope.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

// Success outputs a successful result. Text mode prints text, or data
// when text is empty.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.isJSON() {
		return writeJSON(f.Writer, CLIResponse{Status: "ok", Data: data})
	}
	if text == "" {
		text = fmt.Sprint(data)
	}
	fmt.Fprintln(f.Writer, text)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return writeJSON(f.Writer, CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Envelope prints a response envelope. JSON mode prints it verbatim.
func (f *OutputFormatter) Envelope(env *compiler.Envelope) error {
	if f.isJSON() {
		return writeJSON(f.Writer, env)
	}

	w := f.Writer
	status := "ok"
	if !env.Success {
		status = "failed"
	}
	fmt.Fprintf(w, "%s %v", status, env.Metadata["operation"])
	for _, key := range []string{"entity", "mode", "strategy", "count", "hasMore", "fromCache", "invalidated"} {
		if v, ok := env.Metadata[key]; ok {
			fmt.Fprintf(w, " %s=%v", key, v)
		}
	}
	fmt.Fprintln(w)

	if env.Error != nil {
		fmt.Fprintf(w, "Error [%s]: %s\n", env.Error.Kind, env.Error.Message)
		if env.Error.Remediation != "" {
			fmt.Fprintf(w, "Remediation: %s\n", env.Error.Remediation)
		}
		if f.Verbose && env.Error.RawMessage != "" {
			fmt.Fprintf(w, "Raw: %s\n", env.Error.RawMessage)
		}
	}
	if f.Verbose {
		fmt.Fprintf(w, "request %v in %vms\n", env.Metadata["requestId"], env.Metadata["queryTimeMs"])
	}

	switch data := env.Data.(type) {
	case nil:
	case []postprocess.Record:
		for _, r := range data {
			fmt.Fprintln(w, formatRecord(r))
		}
	default:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// formatRecord renders "id  name  key=value ..." with the remaining keys
// sorted.
func formatRecord(r postprocess.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %v", r[postprocess.IDField])
	if name, ok := r["name"]; ok {
		fmt.Fprintf(&b, "  %v", name)
	}
	keys := make([]string, 0, len(r))
	for k := range r {
		if k != postprocess.IDField && k != "name" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		if r[k] == nil {
			continue
		}
		fmt.Fprintf(&b, "  %s=%v", k, r[k])
	}
	return b.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
