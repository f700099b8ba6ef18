// Package envelope defines the uniform result object returned by every
// probe invocation, along with the error taxonomy and the central timeout
// table that probes consult instead of hard-coding their own limits.
package envelope

import (
	"time"
)

// Result is the envelope every tool invocation produces, successful or not.
// All fields are always present on the wire; ErrorType and ErrorMessage are
// empty on success, ParsedData is populated on success.
type Result struct {
	Success         bool           `json:"success"`
	ExitCode        int            `json:"exit_code"`
	ExecutionTime   float64        `json:"execution_time"`
	Timestamp       string         `json:"timestamp"`
	ToolName        string         `json:"tool_name"`
	Target          string         `json:"target"`
	CommandExecuted string         `json:"command_executed"`
	OptionsUsed     map[string]any `json:"options_used"`
	Stdout          string         `json:"stdout"`
	Stderr          string         `json:"stderr"`
	ParsedData      map[string]any `json:"parsed_data"`
	ErrorType       string         `json:"error_type"`
	ErrorMessage    string         `json:"error_message"`
	Suggestions     []string       `json:"suggestions,omitempty"`

	// Code is the taxonomy code behind a failure. It stays off the wire;
	// ErrorType carries the category there.
	Code Code `json:"-"`
}

// Builder accumulates envelope fields for a single invocation. The zero
// value is not usable; start with New.
type Builder struct {
	result Result
	start  time.Time
	now    func() time.Time
}

// New starts an envelope for the named tool. The execution clock starts
// immediately.
func New(toolName string) *Builder {
	b := &Builder{now: time.Now}
	b.start = b.now()
	b.result = Result{
		ToolName:    toolName,
		Timestamp:   b.start.Format(time.RFC3339),
		OptionsUsed: map[string]any{},
		ParsedData:  map[string]any{},
	}
	return b
}

// WithClock overrides the envelope's clock. Tests use this to pin
// timestamps and execution times.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	b.start = now()
	b.result.Timestamp = b.start.Format(time.RFC3339)
	return b
}

// Target records the probe's primary target.
func (b *Builder) Target(target string) *Builder {
	b.result.Target = target
	return b
}

// Command records the human-readable command line (or a synthetic
// description for probes that do not shell out).
func (b *Builder) Command(cmd string) *Builder {
	b.result.CommandExecuted = cmd
	return b
}

// Options echoes the effective parameters of the invocation.
func (b *Builder) Options(opts map[string]any) *Builder {
	if opts != nil {
		b.result.OptionsUsed = opts
	}
	return b
}

// Output records the raw stdout and stderr transcripts.
func (b *Builder) Output(stdout, stderr string) *Builder {
	b.result.Stdout = stdout
	b.result.Stderr = stderr
	return b
}

// Success finalizes the envelope as a success with the given parsed data.
func (b *Builder) Success(parsed map[string]any) *Result {
	b.result.Success = true
	b.result.ExitCode = 0
	if parsed != nil {
		b.result.ParsedData = parsed
	}
	b.result.ExecutionTime = b.now().Sub(b.start).Seconds()
	return &b.result
}

// Failure finalizes the envelope as a failure for the given code. The
// message template for the code is formatted against ctx; suggestions for
// the code are attached.
func (b *Builder) Failure(code Code, ctx map[string]any) *Result {
	b.result.Success = false
	if b.result.ExitCode == 0 {
		b.result.ExitCode = 1
	}
	b.result.Code = code
	b.result.ErrorType = string(code.Category())
	b.result.ErrorMessage = FormatMessage(code, ctx)
	b.result.Suggestions = Suggestions(code)
	b.result.ExecutionTime = b.now().Sub(b.start).Seconds()
	return &b.result
}

// FailureMessage is Failure with a literal message instead of a template.
func (b *Builder) FailureMessage(code Code, message string) *Result {
	b.result.Success = false
	if b.result.ExitCode == 0 {
		b.result.ExitCode = 1
	}
	b.result.Code = code
	b.result.ErrorType = string(code.Category())
	b.result.ErrorMessage = message
	b.result.Suggestions = Suggestions(code)
	b.result.ExecutionTime = b.now().Sub(b.start).Seconds()
	return &b.result
}

// ExitCode overrides the exit code recorded on failure (e.g. the literal
// exit status of an external command).
func (b *Builder) ExitCode(code int) *Builder {
	b.result.ExitCode = code
	return b
}
