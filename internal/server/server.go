// Package server speaks the line-framed JSON protocol machine clients use
// to list and invoke diagnostic tools over stdio.
package server

import (
	"bufio"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/observability"
	"github.com/haasonsaas/netprobe/internal/tools"
)

// drainGrace bounds how long shutdown waits for in-flight calls.
const drainGrace = 10 * time.Second

// maxLine bounds a single request frame.
const maxLine = 1024 * 1024

// Request is one line-framed protocol request.
type Request struct {
	ID     any             `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	// APIKey authenticates the request when the server runs with
	// authentication enabled.
	APIKey string `json:"api_key,omitempty"`
}

// Response is one line-framed protocol response.
type Response struct {
	ID     any          `json:"id,omitempty"`
	Result any          `json:"result,omitempty"`
	Error  *ErrorObject `json:"error,omitempty"`
}

// ErrorObject is the structured error carried on failed requests.
type ErrorObject struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// callToolParams are the parameters of a call_tool request.
type callToolParams struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// textContent is one block of a call_tool result body.
type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// callToolResult is the result object of a call_tool response.
type callToolResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"is_error,omitempty"`
}

// listToolsResult is the result object of a list_tools response.
type listToolsResult struct {
	Tools []ToolSpec `json:"tools"`
}

// Server owns the request/response loop. The registry it is built over
// should run in conversational mode with forced silent and the Sanitize
// egress filter installed.
type Server struct {
	registry *tools.Registry
	logger   *observability.Logger
	metrics  *observability.Metrics

	authEnabled bool
	keyDigest   [sha256.Size]byte

	specs    []ToolSpec
	compiled map[string]*jsonschema.Schema

	writeMu sync.Mutex
	out     io.Writer
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAuth enables API-key authentication with the given secret.
func WithAuth(key string) ServerOption {
	return func(s *Server) {
		s.authEnabled = true
		s.keyDigest = sha256.Sum256([]byte(key))
	}
}

// WithServerLogger installs the server's logger.
func WithServerLogger(l *observability.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithServerMetrics installs protocol metrics.
func WithServerMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// New builds a server over the registry, exporting and validating one
// schema per registered tool. A schema that fails validation aborts
// construction; that is a registration bug, not a runtime condition.
func New(registry *tools.Registry, opts ...ServerOption) (*Server, error) {
	s := &Server{
		registry: registry,
		logger:   observability.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, meta := range registry.List() {
		s.specs = append(s.specs, ToolSpec{
			Name:        meta.Name,
			Description: meta.Description,
			InputSchema: SchemaFor(meta),
		})
	}
	compiled, err := compileSchemas(s.specs)
	if err != nil {
		return nil, err
	}
	s.compiled = compiled
	return s, nil
}

// Serve reads newline-delimited requests from in and writes responses to
// out until EOF or context cancellation. Each request is handled on its
// own goroutine; shutdown drains in-flight calls for a bounded grace
// period.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	var wg sync.WaitGroup
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if line == "" {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.handleLine(ctx, line)
			}()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainGrace):
		s.logger.Warn("shutdown grace period expired with calls in flight")
	}

	select {
	case err := <-scanErr:
		return err
	default:
		return ctx.Err()
	}
}

// handleLine decodes, authenticates, and dispatches one request frame.
// Panics inside a handler become internal_error responses.
func (s *Server) handleLine(ctx context.Context, line string) {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.metrics.ObserveProtocol("unknown", "error")
		s.reply(Response{Error: &ErrorObject{Type: "parse_error", Message: "request is not valid JSON"}})
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("request handler panicked", "method", req.Method, "panic", rec)
			s.metrics.ObserveProtocol(req.Method, "error")
			s.reply(Response{ID: req.ID, Error: &ErrorObject{
				Type:    "internal_error",
				Message: fmt.Sprintf("internal error handling %s", req.Method),
			}})
		}
	}()

	if s.authEnabled && !s.authorized(req.APIKey) {
		s.metrics.ObserveProtocol(req.Method, "unauthorized")
		s.reply(Response{ID: req.ID, Error: &ErrorObject{
			Type:    "authentication_failed",
			Message: "missing or invalid API key",
		}})
		return
	}

	switch req.Method {
	case "list_tools":
		s.metrics.ObserveProtocol(req.Method, "success")
		s.reply(Response{ID: req.ID, Result: listToolsResult{Tools: s.specs}})
	case "call_tool":
		s.handleCallTool(ctx, req)
	default:
		s.metrics.ObserveProtocol(req.Method, "error")
		s.reply(Response{ID: req.ID, Error: &ErrorObject{
			Type:    "method_not_found",
			Message: fmt.Sprintf("unknown method %q", req.Method),
		}})
	}
}

func (s *Server) handleCallTool(ctx context.Context, req Request) {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		s.metrics.ObserveProtocol(req.Method, "error")
		s.reply(Response{ID: req.ID, Error: &ErrorObject{
			Type:    "invalid_params",
			Message: "call_tool requires a name and an args object",
		}})
		return
	}
	if params.Args == nil {
		params.Args = map[string]any{}
	}

	if schema, ok := s.compiled[params.Name]; ok {
		if err := schema.Validate(toValidatable(params.Args)); err != nil {
			s.metrics.ObserveProtocol(req.Method, "error")
			s.reply(Response{ID: req.ID, Error: &ErrorObject{
				Type:    "invalid_params",
				Message: Sanitize(err.Error()),
			}})
			return
		}
	}

	result := s.registry.Execute(ctx, params.Name, params.Args)
	status := "success"
	if !result.Success {
		status = "error"
	}
	s.metrics.ObserveProtocol(req.Method, status)
	s.reply(Response{ID: req.ID, Result: callToolResult{
		Content: []textContent{{Type: "text", Text: FormatResult(result)}},
		IsError: !result.Success,
	}})
}

// authorized compares the presented key against the configured secret in
// constant time.
func (s *Server) authorized(key string) bool {
	digest := sha256.Sum256([]byte(key))
	return subtle.ConstantTimeCompare(digest[:], s.keyDigest[:]) == 1
}

func (s *Server) reply(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", "error", err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.out.Write(append(data, '\n'))
}

// FormatResult renders an envelope as the structured text block machine
// clients display. All text passes through the egress sanitizer.
func FormatResult(res *envelope.Result) string {
	// A refusal that carries manual commands is returned verbatim so the
	// operator can run them by hand.
	if !res.Success {
		if manual, ok := res.ParsedData["manual_commands"].(string); ok && manual != "" {
			return Sanitize(manual)
		}
	}

	var b []byte
	b = append(b, "Tool: "...)
	b = append(b, res.ToolName...)
	b = append(b, '\n')

	if res.Success {
		b = append(b, fmt.Sprintf("Result: success (%.2fs)\n", res.ExecutionTime)...)
	} else {
		b = append(b, fmt.Sprintf("Error: %s - %s\n", res.ErrorType, res.ErrorMessage)...)
		for _, sug := range res.Suggestions {
			b = append(b, "  - "...)
			b = append(b, sug...)
			b = append(b, '\n')
		}
	}

	if res.Stdout != "" {
		b = append(b, "Output:\n```\n"...)
		b = append(b, res.Stdout...)
		if res.Stdout[len(res.Stdout)-1] != '\n' {
			b = append(b, '\n')
		}
		b = append(b, "```\n"...)
	} else if len(res.ParsedData) > 0 {
		data, err := json.MarshalIndent(res.ParsedData, "", "  ")
		if err == nil {
			b = append(b, "Data:\n```json\n"...)
			b = append(b, data...)
			b = append(b, "\n```\n"...)
		}
	}
	return Sanitize(string(b))
}

// toValidatable round-trips args through JSON so the schema validator
// sees canonical types (float64 numbers, []any lists).
func toValidatable(args map[string]any) any {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return args
	}
	return v
}
