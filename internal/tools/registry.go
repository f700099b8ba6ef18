package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/observability"
)

// SanitizeFunc rewrites outbound text before it leaves the process. The
// registry applies it to the textual envelope fields on egress only;
// parsed data structures are left intact.
type SanitizeFunc func(string) string

// Registry holds every registered tool, resolves aliases, validates
// arguments, and dispatches execution.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*Tool
	aliases  map[string]string
	mode     string
	silent   bool
	sanitize SanitizeFunc
	binaries *BinaryCache
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithMode sets the execution mode ("cli", "interactive", "server") used
// to enforce per-tool mode restrictions.
func WithMode(mode string) Option { return func(r *Registry) { r.mode = mode } }

// WithForcedSilent makes every execution run with silent=true regardless
// of what the caller passed. The protocol server uses this so tools never
// prompt or print to the shared stdio channel.
func WithForcedSilent() Option { return func(r *Registry) { r.silent = true } }

// WithSanitizer installs an egress sanitizer for textual result fields.
func WithSanitizer(fn SanitizeFunc) Option { return func(r *Registry) { r.sanitize = fn } }

// WithLogger installs the registry's logger.
func WithLogger(l *observability.Logger) Option { return func(r *Registry) { r.logger = l } }

// WithMetrics installs execution metrics.
func WithMetrics(m *observability.Metrics) Option { return func(r *Registry) { r.metrics = m } }

// NewRegistry builds an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:    make(map[string]*Tool),
		aliases:  make(map[string]string),
		binaries: NewBinaryCache(),
		logger:   observability.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool and its aliases. Registering a name twice is a
// programming error and panics during startup wiring.
func (r *Registry) Register(tool *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Meta.Name
	if _, exists := r.tools[name]; exists {
		panic(fmt.Sprintf("tools: duplicate registration of %q", name))
	}
	if _, exists := r.aliases[name]; exists {
		panic(fmt.Sprintf("tools: %q already registered as an alias", name))
	}
	r.tools[name] = tool
	for _, alias := range tool.Meta.Aliases {
		if _, exists := r.tools[alias]; exists {
			panic(fmt.Sprintf("tools: alias %q collides with a tool name", alias))
		}
		r.aliases[alias] = name
	}
}

// Resolve maps a name or alias to its canonical tool.
func (r *Registry) Resolve(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns the metadata of every registered tool, alias-free and
// sorted by name.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.tools))
	for _, tool := range r.tools {
		out = append(out, tool.Meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted canonical tool names.
func (r *Registry) Names() []string {
	metas := r.List()
	names := make([]string, len(metas))
	for i, m := range metas {
		names[i] = m.Name
	}
	return names
}

// Execute validates and runs the named tool. It never returns nil and
// never panics: every failure mode maps onto the error taxonomy.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) *envelope.Result {
	tool, ok := r.Resolve(name)
	if !ok {
		return envelope.New(name).Failure(envelope.CodeInvalidTarget,
			map[string]any{"target": name, "reason": "unknown tool"})
	}
	meta := tool.Meta

	if len(meta.Modes) > 0 && r.mode != "" && !contains(meta.Modes, r.mode) {
		return envelope.New(meta.Name).FailureMessage(envelope.CodeInvalidTarget,
			fmt.Sprintf("Tool '%s' is not available in %s mode", meta.Name, r.mode))
	}

	for _, bin := range meta.Binaries {
		if _, ok := r.binaries.Lookup(bin); !ok {
			return envelope.New(meta.Name).Failure(envelope.CodeToolMissing,
				map[string]any{"tool": bin})
		}
	}

	cleaned, failure := r.prepareArgs(meta, args)
	if failure != nil {
		return failure
	}
	if r.silent {
		if _, declared := meta.Param("silent"); declared {
			cleaned["silent"] = true
		}
	}

	r.logger.Debug("executing tool", "tool", meta.Name, "args", len(cleaned))
	res := r.run(ctx, tool, cleaned)
	r.metrics.ObserveExecution(meta.Name, res.Success, res.ExecutionTime)
	if r.sanitize != nil {
		res.Stdout = r.sanitize(res.Stdout)
		res.Stderr = r.sanitize(res.Stderr)
		res.ErrorMessage = r.sanitize(res.ErrorMessage)
	}
	return res
}

func (r *Registry) run(ctx context.Context, tool *Tool, args map[string]any) (res *envelope.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", tool.Meta.Name, "panic", rec)
			res = envelope.New(tool.Meta.Name).
				FailureMessage(envelope.CodeCommandFailed, fmt.Sprintf("tool panicked: %v", rec))
		}
	}()
	res = tool.Run(ctx, args)
	if res == nil {
		res = envelope.New(tool.Meta.Name).
			FailureMessage(envelope.CodeCommandFailed, "tool returned no result")
	}
	return res
}

// prepareArgs drops undeclared arguments, applies defaults, checks
// required parameters, and enforces declared choices and ranges.
func (r *Registry) prepareArgs(meta Metadata, args map[string]any) (map[string]any, *envelope.Result) {
	cleaned := make(map[string]any, len(meta.Parameters))
	for key, value := range args {
		if _, declared := meta.Param(key); declared {
			cleaned[key] = value
		}
	}
	for _, p := range meta.Parameters {
		v, present := cleaned[p.Name]
		if !present {
			if p.Required {
				return nil, envelope.New(meta.Name).Failure(envelope.CodeMissingParameter,
					map[string]any{"parameter": p.Name, "tool": meta.Name})
			}
			if p.Default != nil {
				cleaned[p.Name] = p.Default
			}
			continue
		}
		if fail := validateParam(meta.Name, p, v); fail != nil {
			return nil, fail
		}
	}
	return cleaned, nil
}

func validateParam(toolName string, p ParameterInfo, v any) *envelope.Result {
	if len(p.Choices) > 0 {
		matched := false
		for _, choice := range p.Choices {
			if fmt.Sprintf("%v", choice) == fmt.Sprintf("%v", v) {
				matched = true
				break
			}
		}
		if !matched {
			return envelope.New(toolName).FailureMessage(envelope.CodeInvalidFormat,
				fmt.Sprintf("Invalid value %v for parameter '%s'", v, p.Name))
		}
	}
	if p.Minimum != nil || p.Maximum != nil {
		n, ok := Float64(v)
		if !ok {
			return envelope.New(toolName).FailureMessage(envelope.CodeInvalidFormat,
				fmt.Sprintf("Parameter '%s' must be numeric", p.Name))
		}
		if (p.Minimum != nil && n < *p.Minimum) || (p.Maximum != nil && n > *p.Maximum) {
			code := envelope.CodeInvalidFormat
			if strings.Contains(p.Name, "port") {
				code = envelope.CodeInvalidPort
			}
			return envelope.New(toolName).Failure(code,
				map[string]any{"port": fmt.Sprintf("%v", v), "parameter": p.Name, "value": fmt.Sprintf("%v", v)})
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
