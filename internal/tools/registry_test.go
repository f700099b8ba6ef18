package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/haasonsaas/netprobe/internal/envelope"
)

func echoTool(name string, params []ParameterInfo, opts ...func(*Metadata)) *Tool {
	meta := Metadata{Name: name, Description: "test tool", Category: "test", Parameters: params}
	for _, o := range opts {
		o(&meta)
	}
	return &Tool{
		Meta: meta,
		Run: func(ctx context.Context, args map[string]any) *envelope.Result {
			parsed := make(map[string]any, len(args))
			for k, v := range args {
				parsed[k] = v
			}
			return envelope.New(name).Success(parsed)
		},
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	res := r.Execute(context.Background(), "no_such_tool", nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorType != "input" || res.Code != envelope.CodeInvalidTarget {
		t.Errorf("unknown tool = %s/%s, want input/invalid_target", res.ErrorType, res.Code)
	}
}

func TestExecuteModeRestriction(t *testing.T) {
	r := NewRegistry(WithMode("server"))
	tool := echoTool("cli_only", nil, func(m *Metadata) { m.Modes = []string{"cli"} })
	r.Register(tool)

	res := r.Execute(context.Background(), "cli_only", nil)
	if res.Success || res.Code != envelope.CodeInvalidTarget {
		t.Errorf("mode-restricted call = %+v", res)
	}

	open := NewRegistry(WithMode("cli"))
	open.Register(echoTool("cli_only2", nil, func(m *Metadata) { m.Modes = []string{"cli"} }))
	if res := open.Execute(context.Background(), "cli_only2", nil); !res.Success {
		t.Errorf("allowed mode rejected: %+v", res)
	}
}

func TestExecuteMissingBinary(t *testing.T) {
	r := NewRegistry()
	r.Binaries().WithLookup(func(string) (string, bool) { return "", false })
	r.Register(echoTool("needs_nmap", nil, func(m *Metadata) { m.Binaries = []string{"nmap"} }))

	res := r.Execute(context.Background(), "needs_nmap", nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorType != "system" || res.Code != envelope.CodeToolMissing {
		t.Errorf("missing binary = %s/%s, want system/tool_missing", res.ErrorType, res.Code)
	}
}

func TestExecuteDropsUndeclaredArgs(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("echo", []ParameterInfo{
		{Name: "target", Type: TypeString, Required: true},
	}))

	res := r.Execute(context.Background(), "echo", map[string]any{
		"target":     "example.com",
		"undeclared": "dropped",
	})
	if !res.Success {
		t.Fatalf("execute failed: %+v", res)
	}
	if _, ok := res.ParsedData["undeclared"]; ok {
		t.Error("undeclared argument reached the handler")
	}
	if res.ParsedData["target"] != "example.com" {
		t.Errorf("declared argument lost: %v", res.ParsedData)
	}
}

func TestExecuteMissingRequired(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("echo", []ParameterInfo{
		{Name: "target", Type: TypeString, Required: true},
	}))

	res := r.Execute(context.Background(), "echo", nil)
	if res.Success || res.Code != envelope.CodeMissingParameter {
		t.Errorf("missing required = %+v", res)
	}
	if res.ErrorType != "input" {
		t.Errorf("error type = %q, want input", res.ErrorType)
	}
}

func TestExecuteAppliesDefaults(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("echo", []ParameterInfo{
		{Name: "count", Type: TypeInteger, Default: 4},
	}))
	res := r.Execute(context.Background(), "echo", nil)
	if res.ParsedData["count"] != 4 {
		t.Errorf("default not applied: %v", res.ParsedData)
	}
}

func TestExecuteValidatesChoicesAndRanges(t *testing.T) {
	min, max := 1.0, 65535.0
	r := NewRegistry()
	r.Register(echoTool("echo", []ParameterInfo{
		{Name: "record_type", Type: TypeString, Choices: []any{"A", "MX", "TXT"}},
		{Name: "port", Type: TypeInteger, Minimum: &min, Maximum: &max},
	}))

	if res := r.Execute(context.Background(), "echo", map[string]any{"record_type": "BOGUS"}); res.Success || res.Code != envelope.CodeInvalidFormat {
		t.Errorf("bad choice = %+v", res)
	}
	if res := r.Execute(context.Background(), "echo", map[string]any{"port": 70000}); res.Success || res.Code != envelope.CodeInvalidPort {
		t.Errorf("bad port = %+v", res)
	}
	if res := r.Execute(context.Background(), "echo", map[string]any{"record_type": "MX", "port": 443}); !res.Success {
		t.Errorf("valid values rejected: %+v", res)
	}
}

func TestExecuteForcesSilent(t *testing.T) {
	r := NewRegistry(WithForcedSilent())
	r.Register(echoTool("echo", []ParameterInfo{
		{Name: "silent", Type: TypeBoolean, Default: false},
	}))
	res := r.Execute(context.Background(), "echo", map[string]any{"silent": false})
	if res.ParsedData["silent"] != true {
		t.Errorf("silent not forced: %v", res.ParsedData)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{
		Meta: Metadata{Name: "panics"},
		Run: func(ctx context.Context, args map[string]any) *envelope.Result {
			panic("boom")
		},
	})
	res := r.Execute(context.Background(), "panics", nil)
	if res.Success || res.Code != envelope.CodeCommandFailed {
		t.Errorf("panic result = %+v", res)
	}
	if !strings.Contains(res.ErrorMessage, "boom") {
		t.Errorf("panic value lost: %q", res.ErrorMessage)
	}
}

func TestAliasesResolveAndListIsAliasFree(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("ping_host", nil, func(m *Metadata) { m.Aliases = []string{"ping"} }))

	direct := r.Execute(context.Background(), "ping_host", nil)
	aliased := r.Execute(context.Background(), "ping", nil)
	if direct.ToolName != aliased.ToolName {
		t.Errorf("alias produced different tool: %q vs %q", direct.ToolName, aliased.ToolName)
	}

	for _, m := range r.List() {
		if m.Name == "ping" {
			t.Error("alias leaked into List")
		}
	}
}

func TestSanitizerAppliesToTextFields(t *testing.T) {
	r := NewRegistry(WithSanitizer(func(s string) string {
		return strings.ReplaceAll(s, "secret", "[cut]")
	}))
	r.Register(&Tool{
		Meta: Metadata{Name: "leaky"},
		Run: func(ctx context.Context, args map[string]any) *envelope.Result {
			return envelope.New("leaky").Output("a secret here", "").Success(nil)
		},
	})
	res := r.Execute(context.Background(), "leaky", nil)
	if strings.Contains(res.Stdout, "secret") {
		t.Errorf("sanitizer skipped stdout: %q", res.Stdout)
	}
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"count":   float64(3), // JSON decoding delivers numbers as float64
		"host":    "example.com",
		"silent":  "true",
		"servers": []any{"8.8.8.8", "1.1.1.1"},
	}
	if got := IntArg(args, "count", 0); got != 3 {
		t.Errorf("IntArg = %d", got)
	}
	if got := IntArg(args, "missing", 7); got != 7 {
		t.Errorf("IntArg default = %d", got)
	}
	if got := StringArg(args, "host", ""); got != "example.com" {
		t.Errorf("StringArg = %q", got)
	}
	if !BoolArg(args, "silent", false) {
		t.Error("BoolArg string spelling not accepted")
	}
	servers := StringListArg(args, "servers")
	if len(servers) != 2 || servers[0] != "8.8.8.8" {
		t.Errorf("StringListArg = %v", servers)
	}
}
