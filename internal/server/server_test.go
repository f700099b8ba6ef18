package server

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/observability"
	"github.com/haasonsaas/netprobe/internal/tools"
)

func TestSanitizeStripsANSIAndControl(t *testing.T) {
	in := "\x1b[31mred\x1b[0m text\x00 with\x07 noise\tkeep\nlines"
	got := Sanitize(in)
	want := "red text with noise\tkeep\nlines"
	if got != want {
		t.Errorf("Sanitize = %q, want %q", got, want)
	}
}

func TestSanitizeMACColons(t *testing.T) {
	got := Sanitize("device at aa:bb:cc:dd:ee:ff responded")
	if !strings.Contains(got, "aa-bb-cc-dd-ee-ff") {
		t.Errorf("MAC colons not hyphenated: %q", got)
	}
}

func TestSanitizeColonRules(t *testing.T) {
	cases := []struct{ in, want string }{
		{"fe80::1", "fe80--1"},
		{"label: value", "label - value"},
		{"no colons here", "no colons here"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"aa:bb:cc:dd:ee:ff",
		"fe80::1%eth0",
		"time: 12:34:56",
		"\x1b[1mbold\x1b[0m: value",
		"plain",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestSchemaForWireTypesAndItems(t *testing.T) {
	minPort, maxPort := 1.0, 65535.0
	meta := tools.Metadata{
		Name: "scan",
		Parameters: []tools.ParameterInfo{
			{Name: "target", Type: tools.TypeString, Required: true},
			{Name: "ports", Type: tools.TypeList, Description: "Ports to probe"},
			{Name: "servers", Type: tools.TypeList},
			{Name: "count", Type: tools.TypeInteger, Default: 4, Minimum: &minPort, Maximum: &maxPort},
			{Name: "ratio", Type: tools.TypeFloat},
			{Name: "silent", Type: tools.TypeBoolean},
			{Name: "extra", Type: tools.TypeDict},
			{Name: "profile", Type: tools.TypeString, Choices: []any{"basic", "quick"}},
		},
	}
	schema := SchemaFor(meta)
	if schema.Type != "object" {
		t.Errorf("type = %q", schema.Type)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "target" {
		t.Errorf("required = %v", schema.Required)
	}

	wantTypes := map[string]string{
		"target": "string", "ports": "array", "servers": "array",
		"count": "integer", "ratio": "number", "silent": "boolean", "extra": "object",
	}
	for name, want := range wantTypes {
		if got := schema.Properties[name].Type; got != want {
			t.Errorf("%s type = %q, want %q", name, got, want)
		}
	}

	ports := schema.Properties["ports"]
	if ports.Items == nil || ports.Items.Type != "integer" {
		t.Errorf("ports items = %+v, want integer", ports.Items)
	}
	servers := schema.Properties["servers"]
	if servers.Items == nil || servers.Items.Type != "string" {
		t.Errorf("servers items = %+v, want string", servers.Items)
	}
	if len(schema.Properties["profile"].Enum) != 2 {
		t.Errorf("profile enum = %v", schema.Properties["profile"].Enum)
	}
	count := schema.Properties["count"]
	if count.Minimum == nil || *count.Minimum != 1 || count.Maximum == nil || *count.Maximum != 65535 {
		t.Errorf("count bounds = %+v", count)
	}
}

func TestFormatResultSuccessWithData(t *testing.T) {
	res := envelope.New("ping_host").Target("8.8.8.8").Success(map[string]any{"packet_loss": 0.0})
	text := FormatResult(res)
	if !strings.Contains(text, "Tool - ping_host") {
		t.Errorf("missing tool heading: %q", text)
	}
	if !strings.Contains(text, "Result - success") {
		t.Errorf("missing result heading: %q", text)
	}
	if !strings.Contains(text, "```json") || !strings.Contains(text, "packet_loss") {
		t.Errorf("missing data block: %q", text)
	}
}

func TestFormatResultFailure(t *testing.T) {
	res := envelope.New("ping_host").Failure(envelope.CodeTimeout,
		map[string]any{"timeout": 5, "target": "example.com"})
	text := FormatResult(res)
	if !strings.Contains(text, "Error - network") {
		t.Errorf("missing error heading: %q", text)
	}
}

func TestFormatResultManualCommands(t *testing.T) {
	res := envelope.New("nmap_os_detection").Failure(envelope.CodePermissionDenied, nil)
	res.ParsedData = map[string]any{"manual_commands": "Run manually\n```\nsudo nmap -O host\n```"}
	text := FormatResult(res)
	if !strings.Contains(text, "sudo nmap -O host") {
		t.Errorf("manual commands not passed through: %q", text)
	}
	if strings.Contains(text, "Tool -") {
		t.Errorf("refusal must replace the structured block: %q", text)
	}
}

func echoRegistry() *tools.Registry {
	r := tools.NewRegistry(tools.WithSanitizer(Sanitize))
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "ping_host",
			Description: "Ping a host.",
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Required: true},
			},
		},
		Run: func(ctx context.Context, args map[string]any) *envelope.Result {
			return envelope.New("ping_host").
				Target(tools.StringArg(args, "target", "")).
				Success(map[string]any{"alive": true})
		},
	})
	return r
}

func serveOne(t *testing.T, srv *Server, request string) Response {
	t.Helper()
	var out bytes.Buffer
	if err := srv.Serve(context.Background(), strings.NewReader(request+"\n"), &out); err != nil && err != context.Canceled {
		t.Fatalf("Serve: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("response not JSON: %v (%q)", err, out.String())
	}
	return resp
}

func TestServeListTools(t *testing.T) {
	srv, err := New(echoRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp := serveOne(t, srv, `{"id":1,"method":"list_tools"}`)
	if resp.Error != nil {
		t.Fatalf("error = %+v", resp.Error)
	}
	raw, _ := json.Marshal(resp.Result)
	var result listToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("result shape: %v", err)
	}
	if len(result.Tools) != 1 || result.Tools[0].Name != "ping_host" {
		t.Errorf("tools = %+v", result.Tools)
	}
	if result.Tools[0].InputSchema.Type != "object" {
		t.Errorf("schema type = %q", result.Tools[0].InputSchema.Type)
	}
}

func TestServeCallTool(t *testing.T) {
	srv, err := New(echoRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp := serveOne(t, srv, `{"id":2,"method":"call_tool","params":{"name":"ping_host","args":{"target":"8.8.8.8"}}}`)
	if resp.Error != nil {
		t.Fatalf("error = %+v", resp.Error)
	}
	raw, _ := json.Marshal(resp.Result)
	var result callToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("result shape: %v", err)
	}
	if result.IsError {
		t.Error("is_error set on success")
	}
	if len(result.Content) != 1 || !strings.Contains(result.Content[0].Text, "ping_host") {
		t.Errorf("content = %+v", result.Content)
	}
}

func TestServeCallToolSchemaRejection(t *testing.T) {
	srv, err := New(echoRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp := serveOne(t, srv, `{"id":3,"method":"call_tool","params":{"name":"ping_host","args":{}}}`)
	if resp.Error == nil || resp.Error.Type != "invalid_params" {
		t.Errorf("error = %+v, want invalid_params (required target missing)", resp.Error)
	}
}

func TestServeUnknownMethod(t *testing.T) {
	srv, err := New(echoRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp := serveOne(t, srv, `{"id":4,"method":"bogus"}`)
	if resp.Error == nil || resp.Error.Type != "method_not_found" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestServeMalformedFrame(t *testing.T) {
	srv, err := New(echoRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp := serveOne(t, srv, `{not json`)
	if resp.Error == nil || resp.Error.Type != "parse_error" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestServeAuth(t *testing.T) {
	srv, err := New(echoRegistry(), WithAuth("secret-key"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp := serveOne(t, srv, `{"id":5,"method":"list_tools"}`)
	if resp.Error == nil || resp.Error.Type != "authentication_failed" {
		t.Errorf("missing key: error = %+v", resp.Error)
	}

	resp = serveOne(t, srv, `{"id":6,"method":"list_tools","api_key":"wrong"}`)
	if resp.Error == nil || resp.Error.Type != "authentication_failed" {
		t.Errorf("wrong key: error = %+v", resp.Error)
	}

	resp = serveOne(t, srv, `{"id":7,"method":"list_tools","api_key":"secret-key"}`)
	if resp.Error != nil {
		t.Errorf("valid key rejected: %+v", resp.Error)
	}
}

func TestServeCallToolObservesEnvelopeOutcome(t *testing.T) {
	r := tools.NewRegistry(tools.WithSanitizer(Sanitize))
	r.Register(&tools.Tool{
		Meta: tools.Metadata{Name: "always_down", Description: "Fails."},
		Run: func(ctx context.Context, args map[string]any) *envelope.Result {
			return envelope.New("always_down").Failure(envelope.CodeUnreachable, map[string]any{"target": "x"})
		},
	})
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	srv, err := New(r, WithServerMetrics(metrics))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp := serveOne(t, srv, `{"id":9,"method":"call_tool","params":{"name":"always_down","args":{}}}`)
	if resp.Error != nil {
		t.Fatalf("protocol error = %+v", resp.Error)
	}
	raw, _ := json.Marshal(resp.Result)
	var result callToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("result shape: %v", err)
	}
	if !result.IsError {
		t.Error("is_error not set on failed envelope")
	}
	if got := testutil.ToFloat64(metrics.ProtocolCalls.WithLabelValues("call_tool", "error")); got != 1 {
		t.Errorf("error observations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ProtocolCalls.WithLabelValues("call_tool", "success")); got != 0 {
		t.Errorf("success observations = %v, want 0", got)
	}
}
