package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/haasonsaas/netprobe/internal/envelope"
	"github.com/haasonsaas/netprobe/internal/sessions"
	"github.com/haasonsaas/netprobe/internal/tools"
)

// scriptedClient returns canned replies in order and records the message
// lists it was called with.
type scriptedClient struct {
	replies []string
	calls   [][]sessions.Message
}

func (c *scriptedClient) Complete(ctx context.Context, messages []sessions.Message) (string, error) {
	c.calls = append(c.calls, append([]sessions.Message(nil), messages...))
	if len(c.replies) == 0 {
		return "", context.Canceled
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	r.Register(&tools.Tool{
		Meta: tools.Metadata{
			Name:        "ping_host",
			Description: "Ping a host and report packet loss.",
			Category:    "connectivity",
			Parameters: []tools.ParameterInfo{
				{Name: "target", Type: tools.TypeString, Required: true},
			},
		},
		Run: func(ctx context.Context, args map[string]any) *envelope.Result {
			return envelope.New("ping_host").
				Target(tools.StringArg(args, "target", "")).
				Success(map[string]any{"packet_loss": 0.0})
		},
	})
	return r
}

func TestConverseToolCallFlow(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"TOOL: ping_host\nARGS: {\"target\": \"8.8.8.8\"}",
		"8.8.8.8 is reachable with no packet loss.",
	}}
	a := New(testRegistry(t), client, nil)

	sess := &sessions.Session{ID: "s1"}
	sess.Append("user", "can you ping 8.8.8.8")

	resp, err := a.Converse(context.Background(), sess, "can you ping 8.8.8.8", false)
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if resp.Content != "8.8.8.8 is reachable with no packet loss." {
		t.Errorf("content = %q", resp.Content)
	}
	if len(resp.ToolsUsed) != 1 || resp.ToolsUsed[0] != "ping_host" {
		t.Errorf("tools_used = %v", resp.ToolsUsed)
	}
	if len(client.calls) != 2 {
		t.Fatalf("inference calls = %d, want 2", len(client.calls))
	}

	history := sess.History()
	// user, assistant tool call, system tool result, assistant summary.
	if len(history) != 4 {
		t.Fatalf("history = %d turns: %+v", len(history), history)
	}
	if history[1].Role != "assistant" || !strings.Contains(history[1].Content, "TOOL: ping_host") {
		t.Errorf("turn 1 = %+v", history[1])
	}
	if history[2].Role != "system" || !strings.HasPrefix(history[2].Content, "Tool result: ") {
		t.Errorf("turn 2 = %+v", history[2])
	}
	if !strings.Contains(history[2].Content, `"success":true`) {
		t.Errorf("tool result not embedded: %q", history[2].Content)
	}
	if history[3].Role != "assistant" {
		t.Errorf("turn 3 = %+v", history[3])
	}
}

func TestConverseFollowupSeesToolResult(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"TOOL: ping_host\nARGS: {\"target\": \"1.1.1.1\"}",
		"done",
	}}
	a := New(testRegistry(t), client, nil)

	sess := &sessions.Session{ID: "s1"}
	sess.Append("user", "ping 1.1.1.1")
	if _, err := a.Converse(context.Background(), sess, "ping 1.1.1.1", false); err != nil {
		t.Fatalf("Converse: %v", err)
	}

	followup := client.calls[1]
	found := false
	for _, m := range followup {
		if strings.HasPrefix(m.Content, "Tool result: ") {
			found = true
		}
	}
	if !found {
		t.Error("follow-up inference did not carry the tool result turn")
	}
	last := followup[len(followup)-1]
	if last.Role != "system" || !strings.Contains(last.Content, "Summarize") {
		t.Errorf("last follow-up turn = %+v", last)
	}
}

func TestConverseViolationDiscardsReply(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"Your DNS is fine, I checked and everything resolves quickly.",
	}}
	a := New(testRegistry(t), client, nil)

	sess := &sessions.Session{ID: "s1"}
	sess.Append("user", "is my DNS working?")

	resp, err := a.Converse(context.Background(), sess, "is my DNS working?", false)
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if len(resp.ToolsUsed) != 0 {
		t.Errorf("tools_used = %v", resp.ToolsUsed)
	}

	history := sess.History()
	for _, m := range history {
		if m.Role == "assistant" {
			t.Errorf("fabricated reply recorded on history: %+v", m)
		}
	}
	last := history[len(history)-1]
	if last.Role != "system" || !strings.Contains(last.Content, "protocol violation") {
		t.Errorf("corrective note missing, last turn = %+v", last)
	}
}

func TestConversePlainChatPassesThrough(t *testing.T) {
	client := &scriptedClient{replies: []string{"Hello! How can I help?"}}
	a := New(testRegistry(t), client, nil)

	sess := &sessions.Session{ID: "s1"}
	sess.Append("user", "hello there")

	resp, err := a.Converse(context.Background(), sess, "hello there", false)
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if resp.Content != "Hello! How can I help?" {
		t.Errorf("content = %q", resp.Content)
	}
	if len(resp.ToolsUsed) != 0 {
		t.Errorf("tools_used = %v", resp.ToolsUsed)
	}
	history := sess.History()
	if history[len(history)-1].Role != "assistant" {
		t.Errorf("plain reply not recorded: %+v", history)
	}
	if len(client.calls) != 1 {
		t.Errorf("inference calls = %d, want 1", len(client.calls))
	}
}

func TestConverseThinkingIncluded(t *testing.T) {
	client := &scriptedClient{replies: []string{"<think>no tools needed</think>Hi."}}
	a := New(testRegistry(t), client, nil)

	sess := &sessions.Session{ID: "s1"}
	sess.Append("user", "hi")

	resp, err := a.Converse(context.Background(), sess, "hi", true)
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if resp.Thinking != "no tools needed" {
		t.Errorf("thinking = %q", resp.Thinking)
	}
	if resp.Content != "Hi." {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestConverseFollowupErrorDegrades(t *testing.T) {
	// One reply only: the follow-up inference fails, but the tool already
	// ran so a raw rendering must come back.
	client := &scriptedClient{replies: []string{
		"TOOL: ping_host\nARGS: {\"target\": \"8.8.8.8\"}",
	}}
	a := New(testRegistry(t), client, nil)

	sess := &sessions.Session{ID: "s1"}
	sess.Append("user", "ping 8.8.8.8")

	resp, err := a.Converse(context.Background(), sess, "ping 8.8.8.8", false)
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if !strings.Contains(resp.Content, "ping_host") || !strings.Contains(resp.Content, "Raw result") {
		t.Errorf("degraded content = %q", resp.Content)
	}
	if len(resp.ToolsUsed) != 1 {
		t.Errorf("tools_used = %v", resp.ToolsUsed)
	}
}

func TestCatalogListsTools(t *testing.T) {
	a := New(testRegistry(t), &scriptedClient{}, nil)
	cat := a.catalog()
	if !strings.Contains(cat, "ping_host(target)") {
		t.Errorf("catalog = %q", cat)
	}
	if !strings.Contains(cat, "Ping a host") {
		t.Errorf("catalog missing description: %q", cat)
	}
}
