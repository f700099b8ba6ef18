// Package agent orchestrates a single-shot tool-call protocol between a
// chat model and the tool registry.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/netprobe/internal/observability"
	"github.com/haasonsaas/netprobe/internal/sessions"
	"github.com/haasonsaas/netprobe/internal/tools"
)

const systemPromptHeader = `You are a network diagnostics assistant. You have access to real
diagnostic tools and MUST use them to answer network questions. Never
fabricate tool output or invent measurements.

To call a tool, reply with exactly:
TOOL: <tool_name>
ARGS: <one-line JSON object>

Call at most one tool per reply. After the tool result arrives you will
be asked to summarize it for the user.

Available tools:
`

const violationNote = `Your previous reply answered a network question without calling a
tool. That is a protocol violation: you must call a tool with the
TOOL:/ARGS: syntax rather than inventing results. The reply was
discarded.`

// Agent runs conversational turns: one inference, optional tool
// execution, and a follow-up inference to phrase the result.
type Agent struct {
	registry *tools.Registry
	client   Client
	logger   *observability.Logger
}

// New builds an agent over a registry and a model client.
func New(registry *tools.Registry, client Client, logger *observability.Logger) *Agent {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Agent{registry: registry, client: client, logger: logger}
}

// catalog renders the tool list for the system prompt: name, signature,
// and the first line of the description.
func (a *Agent) catalog() string {
	var sb strings.Builder
	for _, meta := range a.registry.List() {
		sb.WriteString("- ")
		sb.WriteString(meta.Name)
		sb.WriteByte('(')
		for i, p := range meta.Parameters {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Name)
			if !p.Required {
				sb.WriteByte('?')
			}
		}
		sb.WriteString("): ")
		desc := meta.Description
		if nl := strings.IndexByte(desc, '\n'); nl >= 0 {
			desc = desc[:nl]
		}
		sb.WriteString(desc)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Converse implements sessions.Orchestrator. The user turn is already
// on the session history when this is called.
func (a *Agent) Converse(ctx context.Context, sess *sessions.Session, prompt string, includeThinking bool) (*sessions.Response, error) {
	messages := append([]sessions.Message{
		{Role: "system", Content: systemPromptHeader + a.catalog()},
	}, sess.History()...)

	reply, err := a.client.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	thinking, visible := ExtractThinking(reply)

	call, hasCall := ParseToolCall(visible)
	if !hasCall {
		if IsNetworkQuestion(prompt) {
			// Fabricated answer to a network question: discard it and
			// steer the next turn.
			a.logger.Warn("protocol violation", "session_id", sess.ID)
			sess.Append("system", violationNote)
			resp := &sessions.Response{
				Content:   "I need to run a diagnostic tool to answer that. Please ask again.",
				ToolsUsed: []string{},
			}
			if includeThinking {
				resp.Thinking = thinking
			}
			return resp, nil
		}
		sess.Append("assistant", visible)
		resp := &sessions.Response{Content: visible, ToolsUsed: []string{}}
		if includeThinking {
			resp.Thinking = thinking
		}
		return resp, nil
	}

	a.logger.Debug("tool call parsed", "tool", call.Name, "diagnostic", call.Diagnostic)
	result := a.registry.Execute(ctx, call.Name, call.Args)

	resultJSON, err := json.Marshal(result)
	if err != nil {
		resultJSON = []byte(fmt.Sprintf(`{"success":false,"error_message":%q}`, err.Error()))
	}

	sess.Append("assistant", visible)
	sess.Append("system", "Tool result: "+string(resultJSON))

	followup := append([]sessions.Message{
		{Role: "system", Content: systemPromptHeader + a.catalog()},
	}, sess.History()...)
	followup = append(followup, sessions.Message{
		Role:    "system",
		Content: "Summarize the tool result above for the user in plain language. Do not call another tool.",
	})

	answer, err := a.client.Complete(ctx, followup)
	if err != nil {
		// The tool ran; degrade to a raw rendering rather than losing it.
		answer = "Tool " + call.Name + " completed. Raw result: " + string(resultJSON)
	}
	answerThinking, answerVisible := ExtractThinking(answer)
	sess.Append("assistant", answerVisible)

	resp := &sessions.Response{
		Content:   answerVisible,
		ToolsUsed: []string{call.Name},
	}
	if includeThinking {
		resp.Thinking = strings.TrimSpace(strings.Join([]string{thinking, answerThinking}, "\n"))
	}
	return resp, nil
}
