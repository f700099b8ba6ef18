package sessions

import (
	"context"
	"time"
)

// Response is the structured outcome of one processed message.
type Response struct {
	Content   string   `json:"content"`
	Thinking  string   `json:"thinking,omitempty"`
	ToolsUsed []string `json:"tools_used"`
}

// Orchestrator runs one conversational turn against a session. The
// implementation appends its own turns to the session history.
type Orchestrator interface {
	Converse(ctx context.Context, sess *Session, prompt string, includeThinking bool) (*Response, error)
}

// ProcessMessage appends the user turn, runs the orchestrator under the
// timeout, and returns its structured response. A timed-out turn yields
// a stub response instead of an error so callers always have something
// to render.
func (m *Manager) ProcessMessage(ctx context.Context, sess *Session, orch Orchestrator, prompt string, includeThinking bool, timeout time.Duration) *Response {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	// One turn in flight per session: concurrent callers get a busy
	// response instead of interleaving history writes.
	if !sess.turnMu.TryLock() {
		return &Response{
			Content:   "A previous request for this session is still running.",
			ToolsUsed: []string{},
		}
	}
	defer sess.turnMu.Unlock()

	turnCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sess.Append("user", prompt)

	resp, err := orch.Converse(turnCtx, sess, prompt, includeThinking)
	if err != nil {
		if turnCtx.Err() == context.DeadlineExceeded {
			return &Response{
				Content:   "The request timed out before a response was produced.",
				ToolsUsed: []string{},
			}
		}
		m.logger.Error("turn failed", "session_id", sess.ID, "error", err)
		return &Response{
			Content:   "The request could not be completed: " + err.Error(),
			ToolsUsed: []string{},
		}
	}
	if resp.ToolsUsed == nil {
		resp.ToolsUsed = []string{}
	}
	return resp
}
