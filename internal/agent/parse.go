package agent

import (
	"encoding/json"
	"strings"
)

// The single-shot tool-call protocol embedded in model replies:
//
//	TOOL: <tool_name>
//	ARGS: <one-line JSON object>

const (
	toolAnchor = "TOOL:"
	argsAnchor = "ARGS:"
)

// ToolCall is a parsed protocol block.
type ToolCall struct {
	Name string
	Args map[string]any
	// Diagnostic is set when ARGS was present but malformed; Args is
	// empty in that case.
	Diagnostic string
}

// ParseToolCall extracts the TOOL/ARGS block from a reply. ok is false
// when no TOOL anchor exists.
func ParseToolCall(reply string) (ToolCall, bool) {
	idx := strings.Index(reply, toolAnchor)
	if idx < 0 {
		return ToolCall{}, false
	}
	rest := reply[idx+len(toolAnchor):]

	nameEnd := len(rest)
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		nameEnd = nl
	}
	if argsIdx := strings.Index(rest[:nameEnd], argsAnchor); argsIdx >= 0 {
		nameEnd = argsIdx
	}
	name := strings.TrimSpace(rest[:nameEnd])
	// Models occasionally emit "tool_name(arg=1)"; discard the call syntax.
	if paren := strings.IndexByte(name, '('); paren >= 0 {
		name = strings.TrimSpace(name[:paren])
	}

	call := ToolCall{Name: name, Args: map[string]any{}}

	argsIdx := strings.Index(rest, argsAnchor)
	if argsIdx < 0 {
		return call, true
	}
	argsText := rest[argsIdx+len(argsAnchor):]
	// Only the first line counts: anything below may be hallucinated
	// tool output that must not be parsed as arguments.
	if nl := strings.IndexByte(argsText, '\n'); nl >= 0 {
		argsText = argsText[:nl]
	}
	open := strings.IndexByte(argsText, '{')
	end := strings.LastIndexByte(argsText, '}')
	if open < 0 || end <= open {
		call.Diagnostic = "ARGS line carries no JSON object"
		return call, true
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(argsText[open:end+1]), &args); err != nil {
		call.Diagnostic = "malformed ARGS JSON: " + err.Error()
		return call, true
	}
	call.Args = args
	return call, true
}

// thinking block delimiters recognized in replies.
var thinkingMarkers = []struct {
	open, close string
}{
	{"<think>", "</think>"},
	{"[thinking]", "[/thinking]"},
}

// ExtractThinking splits an optional thinking block out of a reply,
// returning the thinking text and the remainder.
func ExtractThinking(reply string) (thinking, rest string) {
	rest = reply
	for _, marker := range thinkingMarkers {
		start := strings.Index(rest, marker.open)
		if start < 0 {
			continue
		}
		end := strings.Index(rest[start:], marker.close)
		if end < 0 {
			continue
		}
		end += start
		thinking = strings.TrimSpace(rest[start+len(marker.open) : end])
		rest = strings.TrimSpace(rest[:start] + rest[end+len(marker.close):])
		return thinking, rest
	}
	return "", strings.TrimSpace(rest)
}

// networkKeywords trigger the protocol-violation check: a reply with no
// tool call to a question matching these is treated as fabrication.
var networkKeywords = []string{
	"ping", "network", "dns", "ip", "nat", "port", "latency",
	"traceroute", "gateway", "interface", "mac address", "ssl",
	"certificate", "whois", "ntp", "connectivity", "firewall",
	"subnet", "router",
}

// IsNetworkQuestion reports whether a user message matches the domain
// keyword heuristic.
func IsNetworkQuestion(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range networkKeywords {
		if containsWord(lower, kw) {
			return true
		}
	}
	return false
}

// containsWord matches kw on word boundaries so "ip" does not fire on
// "description".
func containsWord(text, kw string) bool {
	idx := 0
	for {
		pos := strings.Index(text[idx:], kw)
		if pos < 0 {
			return false
		}
		pos += idx
		beforeOK := pos == 0 || !isWordByte(text[pos-1])
		afterPos := pos + len(kw)
		afterOK := afterPos >= len(text) || !isWordByte(text[afterPos])
		if beforeOK && afterOK {
			return true
		}
		idx = pos + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
