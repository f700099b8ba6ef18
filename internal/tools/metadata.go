// Package tools defines the uniform tool model: metadata describing each
// diagnostic tool's interface, and the registry that validates arguments
// and dispatches execution.
package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/haasonsaas/netprobe/internal/envelope"
)

// ParamType enumerates the declared types a tool parameter can carry.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeFloat   ParamType = "float"
	TypeBoolean ParamType = "boolean"
	TypeList    ParamType = "list"
	TypeDict    ParamType = "dict"
)

// ParameterInfo describes one declared parameter of a tool.
type ParameterInfo struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	Choices     []any     `json:"choices,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
	// ElementHint names the element type for list parameters ("string",
	// "integer"). Empty means string.
	ElementHint string `json:"element_hint,omitempty"`
}

// Metadata is the complete public description of a tool.
type Metadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Parameters  []ParameterInfo `json:"parameters"`
	// Binaries lists external commands the tool shells out to. The
	// registry refuses execution when any is missing.
	Binaries []string `json:"binaries,omitempty"`
	// Modes restricts which execution modes may call the tool. Empty
	// means all modes.
	Modes []string `json:"modes,omitempty"`
	// Aliases are alternative invocation names resolving to this tool.
	Aliases []string `json:"aliases,omitempty"`
	// PrivilegeRequired marks tools that need elevated privileges to run
	// fully (raw sockets, OS fingerprinting).
	PrivilegeRequired bool `json:"privilege_required,omitempty"`
	// Examples are sample invocations shown in tool listings.
	Examples []string `json:"examples,omitempty"`
}

// Param looks up a declared parameter by name.
func (m *Metadata) Param(name string) (ParameterInfo, bool) {
	for _, p := range m.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterInfo{}, false
}

// Handler executes a tool against validated arguments and always returns
// a result envelope.
type Handler func(ctx context.Context, args map[string]any) *envelope.Result

// Tool pairs metadata with its handler.
type Tool struct {
	Meta Metadata
	Run  Handler
}

// Float64 pulls a numeric argument that may arrive as int, float64, or a
// numeric string (external protocols are loose about number encoding).
func Float64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// IntArg reads args[name] as an int, falling back to def when absent or
// not numeric.
func IntArg(args map[string]any, name string, def int) int {
	if v, ok := args[name]; ok {
		if f, ok := Float64(v); ok {
			return int(f)
		}
	}
	return def
}

// StringArg reads args[name] as a string, falling back to def.
func StringArg(args map[string]any, name, def string) string {
	if v, ok := args[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// BoolArg reads args[name] as a bool, accepting the usual string spellings.
func BoolArg(args map[string]any, name string, def bool) bool {
	v, ok := args[name]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return def
		}
		return parsed
	}
	return def
}

// StringListArg reads args[name] as a list of strings, tolerating []any
// payloads from JSON decoding.
func StringListArg(args map[string]any, name string) []string {
	v, ok := args[name]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	}
	return nil
}
