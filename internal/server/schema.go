package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/netprobe/internal/tools"
)

// Property is one parameter's JSON-schema fragment.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Default     any       `json:"default,omitempty"`
	Enum        []any     `json:"enum,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
	Items       *ItemSpec `json:"items,omitempty"`
}

// ItemSpec is the element type hint for array parameters. Clients reject
// array schemas without it, so every array parameter carries one.
type ItemSpec struct {
	Type string `json:"type"`
}

// InputSchema is the exported input schema of one tool.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ToolSpec is one entry in the list_tools response.
type ToolSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"inputSchema"`
}

// wireType maps declared parameter types onto JSON-schema type names.
func wireType(t tools.ParamType) string {
	switch t {
	case tools.TypeInteger:
		return "integer"
	case tools.TypeFloat:
		return "number"
	case tools.TypeBoolean:
		return "boolean"
	case tools.TypeList:
		return "array"
	case tools.TypeDict:
		return "object"
	default:
		return "string"
	}
}

// itemsType infers the element type of an array parameter from its name.
// Port lists carry integers; server, URL, target, and tool-name lists
// carry strings, as does anything unrecognized.
func itemsType(p tools.ParameterInfo) string {
	if p.ElementHint != "" {
		switch p.ElementHint {
		case "integer":
			return "integer"
		case "number", "float":
			return "number"
		default:
			return "string"
		}
	}
	name := strings.ToLower(p.Name)
	if strings.Contains(name, "port") {
		return "integer"
	}
	return "string"
}

// SchemaFor exports a tool's declared parameters as a JSON schema.
func SchemaFor(meta tools.Metadata) InputSchema {
	schema := InputSchema{
		Type:       "object",
		Properties: make(map[string]Property, len(meta.Parameters)),
	}
	for _, p := range meta.Parameters {
		prop := Property{
			Type:        wireType(p.Type),
			Description: p.Description,
			Default:     p.Default,
			Enum:        p.Choices,
			Minimum:     p.Minimum,
			Maximum:     p.Maximum,
		}
		if prop.Type == "array" {
			prop.Items = &ItemSpec{Type: itemsType(p)}
		}
		schema.Properties[p.Name] = prop
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

// compileSchemas validates every exported schema and returns the compiled
// form used to check incoming call_tool arguments. A schema that does not
// compile is a registration bug surfaced at startup.
func compileSchemas(specs []ToolSpec) (map[string]*jsonschema.Schema, error) {
	compiled := make(map[string]*jsonschema.Schema, len(specs))
	for _, spec := range specs {
		raw, err := json.Marshal(spec.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshal schema for %s: %w", spec.Name, err)
		}
		compiler := jsonschema.NewCompiler()
		url := "netprobe://tools/" + spec.Name
		if err := compiler.AddResource(url, strings.NewReader(string(raw))); err != nil {
			return nil, fmt.Errorf("add schema for %s: %w", spec.Name, err)
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", spec.Name, err)
		}
		compiled[spec.Name] = schema
	}
	return compiled, nil
}
