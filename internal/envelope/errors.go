package envelope

import (
	"fmt"
	"strings"
)

// Category is the coarse error class carried in Result.ErrorType.
type Category string

const (
	CategoryNetwork       Category = "network"
	CategorySystem        Category = "system"
	CategoryInput         Category = "input"
	CategoryExecution     Category = "execution"
	CategoryConfiguration Category = "configuration"
)

// Code identifies a specific failure within a category.
type Code string

const (
	// network
	CodeConnectionFailed Code = "connection_failed"
	CodeTimeout          Code = "timeout"
	CodeDNSResolution    Code = "dns_resolution"
	CodeUnreachable      Code = "unreachable"

	// system
	CodePermissionDenied Code = "permission_denied"
	CodeToolMissing      Code = "tool_missing"
	CodeInvalidPlatform  Code = "invalid_platform"

	// input
	CodeInvalidTarget    Code = "invalid_target"
	CodeInvalidPort      Code = "invalid_port"
	CodeInvalidFormat    Code = "invalid_format"
	CodeMissingParameter Code = "missing_parameter"

	// execution
	CodeCommandFailed   Code = "command_failed"
	CodeParsingError    Code = "parsing_error"
	CodeUnexpectedError Code = "unexpected_error"

	// configuration
	CodeFileNotFound    Code = "file_not_found"
	CodeInvalidConfig   Code = "invalid_config"
	CodePermissionError Code = "permission_error"
)

var codeCategories = map[Code]Category{
	CodeConnectionFailed: CategoryNetwork,
	CodeTimeout:          CategoryNetwork,
	CodeDNSResolution:    CategoryNetwork,
	CodeUnreachable:      CategoryNetwork,

	CodePermissionDenied: CategorySystem,
	CodeToolMissing:      CategorySystem,
	CodeInvalidPlatform:  CategorySystem,

	CodeInvalidTarget:    CategoryInput,
	CodeInvalidPort:      CategoryInput,
	CodeInvalidFormat:    CategoryInput,
	CodeMissingParameter: CategoryInput,

	CodeCommandFailed:   CategoryExecution,
	CodeParsingError:    CategoryExecution,
	CodeUnexpectedError: CategoryExecution,

	CodeFileNotFound:    CategoryConfiguration,
	CodeInvalidConfig:   CategoryConfiguration,
	CodePermissionError: CategoryConfiguration,
}

// Category returns the category a code belongs to. Unknown codes map to
// execution, matching the catch-all conversion at the probe boundary.
func (c Code) Category() Category {
	if cat, ok := codeCategories[c]; ok {
		return cat
	}
	return CategoryExecution
}

type errorSpec struct {
	template    string
	suggestions []string
}

var errorSpecs = map[Code]errorSpec{
	CodeConnectionFailed: {
		template: "Failed to connect to {target}",
		suggestions: []string{
			"Check that the target is online and accepting connections",
			"Verify firewall rules are not blocking the connection",
			"Try the probe again in a few seconds",
		},
	},
	CodeTimeout: {
		template: "Operation timed out after {timeout} seconds while contacting {target}",
		suggestions: []string{
			"Increase the timeout for this probe",
			"Check network latency to the target",
			"Verify the target is not rate-limiting requests",
		},
	},
	CodeDNSResolution: {
		template: "Could not resolve hostname {target}",
		suggestions: []string{
			"Verify the hostname is spelled correctly",
			"Check DNS resolver configuration with get_dns_config",
			"Try resolving against a public resolver (8.8.8.8, 1.1.1.1)",
		},
	},
	CodeUnreachable: {
		template: "Target {target} is unreachable",
		suggestions: []string{
			"Check local connectivity with check_internet_connection",
			"Verify routing with traceroute_host",
		},
	},
	CodePermissionDenied: {
		template: "Permission denied running {operation}",
		suggestions: []string{
			"Re-run with elevated privileges",
			"Use an unprivileged scan profile (TCP connect) instead",
		},
	},
	CodeToolMissing: {
		template: "Required external tool '{tool}' is not installed",
		suggestions: []string{
			"Install '{tool}' with your platform package manager",
			"Verify the tool is on PATH",
		},
	},
	CodeInvalidPlatform: {
		template: "Operation {operation} is not supported on this platform",
		suggestions: []string{
			"Check the tool description for supported platforms",
		},
	},
	CodeInvalidTarget: {
		template: "Invalid target: {target}",
		suggestions: []string{
			"Provide a hostname, IPv4 address, or CIDR network",
		},
	},
	CodeInvalidPort: {
		template: "Invalid port: {port}",
		suggestions: []string{
			"Ports must be integers between 1 and 65535",
		},
	},
	CodeInvalidFormat: {
		template: "Invalid format for {operation}: {value}",
		suggestions: []string{
			"Check the expected format in the tool's examples",
		},
	},
	CodeMissingParameter: {
		template: "Missing required parameter '{parameter}' for {tool}",
		suggestions: []string{
			"Supply the parameter or consult the tool's schema",
		},
	},
	CodeCommandFailed: {
		template: "Command failed: {command}",
		suggestions: []string{
			"Inspect stderr for the underlying cause",
			"Run the command manually to reproduce",
		},
	},
	CodeParsingError: {
		template: "Could not parse output of {operation}",
		suggestions: []string{
			"The raw output is preserved in stdout",
		},
	},
	CodeUnexpectedError: {
		template: "Unexpected error in {tool}: {error}",
		suggestions: []string{
			"Retry the operation",
			"Report the error if it persists",
		},
	},
	CodeFileNotFound: {
		template: "File not found: {path}",
		suggestions: []string{
			"Check the path exists and is readable",
		},
	},
	CodeInvalidConfig: {
		template: "Invalid configuration: {error}",
		suggestions: []string{
			"Validate the configuration file syntax",
		},
	},
	CodePermissionError: {
		template: "Permission error accessing {path}",
		suggestions: []string{
			"Check file ownership and mode",
		},
	},
}

// FormatMessage renders the message template for a code against a context
// map. Placeholders with no matching key are left literal; extra keys are
// ignored. Unknown codes fall back to a generic message.
func FormatMessage(code Code, ctx map[string]any) string {
	spec, ok := errorSpecs[code]
	if !ok {
		return fmt.Sprintf("error: %s", code)
	}
	return expandTemplate(spec.template, ctx)
}

// Suggestions returns the remediation suggestions for a code, with
// placeholders expanded where the template engine can (tool names mostly
// appear literally).
func Suggestions(code Code) []string {
	spec, ok := errorSpecs[code]
	if !ok {
		return nil
	}
	out := make([]string, len(spec.suggestions))
	copy(out, spec.suggestions)
	return out
}

func expandTemplate(tmpl string, ctx map[string]any) string {
	var sb strings.Builder
	for i := 0; i < len(tmpl); {
		if tmpl[i] == '{' {
			end := strings.IndexByte(tmpl[i:], '}')
			if end > 0 {
				key := tmpl[i+1 : i+end]
				if v, ok := ctx[key]; ok {
					fmt.Fprintf(&sb, "%v", v)
					i += end + 1
					continue
				}
			}
		}
		sb.WriteByte(tmpl[i])
		i++
	}
	return sb.String()
}
