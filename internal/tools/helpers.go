// Package tools implements the MCP tool handlers for Azure DevOps.
//
// Each tool is a struct that receives its service through the constructor
// and exposes Definition and Handle for registration with mcp-go. Every
// failure reaches the host as a tool error rendered by azdo.Format.
package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
)

// errorResult classifies err for op and renders it as a tool error.
// Already classified errors keep their kind and message.
func errorResult(err error, op azdo.Op) *mcp.CallToolResult {
	return mcp.NewToolResultError(azdo.Format(azdo.Classify(err, op)))
}

// argumentError reports a malformed or missing tool argument.
func argumentError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(azdo.Format(azdo.NewValidationError(err.Error(), nil)))
}

// recoverTool turns a panic inside a handler into a classified tool error.
// It must be deferred directly by Handle.
func recoverTool(op azdo.Op, res **mcp.CallToolResult, err *error) {
	if r := recover(); r != nil {
		*res = mcp.NewToolResultError(azdo.Format(azdo.ClassifyRecovered(r, op)))
		*err = nil
	}
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// projectArg returns the project argument or the configured default.
func projectArg(req mcp.CallToolRequest, fallback string) string {
	if p := strings.TrimSpace(req.GetString("project", "")); p != "" {
		return p
	}
	return fallback
}

// requireProject is projectArg for tools that cannot run without a project.
func requireProject(req mcp.CallToolRequest, fallback string) (string, error) {
	p := projectArg(req, fallback)
	if p == "" {
		return "", fmt.Errorf("project is required: pass %q or set a default project", "project")
	}
	return p, nil
}

// requireID reads a positive integer identifier.
func requireID(req mcp.CallToolRequest, key string) (int, error) {
	id, err := req.RequireInt(key)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %d", key, id)
	}
	return id, nil
}

// optionalString returns a pointer to the argument when the caller sent it.
func optionalString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// objectArg returns a JSON object argument, or nil when absent.
func objectArg(req mcp.CallToolRequest, key string) (map[string]any, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", key)
	}
	return m, nil
}

// stringMapArg reads an object whose values are rendered as strings.
func stringMapArg(req mcp.CallToolRequest, key string) (map[string]string, error) {
	m, err := objectArg(req, key)
	if err != nil || m == nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = scalarString(v)
	}
	return out, nil
}

// stringListMapArg reads an object whose values are a string or an array
// of strings, e.g. {"Project": ["a", "b"], "Wiki": "a.wiki"}.
func stringListMapArg(req mcp.CallToolRequest, key string) (map[string][]string, error) {
	m, err := objectArg(req, key)
	if err != nil || m == nil {
		return nil, err
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		switch vv := v.(type) {
		case []any:
			list := make([]string, 0, len(vv))
			for _, item := range vv {
				list = append(list, scalarString(item))
			}
			out[k] = list
		case string:
			out[k] = []string{vv}
		default:
			return nil, fmt.Errorf("%s.%s must be a string or an array of strings", key, k)
		}
	}
	return out, nil
}

// intSliceArg reads an array of integers. Numeric strings are accepted.
func intSliceArg(req mcp.CallToolRequest, key string) ([]int, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of integers", key)
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case float64:
			out = append(out, int(v))
		case string:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not an integer", key, v)
			}
			out = append(out, n)
		default:
			return nil, fmt.Errorf("%s must be an array of integers", key)
		}
	}
	return out, nil
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
