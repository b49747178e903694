// Package tools provides the fixed set of tools a model may call and the dispatcher that runs them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Tool names.
const (
	ToolGenerateDependencyGraph = "generate_dependency_graph"
	ToolCreateGanttChart        = "create_gantt_chart_to_file"
	ToolGetRoleAverageSalary    = "get_role_average_salary"
	// ToolGetRoleAverageAnnualSalary is the name the cost prompt advertises; both resolve salaries.
	ToolGetRoleAverageAnnualSalary = "get_role_average_annual_salary"
	ToolCreateBoard                = "create_board_on_trello"
	ToolAddCard                    = "add_card_to_trello"
)

// Property describes one parameter.
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
}

// InputSchema describes a tool's parameters.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition is what the model is told about a tool.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"parameters"`
	Returns     string      `json:"returns,omitempty"`
}

// ExecResult is the outcome of one tool execution.
type ExecResult struct {
	// Content is the text fed back to the model.
	Content string
	// Data carries the typed result for the caller.
	Data any
}

// Tool is a named, schema-described operation the model can request.
type Tool interface {
	Name() string
	Definition() ToolDefinition
	Exec(ctx context.Context, args map[string]any) (*ExecResult, error)
}

// BatchTool is a Tool that handles every call addressed to it in one step.
// The dispatcher groups the calls by tool instance, including calls made under
// aliases, and expects one result per argument set in the same order.
// Implementations must be pointer types.
type BatchTool interface {
	Tool
	ExecBatch(ctx context.Context, args []map[string]any) ([]*ExecResult, error)
}

// FunctionsDocument renders definitions as the {"functions": [...]} JSON block embedded in prompts.
func FunctionsDocument(defs ...ToolDefinition) string {
	doc := struct {
		Functions []ToolDefinition `json:"functions"`
	}{Functions: defs}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// StringArg returns a required, non-empty string argument.
func StringArg(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing required argument: %s", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s argument must be a string", name)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s argument cannot be empty", name)
	}
	return s, nil
}

// OptionalStringArg returns a string argument or "" when absent.
func OptionalStringArg(args map[string]any, name string) string {
	if s, ok := args[name].(string); ok {
		return s
	}
	return ""
}
