package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"planbuilder/pkg/tools"
)

// ErrNoResolver is returned by a SalaryTool created without a resolver.
var ErrNoResolver = errors.New("salary tool has no resolver")

// Resolver resolves targets in submission order. *Engine implements it.
type Resolver interface {
	Resolve(ctx context.Context, targets []Target) []Result
}

// SalaryTool exposes role lookups to the dispatcher. All calls of one dispatch
// are resolved as a single batch. ExecResult.Data holds the Result; a call
// without a usable role gets a Content-only result and no Data.
type SalaryTool struct {
	resolver Resolver
	name     string
}

// NewSalaryTool creates the tool under name, which must be one of the salary
// tool names.
func NewSalaryTool(resolver Resolver, name string) *SalaryTool {
	return &SalaryTool{resolver: resolver, name: name}
}

// Name returns the tool name.
func (t *SalaryTool) Name() string {
	return t.name
}

// Definition returns the tool definition for LLM.
func (t *SalaryTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        t.name,
		Description: "Fetches the average annual salary for a job role in the United States.",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"role": {Type: "string", Description: "The job role to look up, e.g. 'Software Engineer'"},
			},
			Required: []string{"role"},
		},
		Returns: "The average annual salary for the role as a string.",
	}
}

// Exec resolves one role. Lookup failures are reported in Content, not as errors.
func (t *SalaryTool) Exec(ctx context.Context, args map[string]any) (*tools.ExecResult, error) {
	role, err := tools.StringArg(args, "role")
	if err != nil {
		return nil, err //nolint:wrapcheck // argument errors are self-describing
	}
	outs, err := t.ExecBatch(ctx, []map[string]any{{"role": role}})
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}

// ExecBatch resolves every valid role in one Resolve call and returns one result
// per argument set, in order. Calls without a usable role are reported in Content.
func (t *SalaryTool) ExecBatch(ctx context.Context, args []map[string]any) ([]*tools.ExecResult, error) {
	if t.resolver == nil {
		return nil, ErrNoResolver
	}

	outs := make([]*tools.ExecResult, len(args))
	var roles []string
	var slots []int
	for i, a := range args {
		role, err := tools.StringArg(a, "role")
		if err != nil {
			outs[i] = &tools.ExecResult{Content: fmt.Sprintf("%s: %v", t.name, err)}
			continue
		}
		roles = append(roles, strings.TrimSpace(role))
		slots = append(slots, i)
	}
	if len(roles) == 0 {
		return outs, nil
	}

	results := t.resolver.Resolve(ctx, Targets(roles...))
	for j, i := range slots {
		outs[i] = &tools.ExecResult{Content: results[j].String(), Data: results[j]}
	}
	return outs, nil
}
