package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"planbuilder/pkg/tools"
)

// ErrInvalidGraph is returned for dependency graphs that reference unknown nodes or contain cycles.
var ErrInvalidGraph = errors.New("invalid dependency graph")

// Edge is a dependency: To depends on From.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// DependencyGraph is the task DAG produced alongside the work breakdown.
type DependencyGraph struct {
	Nodes []string `json:"nodes" yaml:"nodes"`
	Edges []Edge   `json:"edges" yaml:"edges"`
}

// ParseGraph reads the nodes and edges parameters of a generate_dependency_graph call.
func ParseGraph(params map[string]any) (*DependencyGraph, error) {
	rawNodes, ok := params["nodes"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: nodes must be a list", ErrInvalidGraph)
	}
	g := &DependencyGraph{}
	for i, n := range rawNodes {
		name, ok := n.(string)
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: node %d is not a name", ErrInvalidGraph, i)
		}
		g.Nodes = append(g.Nodes, strings.TrimSpace(name))
	}

	rawEdges, _ := params["edges"].([]any)
	for i, e := range rawEdges {
		pair, ok := e.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: edge %d must be a pair", ErrInvalidGraph, i)
		}
		from, ok1 := pair[0].(string)
		to, ok2 := pair[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: edge %d must name two nodes", ErrInvalidGraph, i)
		}
		g.Edges = append(g.Edges, Edge{From: strings.TrimSpace(from), To: strings.TrimSpace(to)})
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks that every edge references a declared node.
func (g *DependencyGraph) Validate() error {
	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n] = true
	}
	for _, e := range g.Edges {
		if !known[e.From] {
			return fmt.Errorf("%w: edge references unknown node %q", ErrInvalidGraph, e.From)
		}
		if !known[e.To] {
			return fmt.Errorf("%w: edge references unknown node %q", ErrInvalidGraph, e.To)
		}
	}
	return nil
}

// Order returns the nodes in dependency order. Ties keep declaration order.
func (g *DependencyGraph) Order() ([]string, error) {
	indegree := make(map[string]int, len(g.Nodes))
	next := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n] += 0
	}
	for _, e := range g.Edges {
		indegree[e.To]++
		next[e.From] = append(next[e.From], e.To)
	}

	seen := make(map[string]bool, len(g.Nodes))
	order := make([]string, 0, len(indegree))
	for len(order) < len(indegree) {
		progressed := false
		for _, n := range g.Nodes {
			if seen[n] || indegree[n] > 0 {
				continue
			}
			seen[n] = true
			order = append(order, n)
			for _, m := range next[n] {
				indegree[m]--
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("%w: cycle detected", ErrInvalidGraph)
		}
	}
	return order, nil
}

// GraphTool implements generate_dependency_graph. ExecResult.Data holds the *DependencyGraph.
type GraphTool struct{}

// Name returns the tool name.
func (GraphTool) Name() string { return tools.ToolGenerateDependencyGraph }

// Definition returns the tool definition for LLM.
func (GraphTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        tools.ToolGenerateDependencyGraph,
		Description: "It creates a dependency graph starting from a list of nodes and edges.",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"nodes": {
					Type:        "array",
					Description: "A list of strings representing the nodes of the graph. Example: ['Node 1', 'Node 2', 'Node 3']",
					Items:       &tools.Property{Type: "string"},
				},
				"edges": {
					Type:        "array",
					Description: "A list where each element is a list of two strings representing an edge. Example: [['Node 1', 'Node 2'], ['Node 2', 'Node 3']]",
					Items:       &tools.Property{Type: "array", Items: &tools.Property{Type: "string"}},
				},
			},
			Required: []string{"nodes", "edges"},
		},
	}
}

// Exec validates the graph.
func (GraphTool) Exec(_ context.Context, args map[string]any) (*tools.ExecResult, error) {
	g, err := ParseGraph(args)
	if err != nil {
		return nil, err
	}
	return &tools.ExecResult{
		Content: fmt.Sprintf("Dependency graph with %d nodes and %d edges", len(g.Nodes), len(g.Edges)),
		Data:    g,
	}, nil
}
