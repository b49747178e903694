package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"planbuilder/pkg/board"
	"planbuilder/pkg/retrieval"
	"planbuilder/pkg/workflow"
)

func samplePlan(t *testing.T) *workflow.Plan {
	t.Helper()
	schedule, err := workflow.ParseSchedule(map[string]any{"gantt_chart": map[string]any{"tasks": []any{
		map[string]any{"name": "API | v1", "start_date": "2024-11-25", "end_date": "2024-11-29"},
		map[string]any{"name": "Schema", "start_date": "2024-11-18", "end_date": "2024-11-22"},
	}}})
	require.NoError(t, err)
	team, err := workflow.ParseTeam(`<team>{"Backend Engineer": {"Seniority": "Senior"}, "Designer": {"Seniority": "Mid"}}</team>`)
	require.NoError(t, err)

	return &workflow.Plan{
		RunID:       "run-1",
		Description: "Build a shop",
		CreatedAt:   time.Date(2024, 11, 1, 9, 30, 0, 0, time.UTC),
		WBS:         "1 - Backend",
		Graph: &workflow.DependencyGraph{
			Nodes: []string{"Schema", "API"},
			Edges: []workflow.Edge{{From: "Schema", To: "API"}},
		},
		GraphOrder: []string{"Schema", "API"},
		Schedule:   schedule,
		Team:       team,
		Salaries: []retrieval.Result{
			{Identifier: "Backend Engineer", Outcome: retrieval.OK("$120,000")},
			{Identifier: "Designer", Outcome: retrieval.RateLimited(5)},
		},
		Estimate: "Total: $300,000",
		Board:    &board.Ref{BoardID: "b1", ListID: "l1"},
		Cards:    []string{"c1", "c2"},
		Warnings: []string{"graph had a cycle"},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(samplePlan(t))

	assert.Contains(t, md, "# Project Plan")
	assert.Contains(t, md, "- Schema -> API")
	assert.Contains(t, md, "| Schema | 2024-11-18 | 2024-11-22 | 5 |\n| API \\| v1 | 2024-11-25 | 2024-11-29 | 5 |")
	assert.Contains(t, md, "2024-11-18 to 2024-11-29, 10 workdays.")
	assert.Contains(t, md, "### 1. Backend Engineer\n- **Seniority:** Senior")
	assert.Contains(t, md, "- **Designer:** Unable to fetch salary for Designer (rate limited)")
	assert.Contains(t, md, "Board URL: https://trello.com/b/b1")
	assert.Contains(t, md, "- graph had a cycle")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, samplePlan(t), "json"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc["run_id"])
	assert.Equal(t, "https://trello.com/b/b1", doc["board"].(map[string]any)["url"])

	salaries := doc["salaries"].([]any)
	assert.Equal(t, "rate_limited", salaries[1].(map[string]any)["outcome"])

	tasks := doc["schedule"].(map[string]any)["tasks"].([]any)
	assert.Equal(t, "2024-11-18", tasks[0].(map[string]any)["start_date"])
}

func TestRenderYAMLKeepsTeamOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, samplePlan(t), "yaml"))

	var doc struct {
		RunID string    `yaml:"run_id"`
		Team  yaml.Node `yaml:"team"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.RunID)
	require.Equal(t, yaml.MappingNode, doc.Team.Kind)
	assert.Equal(t, "Backend Engineer", doc.Team.Content[0].Value)
	assert.Equal(t, "Designer", doc.Team.Content[2].Value)
}

func TestRenderUnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, samplePlan(t), "pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRenderSkipsMissingSections(t *testing.T) {
	md := Markdown(&workflow.Plan{RunID: "r", Description: "d"})
	assert.NotContains(t, md, "## Gantt Chart")
	assert.NotContains(t, md, "## Trello Board")
}
