package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"planbuilder/pkg/tools"
)

func def(name string) tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        name,
		Description: "test tool",
		InputSchema: tools.InputSchema{Type: "object", Properties: map[string]tools.Property{}},
	}
}

func TestPromptsAdvertiseTools(t *testing.T) {
	cases := map[string]struct {
		prompt string
		names  []string
	}{
		"wbs":   {WBS(def(tools.ToolGenerateDependencyGraph)), []string{tools.ToolGenerateDependencyGraph}},
		"gantt": {Gantt(def(tools.ToolCreateGanttChart)), []string{tools.ToolCreateGanttChart}},
		"cost":  {Cost(def(tools.ToolGetRoleAverageAnnualSalary)), []string{tools.ToolGetRoleAverageAnnualSalary}},
		"board": {Board(def(tools.ToolCreateBoard), def(tools.ToolAddCard)), []string{tools.ToolCreateBoard, tools.ToolAddCard}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, tc.prompt, "<function_call>")
			assert.Contains(t, tc.prompt, `"functions"`)
			for _, n := range tc.names {
				assert.Contains(t, tc.prompt, `"name": "`+n+`"`)
			}
		})
	}
}

func TestGanttAnchorsStartDate(t *testing.T) {
	p := Gantt(def(tools.ToolCreateGanttChart))
	assert.Contains(t, p, ProjectStart)
	assert.NotContains(t, p, "{start}")
}

func TestTeamUsesTags(t *testing.T) {
	assert.Contains(t, Team(), "<team>")
	assert.NotContains(t, Team(), "<function_call>")
}
