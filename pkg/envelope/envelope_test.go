package envelope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNoBlock(t *testing.T) {
	env, err := Parse("Just prose, nothing to run.")
	require.NoError(t, err)
	assert.Nil(t, env)
}

func TestParseOrderedCalls(t *testing.T) {
	text := `Let me look those up.
<function_call>
[
  {"name": "get_role_average_salary", "parameters": {"role": "Backend Engineer"}},
  {"name": "get_role_average_salary", "parameters": {"role": "Designer"}},
  {"name": "create_board_on_trello", "parameters": {"board_name": "Launch"}}
]
</function_call>`

	env, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, env, 3)
	assert.Equal(t, []string{"get_role_average_salary", "get_role_average_salary", "create_board_on_trello"}, env.Names())
	assert.Equal(t, "Designer", env[1].Parameters["role"])

	salaries := env.Named("get_role_average_salary")
	require.Len(t, salaries, 2)
	assert.Equal(t, "Backend Engineer", salaries[0].Parameters["role"])
}

func TestParseNestedParameters(t *testing.T) {
	text := `<function_call>[{"name": "create_gantt_chart_to_file", "parameters": {"gantt_chart": {"tasks": [{"name": "A", "start_date": "2024-11-18", "end_date": "2024-11-25"}]}}}]</function_call>`

	env, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, env, 1)

	chart, ok := env[0].Parameters["gantt_chart"].(map[string]any)
	require.True(t, ok)
	tasks, ok := chart["tasks"].([]any)
	require.True(t, ok)
	assert.Len(t, tasks, 1)
}

func TestParseTruncatedButComplete(t *testing.T) {
	text := `Creating the board now.
<function_call>
[{"name": "create_board_on_trello", "parameters": {"board_name": "Launch"}}]`

	env, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, env, 1)
	assert.Equal(t, "Launch", env[0].Parameters["board_name"])
}

func TestParseTruncatedAndBroken(t *testing.T) {
	text := `<function_call>[{"name": "create_board_on_trello", "parameters": {"board_na`

	env, err := Parse(text)
	assert.Nil(t, env)
	assert.True(t, errors.Is(err, ErrMalformed), "expected ErrMalformed, got %v", err)
}

func TestParseRejectsNonArray(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"object", `{"name": "x", "parameters": {}}`},
		{"prose", `call the board tool please`},
		{"missing name", `[{"parameters": {"a": 1}}]`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(StartMarker + tt.body + EndMarker)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestParseMissingParametersBecomesEmptyMap(t *testing.T) {
	env, err := Parse(`<function_call>[{"name": "ping"}]</function_call>`)
	require.NoError(t, err)
	require.Len(t, env, 1)
	assert.NotNil(t, env[0].Parameters)
	assert.Empty(t, env[0].Parameters)
}

func TestParseFirstBlockOnly(t *testing.T) {
	text := `<function_call>[{"name": "a", "parameters": {}}]</function_call>
<function_call>[{"name": "b", "parameters": {}}]</function_call>`

	env, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, env.Names())
}

func TestExtractTag(t *testing.T) {
	text := "Here you go\n<wbs>\n1 - Backend\n  1.1 - Schema\n</wbs>\ntrailing"

	got, ok := ExtractTag(text, "wbs")
	require.True(t, ok)
	assert.Equal(t, "1 - Backend\n  1.1 - Schema", got)

	_, ok = ExtractTag(text, "team")
	assert.False(t, ok)

	_, ok = ExtractTag("<team>{ unterminated", "team")
	assert.False(t, ok)
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "Prose.", Strip("Prose.\n<function_call>[]</function_call>"))
	assert.Equal(t, "Prose.", Strip("Prose.\n<function_call>[{\"name\""))
	assert.Equal(t, "Only prose", Strip("Only prose"))
}
