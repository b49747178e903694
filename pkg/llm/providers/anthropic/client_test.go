package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planbuilder/pkg/llm"
)

func TestEnsureAlternation_MergesConsecutiveUsers(t *testing.T) {
	system, msgs, err := ensureAlternation([]llm.CompletionMessage{
		llm.NewSystemMessage("plan carefully"),
		llm.NewUserMessage("describe the project"),
		llm.NewAssistantMessage("estimate"),
		llm.NewUserMessage("salaries"),
		llm.NewUserMessage("refine"),
	})
	require.NoError(t, err)

	assert.Equal(t, "plan carefully", system)
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.RoleUser, msgs[2].Role)
	assert.Equal(t, "salaries\n\nrefine", msgs[2].Content)
}

func TestEnsureAlternation_Rejects(t *testing.T) {
	_, _, err := ensureAlternation([]llm.CompletionMessage{llm.NewSystemMessage("only system")})
	assert.Error(t, err)

	_, _, err = ensureAlternation([]llm.CompletionMessage{llm.NewAssistantMessage("first")})
	assert.Error(t, err)

	_, _, err = ensureAlternation([]llm.CompletionMessage{llm.NewUserMessage("q"), llm.NewAssistantMessage("a")})
	assert.Error(t, err)
}

func TestNewClientDefaultsModel(t *testing.T) {
	assert.Equal(t, DefaultModel, NewClient("key", "").GetModelName())
}
