package factory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planbuilder/pkg/config"
	"planbuilder/pkg/llm/providers/openaicompat"
)

func testConfig(provider, model string) config.Config {
	return config.Config{
		LLM: &config.LLMConfig{Provider: provider, Model: model},
	}
}

func staticKey(string) (string, error) { return "test-key", nil }

func TestCreateClientPerProvider(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     string
	}{
		{config.ProviderOpenAI, "", openaicompat.DefaultModel},
		{config.ProviderOpenAI, "custom", "custom"},
		{config.ProviderAnthropic, "claude-x", "claude-x"},
		{config.ProviderGoogle, "gemini-x", "gemini-x"},
		{config.ProviderOllama, "llama-x", "llama-x"},
	}

	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.want, func(t *testing.T) {
			f, err := NewClientFactory(testConfig(tt.provider, tt.model), nil)
			require.NoError(t, err)

			client, err := f.WithKeyLookup(staticKey).CreateClient()
			require.NoError(t, err)
			assert.Equal(t, tt.want, client.GetModelName())
		})
	}
}

func TestCreateClientMissingKey(t *testing.T) {
	f, err := NewClientFactory(testConfig(config.ProviderOpenAI, ""), nil)
	require.NoError(t, err)

	_, err = f.WithKeyLookup(func(string) (string, error) { return "", errors.New("no key") }).CreateClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get API key")
}

func TestCreateClientUnknownProvider(t *testing.T) {
	f, err := NewClientFactory(testConfig("mystery", ""), nil)
	require.NoError(t, err)

	_, err = f.WithKeyLookup(staticKey).CreateClient()
	assert.Error(t, err)
}

func TestNewClientFactoryRequiresLLM(t *testing.T) {
	_, err := NewClientFactory(config.Config{}, nil)
	assert.Error(t, err)
}
