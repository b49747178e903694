// Package factory builds generation clients with their middleware chain from configuration.
package factory

import (
	"fmt"

	"planbuilder/pkg/config"
	"planbuilder/pkg/llm"
	metricsmw "planbuilder/pkg/llm/middleware/metrics"
	"planbuilder/pkg/llm/middleware/retry"
	"planbuilder/pkg/llm/providers/anthropic"
	"planbuilder/pkg/llm/providers/google"
	"planbuilder/pkg/llm/providers/ollama"
	"planbuilder/pkg/llm/providers/openaicompat"
	"planbuilder/pkg/logx"
	"planbuilder/pkg/metrics"
)

// KeyLookup resolves the credential for a provider.
type KeyLookup func(provider string) (string, error)

// ClientFactory creates generation clients with a configured middleware chain.
type ClientFactory struct {
	config   config.Config
	recorder metrics.Recorder
	keys     KeyLookup
	logger   *logx.Logger
}

// NewClientFactory creates a factory. A nil recorder disables metrics.
func NewClientFactory(cfg config.Config, recorder metrics.Recorder) (*ClientFactory, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("llm configuration missing")
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &ClientFactory{
		config:   cfg,
		recorder: recorder,
		keys:     config.GetAPIKey,
		logger:   logx.NewLogger("llm"),
	}, nil
}

// WithKeyLookup replaces the credential source.
func (f *ClientFactory) WithKeyLookup(keys KeyLookup) *ClientFactory {
	f.keys = keys
	return f
}

// rawClient constructs the provider client without middleware.
func (f *ClientFactory) rawClient() (llm.LLMClient, error) {
	provider := f.config.LLM.Provider
	key, err := f.keys(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key for provider %s: %w", provider, err)
	}

	switch provider {
	case config.ProviderOpenAI:
		return openaicompat.NewClient(key, f.config.LLM.BaseURL, f.config.LLM.Model), nil
	case config.ProviderAnthropic:
		return anthropic.NewClient(key, f.config.LLM.Model), nil
	case config.ProviderGoogle:
		return google.NewClient(key, f.config.LLM.Model), nil
	case config.ProviderOllama:
		return ollama.NewClient(key, f.config.LLM.Model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// CreateClient returns a client wrapped as Metrics -> Retry -> RawClient.
func (f *ClientFactory) CreateClient() (llm.LLMClient, error) {
	raw, err := f.rawClient()
	if err != nil {
		return nil, err
	}

	retryConfig := retry.DefaultConfig
	if f.config.Resilience != nil {
		r := f.config.Resilience.Retry
		retryConfig = retry.Config{
			MaxAttempts:   r.MaxAttempts,
			InitialDelay:  r.InitialDelay,
			MaxDelay:      r.MaxDelay,
			BackoffFactor: r.BackoffFactor,
			Jitter:        r.Jitter,
		}
	}

	f.logger.Info("Using %s model %s", f.config.LLM.Provider, raw.GetModelName())
	return llm.Chain(raw,
		metricsmw.Middleware(f.recorder, f.logger),
		retry.Middleware(retry.NewPolicy(retryConfig, nil)),
	), nil
}
