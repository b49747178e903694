// Package google implements llm.LLMClient on the Gemini API.
package google

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"planbuilder/pkg/llm"
	"planbuilder/pkg/llm/llmerrors"
)

// DefaultModel is used when the configuration names no model.
const DefaultModel = "gemini-2.5-flash"

// Client wraps the Google GenAI client (raw client, middleware applied at higher level).
type Client struct {
	apiKey string
	model  string

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewClient stores the configuration; the SDK client needs a context and is created on first use.
func NewClient(apiKey, model string) llm.LLMClient {
	if model == "" {
		model = DefaultModel
	}
	return &Client{apiKey: apiKey, model: model}
}

func (g *Client) sdk(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if g.initErr != nil {
		return nil, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, g.initErr, "failed to create Gemini client")
	}
	return g.client, nil
}

// toContents converts messages to Gemini contents; assistant turns use the "model" role.
func toContents(messages []llm.CompletionMessage) ([]*genai.Content, string) {
	system, rest := llm.SplitSystem(messages)
	contents := make([]*genai.Content, 0, len(rest))
	for _, msg := range rest {
		role := "user"
		if msg.Role == llm.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: msg.Content}}})
	}
	return contents, system
}

//nolint:gocritic // value request is part of the interface
func (g *Client) config(in llm.CompletionRequest, system string) *genai.GenerateContentConfig {
	temperature := in.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(in.MaxTokens), //nolint:gosec // bounded by configuration
	}
	if in.TopP > 0 {
		topP := in.TopP
		config.TopP = &topP
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	return config
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // value request is part of the interface
func (g *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	client, err := g.sdk(ctx)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	contents, system := toContents(in.Messages)
	result, err := client.Models.GenerateContent(ctx, g.model, contents, g.config(in, system))
	if err != nil {
		return llm.CompletionResponse{}, classify(err)
	}
	if result == nil || result.Text() == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty response from Gemini API")
	}

	stop := "end_turn"
	if len(result.Candidates) > 0 && result.Candidates[0].FinishReason != "" {
		stop = string(result.Candidates[0].FinishReason)
	}
	return llm.CompletionResponse{Content: result.Text(), StopReason: stop}, nil
}

// Stream implements llm.LLMClient over GenerateContentStream.
//
//nolint:gocritic // value request is part of the interface
func (g *Client) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	client, err := g.sdk(ctx)
	if err != nil {
		return nil, err
	}

	contents, system := toContents(in.Messages)
	seq := client.Models.GenerateContentStream(ctx, g.model, contents, g.config(in, system))

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		for resp, err := range seq {
			chunk := llm.StreamChunk{}
			if err != nil {
				chunk.Error = classify(err)
			} else if resp != nil {
				chunk.Content = resp.Text()
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.Error != nil {
				return
			}
		}
		select {
		case ch <- llm.StreamChunk{Done: true}:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

// GetModelName returns the model name for this client.
func (g *Client) GetModelName() string {
	return g.model
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llmerrors.FromStatus(apiErr.Code, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, fmt.Sprintf("Gemini API call failed: %v", err))
}
