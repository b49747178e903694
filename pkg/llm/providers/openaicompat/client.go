// Package openaicompat implements llm.LLMClient for OpenAI-compatible chat endpoints
// (SambaNova Cloud by default) using the official OpenAI Go package.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"planbuilder/pkg/llm"
	"planbuilder/pkg/llm/llmerrors"
)

const (
	// DefaultBaseURL is SambaNova Cloud's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.sambanova.ai/v1"
	// DefaultModel is the model the planner prompts are tuned for.
	DefaultModel = "Meta-Llama-3.1-70B-Instruct"
)

// Client wraps the official OpenAI client (raw client, middleware applied at higher level).
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a client for model at baseURL. Empty values fall back to the defaults.
func NewClient(apiKey, baseURL, model string) llm.LLMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		// Retries are owned by the retry middleware.
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(baseURL), option.WithMaxRetries(0)),
		model:  model,
	}
}

func (c *Client) params(in llm.CompletionRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(float64(in.Temperature)),
	}
	if in.TopP > 0 {
		params.TopP = openai.Float(float64(in.TopP))
	}
	if in.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(in.MaxTokens))
	}
	return params
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // value request is part of the interface
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.params(in))
	if err != nil {
		return llm.CompletionResponse{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return llm.CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, "empty completion content")
	}
	return llm.CompletionResponse{Content: content, StopReason: resp.Choices[0].FinishReason}, nil
}

// Stream implements llm.LLMClient with server-sent events.
//
//nolint:gocritic // value request is part of the interface
func (c *Client) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(in))
	if stream == nil {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeUnknown, "stream could not be opened")
	}

	// Surface connection failures to the caller (and the retry middleware) before handing out a channel.
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, classify(err)
	}

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				select {
				case ch <- llm.StreamChunk{Content: content}:
				case <-ctx.Done():
					return
				}
			}
		}

		final := llm.StreamChunk{Done: true}
		if err := stream.Err(); err != nil {
			final = llm.StreamChunk{Error: classify(err)}
		}
		select {
		case ch <- final:
		case <-ctx.Done():
		}
	}()

	return ch, nil
}

// GetModelName returns the model name.
func (c *Client) GetModelName() string {
	return c.model
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llmerrors.FromStatus(apiErr.StatusCode, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, fmt.Sprintf("request failed: %v", err))
}
