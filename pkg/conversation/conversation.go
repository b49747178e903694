// Package conversation carries a system prompt and prior turns into follow-up generation requests.
package conversation

import (
	"context"
	"sync"

	"planbuilder/pkg/generate"
	"planbuilder/pkg/llm"
	"planbuilder/pkg/logx"
	"planbuilder/pkg/utils"
)

// Params are the sampling settings of one round.
type Params struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// DefaultParams mirrors llm.NewCompletionRequest.
func DefaultParams() Params {
	return Params{
		MaxTokens:   llm.DefaultMaxTokens,
		Temperature: llm.TemperatureDefault,
		TopP:        llm.TopPDefault,
	}
}

// Conversation is an append-only history under one system prompt.
type Conversation struct {
	mu      sync.Mutex
	system  string
	turns   []llm.CompletionMessage
	params  Params
	counter *utils.TokenCounter
	logger  *logx.Logger
}

// New starts a conversation with the given system prompt.
func New(system string) *Conversation {
	// A nil counter falls back to a length estimate.
	counter, _ := utils.NewTokenCounter("")
	return &Conversation{
		system:  system,
		params:  DefaultParams(),
		counter: counter,
		logger:  logx.NewLogger("conversation"),
	}
}

// WithParams sets the sampling used by Ask.
func (c *Conversation) WithParams(p Params) *Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = p
	return c
}

// System returns the system prompt.
func (c *Conversation) System() string { return c.system }

// Turns returns a copy of the prior turns.
func (c *Conversation) Turns() []llm.CompletionMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.CompletionMessage(nil), c.turns...)
}

// Append records a completed round.
func (c *Conversation) Append(prompt, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, llm.NewUserMessage(prompt), llm.NewAssistantMessage(reply))
}

// Request builds system turn, prior turns in order, then prompt as the final user turn.
func (c *Conversation) Request(prompt string, p Params) llm.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]llm.CompletionMessage, 0, len(c.turns)+2)
	messages = append(messages, llm.NewSystemMessage(c.system))
	messages = append(messages, c.turns...)
	messages = append(messages, llm.NewUserMessage(prompt))

	return llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}
}

// Tokens estimates the size of the system prompt and history.
func (c *Conversation) Tokens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.counter.CountTokens(c.system)
	for i := range c.turns {
		total += c.counter.CountTokens(c.turns[i].Content)
	}
	return total
}

// Ask streams a reply to prompt and, on success, appends the round to the history.
// A failed round leaves the history unchanged.
func (c *Conversation) Ask(ctx context.Context, client llm.LLMClient, prompt string) (string, error) {
	c.mu.Lock()
	p := c.params
	c.mu.Unlock()

	req := c.Request(prompt, p)
	c.logger.Debug("Asking with %d prior turns, ~%d history tokens", len(req.Messages)-2, c.Tokens())

	reply, err := generate.Text(ctx, client, req)
	if err != nil {
		return "", err //nolint:wrapcheck // generate already names the failure
	}
	c.Append(prompt, reply)
	return reply, nil
}
