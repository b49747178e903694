package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"planbuilder/pkg/llm"
)

// MockLLMClient implements llm.LLMClient for testing.
// It provides configurable behavior for Complete and Stream operations.
//
//nolint:govet // fieldalignment: mock struct layout optimized for readability
type MockLLMClient struct {
	// CompleteFunc is called when Complete is invoked. Override to customize behavior.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)

	// StreamFunc is called when Stream is invoked. Override to customize behavior.
	StreamFunc func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error)

	// CompleteCalls tracks all calls to Complete for verification.
	CompleteCalls []llm.CompletionRequest

	// StreamCalls tracks all calls to Stream for verification.
	StreamCalls []llm.CompletionRequest

	modelName string

	// mu protects call tracking slices
	mu sync.Mutex
}

// NewMockLLMClient creates a new mock LLM client with default behavior.
// Default behavior: both Complete and Stream return "Mock response".
func NewMockLLMClient() *MockLLMClient {
	m := &MockLLMClient{modelName: "mock-model"}
	m.RespondWith("Mock response")
	return m
}

// Complete implements llm.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, req)
	fn := m.CompleteFunc
	m.mu.Unlock()
	return fn(ctx, req)
}

// Stream implements llm.LLMClient.
func (m *MockLLMClient) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	m.mu.Lock()
	m.StreamCalls = append(m.StreamCalls, req)
	fn := m.StreamFunc
	m.mu.Unlock()
	return fn(ctx, req)
}

// GetModelName implements llm.LLMClient.
func (m *MockLLMClient) GetModelName() string {
	return m.modelName
}

// --- Configuration methods ---

// SetModelName sets the model name returned by GetModelName.
func (m *MockLLMClient) SetModelName(name string) {
	m.modelName = name
}

// OnComplete sets a custom handler for Complete calls.
func (m *MockLLMClient) OnComplete(fn func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error)) {
	m.CompleteFunc = fn
}

// OnStream sets a custom handler for Stream calls.
func (m *MockLLMClient) OnStream(fn func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error)) {
	m.StreamFunc = fn
}

// --- Error simulation helpers ---

// FailCompleteWith configures Complete to return the specified error.
func (m *MockLLMClient) FailCompleteWith(err error) {
	m.CompleteFunc = func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{}, err
	}
}

// FailStreamWith configures Stream to return the specified error.
func (m *MockLLMClient) FailStreamWith(err error) {
	m.StreamFunc = func(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
		return nil, err
	}
}

// --- Response helpers ---

// RespondWith configures Complete and Stream to return the specified content.
func (m *MockLLMClient) RespondWith(content string) {
	m.RespondWithSequence([]string{content})
}

// RespondWithSequence configures Complete and Stream to return each reply in turn.
// The last reply is repeated for any additional calls. Complete and Stream share the cursor.
func (m *MockLLMClient) RespondWithSequence(replies []string) {
	var (
		mu    sync.Mutex
		index int
	)
	next := func() string {
		mu.Lock()
		defer mu.Unlock()
		if index < len(replies) {
			index++
			return replies[index-1]
		}
		return replies[len(replies)-1]
	}

	m.CompleteFunc = func(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Content: next(), StopReason: "end_turn"}, nil
	}
	m.StreamFunc = func(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
		return chunked(next(), 16), nil
	}
}

// EnvelopeCall is one tool invocation in a scripted reply.
type EnvelopeCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// Envelope renders prose followed by a <function_call> block holding calls.
func Envelope(prose string, calls ...EnvelopeCall) string {
	body, err := json.Marshal(calls)
	if err != nil {
		panic(fmt.Sprintf("mock envelope: %v", err))
	}
	return prose + "\n<function_call>" + string(body) + "</function_call>"
}

// --- Streaming helpers ---

func chunked(content string, chunkSize int) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		for i := 0; i < len(content); i += chunkSize {
			end := min(i+chunkSize, len(content))
			ch <- llm.StreamChunk{Content: content[i:end]}
		}
		ch <- llm.StreamChunk{Done: true}
	}()
	return ch
}

// StreamContent configures Stream to return the content in chunks.
func (m *MockLLMClient) StreamContent(content string, chunkSize int) {
	m.StreamFunc = func(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
		return chunked(content, chunkSize), nil
	}
}

// StreamWithError configures Stream to return an error after streaming some content.
func (m *MockLLMClient) StreamWithError(content string, err error) {
	m.StreamFunc = func(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
		ch := make(chan llm.StreamChunk)
		go func() {
			defer close(ch)
			ch <- llm.StreamChunk{Content: content}
			ch <- llm.StreamChunk{Error: err}
		}()
		return ch, nil
	}
}

// --- Verification helpers ---

// Reset clears all recorded calls.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls = nil
	m.StreamCalls = nil
}

// GetCompleteCallCount returns the number of times Complete was called.
func (m *MockLLMClient) GetCompleteCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CompleteCalls)
}

// GetStreamCallCount returns the number of times Stream was called.
func (m *MockLLMClient) GetStreamCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.StreamCalls)
}

// LastStreamCall returns the most recent Stream call request, or nil if none.
func (m *MockLLMClient) LastStreamCall() *llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.StreamCalls) == 0 {
		return nil
	}
	return &m.StreamCalls[len(m.StreamCalls)-1]
}

// GetNthStreamCall returns the nth Stream call (0-indexed), or nil if not enough calls.
func (m *MockLLMClient) GetNthStreamCall(n int) *llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.StreamCalls) {
		return nil
	}
	return &m.StreamCalls[n]
}

// AssertStreamCalledWith reports whether any Stream call carried a message containing substr.
func (m *MockLLMClient) AssertStreamCalledWith(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.StreamCalls {
		for _, msg := range call.Messages {
			if strings.Contains(msg.Content, substr) {
				return true
			}
		}
	}
	return false
}
