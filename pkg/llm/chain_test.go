package llm

import (
	"context"
	"errors"
	"io"
	"testing"
)

type stubClient struct {
	content string
	err     error
}

func (s stubClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	if s.err != nil {
		return CompletionResponse{}, s.err
	}
	return CompletionResponse{Content: s.content}, nil
}

func (s stubClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	return StreamFromComplete(ctx, s.Complete, req)
}

func (s stubClient) GetModelName() string { return "stub" }

func tagging(tag string, trace *[]string) Middleware {
	return func(next LLMClient) LLMClient {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				*trace = append(*trace, tag)
				return next.Complete(ctx, req)
			},
			next.Stream,
			next.GetModelName,
		)
	}
}

func TestChainOrder(t *testing.T) {
	var trace []string
	client := Chain(stubClient{content: "ok"}, tagging("outer", &trace), tagging("inner", &trace))

	resp, err := client.Complete(context.Background(), NewCompletionRequest([]CompletionMessage{NewUserMessage("hi")}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("expected 'ok', got %q", resp.Content)
	}
	if len(trace) != 2 || trace[0] != "outer" || trace[1] != "inner" {
		t.Errorf("expected [outer inner], got %v", trace)
	}
	if client.GetModelName() != "stub" {
		t.Errorf("expected model name to pass through, got %q", client.GetModelName())
	}
}

func TestChainNoMiddleware(t *testing.T) {
	base := stubClient{content: "plain"}
	if Chain(base) != LLMClient(base) {
		t.Error("expected Chain with no middleware to return the base client")
	}
}

func TestNewCompletionRequestDefaults(t *testing.T) {
	req := NewCompletionRequest([]CompletionMessage{NewUserMessage("test")})

	if req.MaxTokens != DefaultMaxTokens {
		t.Errorf("expected MaxTokens=%d, got %d", DefaultMaxTokens, req.MaxTokens)
	}
	if req.Temperature != TemperatureDefault {
		t.Errorf("expected Temperature=%v, got %v", TemperatureDefault, req.Temperature)
	}
	if req.TopP != TopPDefault {
		t.Errorf("expected TopP=%v, got %v", TopPDefault, req.TopP)
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]CompletionMessage{
		NewSystemMessage("a"),
		NewUserMessage("u1"),
		NewSystemMessage("b"),
		NewAssistantMessage("a1"),
	})

	if system != "a\n\nb" {
		t.Errorf("unexpected system text %q", system)
	}
	if len(rest) != 2 || rest[0].Role != RoleUser || rest[1].Role != RoleAssistant {
		t.Errorf("unexpected remaining messages: %+v", rest)
	}
}

func TestStreamToReader(t *testing.T) {
	ch := make(chan StreamChunk, 3)
	ch <- StreamChunk{Content: "hello "}
	ch <- StreamChunk{Content: "world"}
	ch <- StreamChunk{Done: true}
	close(ch)

	data, err := io.ReadAll(StreamToReader(ch))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("expected 'hello world', got %q", string(data))
	}
}

func TestStreamToReaderError(t *testing.T) {
	boom := errors.New("boom")
	ch := make(chan StreamChunk, 2)
	ch <- StreamChunk{Content: "partial"}
	ch <- StreamChunk{Error: boom}
	close(ch)

	_, err := io.ReadAll(StreamToReader(ch))
	if !errors.Is(err, boom) {
		t.Errorf("expected stream error to surface, got %v", err)
	}
}
