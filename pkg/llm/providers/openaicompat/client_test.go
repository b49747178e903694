package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planbuilder/pkg/llm"
	"planbuilder/pkg/llm/llmerrors"
)

func chunk(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chunk",
		"object":  "chat.completion.chunk",
		"created": 1,
		"model":   DefaultModel,
		"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": content}, "finish_reason": nil}},
	})
	return "data: " + string(body) + "\n\n"
}

func TestStreamConcatenatesDeltas(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"<function_", "call>[]", "</function_call>"} {
			fmt.Fprint(w, chunk(part))
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient("secret", srv.URL, "")
	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewSystemMessage("sys"), llm.NewUserMessage("hi")})
	req.Temperature = llm.TemperatureSchedule
	req.TopP = llm.TopPSchedule

	ch, err := client.Stream(context.Background(), req)
	require.NoError(t, err)

	var sb strings.Builder
	done := false
	for c := range ch {
		require.NoError(t, c.Error)
		sb.WriteString(c.Content)
		done = done || c.Done
	}

	assert.True(t, done)
	assert.Equal(t, "<function_call>[]</function_call>", sb.String())
	assert.Equal(t, DefaultModel, received["model"])
	assert.Equal(t, true, received["stream"])
	assert.InDelta(t, 0.9, received["top_p"], 1e-6)
	assert.Len(t, received["messages"], 2)
}

func TestCompleteClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	client := NewClient("secret", srv.URL, "custom-model")
	_, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("hi")}))

	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeRateLimit), "got %v", err)
	assert.Equal(t, "custom-model", client.GetModelName())
}

func TestCompleteReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hello"}}]}`)
	}))
	defer srv.Close()

	resp, err := NewClient("secret", srv.URL, "m").Complete(context.Background(), llm.NewCompletionRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
}
