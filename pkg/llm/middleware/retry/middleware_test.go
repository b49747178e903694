package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"planbuilder/pkg/llm"
	"planbuilder/pkg/llm/llmerrors"
)

type flakyClient struct {
	failures int
	err      error
	calls    int
}

func (f *flakyClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return llm.CompletionResponse{}, f.err
	}
	return llm.CompletionResponse{Content: "ok"}, nil
}

func (f *flakyClient) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return llm.StreamFromComplete(ctx, f.Complete, req)
}

func (f *flakyClient) GetModelName() string { return "flaky" }

func fastPolicy(attempts int) *Policy {
	return NewPolicy(Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}, nil)
}

func TestShouldRetry_NilError(t *testing.T) {
	if ShouldRetry(nil) {
		t.Error("Expected false for nil error")
	}
}

func TestShouldRetry_ContextCanceled(t *testing.T) {
	if ShouldRetry(fmt.Errorf("wrapped: %w", context.Canceled)) {
		t.Error("Expected false for wrapped context.Canceled")
	}
}

func TestShouldRetry_DeadlineExceeded(t *testing.T) {
	if !ShouldRetry(fmt.Errorf("http call failed: %w", context.DeadlineExceeded)) {
		t.Error("Expected true for per-request timeouts")
	}
}

func TestShouldRetry_Classified(t *testing.T) {
	if !ShouldRetry(llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "slow down")) {
		t.Error("Expected rate limit errors to be retried")
	}
	if ShouldRetry(llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key")) {
		t.Error("Expected auth errors not to be retried")
	}
}

func TestMiddleware_RecoversFromTransientFailures(t *testing.T) {
	base := &flakyClient{failures: 2, err: llmerrors.NewError(llmerrors.ErrorTypeTransient, "503")}
	client := Middleware(fastPolicy(3))(base)

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" || base.calls != 3 {
		t.Errorf("expected success on third call, got %q after %d calls", resp.Content, base.calls)
	}
}

func TestMiddleware_ExhaustionBecomesServiceUnavailable(t *testing.T) {
	base := &flakyClient{failures: 10, err: llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "429")}
	client := Middleware(fastPolicy(2))(base)

	_, err := client.Stream(context.Background(), llm.CompletionRequest{})
	if !llmerrors.IsServiceUnavailable(err) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	if base.calls != 2 {
		t.Errorf("expected 2 calls, got %d", base.calls)
	}
}

func TestMiddleware_NonRetryablePassesThrough(t *testing.T) {
	authErr := llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key")
	base := &flakyClient{failures: 10, err: authErr}
	client := Middleware(fastPolicy(5))(base)

	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	if !errors.Is(err, authErr) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if base.calls != 1 {
		t.Errorf("expected a single call, got %d", base.calls)
	}
}

func TestCalculateDelay(t *testing.T) {
	p := NewPolicy(Config{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: 250 * time.Millisecond, BackoffFactor: 2}, nil)

	if d := p.CalculateDelay(1); d != 0 {
		t.Errorf("expected no delay before first attempt, got %v", d)
	}
	if d := p.CalculateDelay(2); d != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", d)
	}
	if d := p.CalculateDelay(5); d != 250*time.Millisecond {
		t.Errorf("expected cap at 250ms, got %v", d)
	}
}
