package retry

import (
	"context"
	"fmt"
	"time"

	"planbuilder/pkg/llm"
	"planbuilder/pkg/llm/llmerrors"
	"planbuilder/pkg/logx"
)

// Middleware retries failed requests according to the policy with exponential backoff.
// Only opening a stream is retried; errors delivered inside an open stream are left to the caller.
func Middleware(policy *Policy) llm.Middleware {
	logger := logx.NewLogger("llm-retry")

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var resp llm.CompletionResponse
				err := run(ctx, policy, logger, func() error {
					var err error
					resp, err = next.Complete(ctx, req)
					return err
				})
				return resp, err
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				var ch <-chan llm.StreamChunk
				err := run(ctx, policy, logger, func() error {
					var err error
					ch, err = next.Stream(ctx, req)
					return err
				})
				return ch, err
			},
			next.GetModelName,
		)
	}
}

func run(ctx context.Context, policy *Policy, logger *logx.Logger, call func() error) error {
	var lastErr error

	for attempt := 1; attempt <= policy.Config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if delay := policy.CalculateDelay(attempt); delay > 0 {
				select {
				case <-ctx.Done():
					return fmt.Errorf("retry cancelled: %w", ctx.Err())
				case <-time.After(delay):
				}
			}
		}

		err := call()
		if err == nil {
			return nil
		}
		lastErr = err

		if !policy.ShouldRetry(err) || attempt >= policy.Config.MaxAttempts {
			break
		}
		logger.Warn("attempt %d/%d failed, retrying: %v", attempt, policy.Config.MaxAttempts, err)
	}

	if policy.ShouldRetry(lastErr) {
		return llmerrors.NewServiceUnavailableError(lastErr, policy.Config.MaxAttempts)
	}
	return lastErr
}
