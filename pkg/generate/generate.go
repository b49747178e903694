// Package generate wraps fallible generate-parse-render sequences in a bounded retry loop.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"planbuilder/pkg/llm"
	"planbuilder/pkg/logx"
	"planbuilder/pkg/metrics"
)

// DefaultMaxAttempts bounds a sequence when the policy does not.
const DefaultMaxAttempts = 4

// ErrExhausted matches every *ExhaustedError.
var ErrExhausted = errors.New("generation attempts exhausted")

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Label    string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Label, e.Attempts, e.Err)
}

// Unwrap exposes the last cause.
func (e *ExhaustedError) Unwrap() error { return e.Err }

// Is reports ErrExhausted.
func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted } //nolint:errorlint // sentinel identity

// Policy configures Retry.
type Policy struct {
	MaxAttempts int
	Recorder    metrics.Recorder
	Logger      *logx.Logger
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Recorder == nil {
		p.Recorder = metrics.Nop()
	}
	if p.Logger == nil {
		p.Logger = logx.NewLogger("generate")
	}
	return p
}

// Retry runs fn until it succeeds or MaxAttempts is reached. Each attempt starts from a
// fresh generation; there is no delay between attempts. Cancellation of ctx ends the loop
// at once with ctx's error.
func Retry[T any](ctx context.Context, policy Policy, label string, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	policy = policy.normalized()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err //nolint:wrapcheck // caller's own context error
		}

		out, err := fn(ctx, attempt)
		policy.Recorder.ObserveGenerationAttempt(label, err == nil)
		if err == nil {
			if attempt > 1 {
				policy.Logger.Info("%s succeeded on attempt %d", label, attempt)
			}
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr //nolint:wrapcheck // caller's own context error
		}

		lastErr = err
		policy.Logger.Warn("%s attempt %d/%d failed: %v", label, attempt, policy.MaxAttempts, err)
	}

	return zero, &ExhaustedError{Label: label, Attempts: policy.MaxAttempts, Err: lastErr}
}

// Collect concatenates a stream of chunks into the full reply text.
// A chunk error or cancellation of ctx aborts collection.
func Collect(ctx context.Context, stream <-chan llm.StreamChunk) (string, error) {
	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err() //nolint:wrapcheck // caller's own context error
		case chunk, ok := <-stream:
			if !ok {
				return sb.String(), nil
			}
			if chunk.Error != nil {
				return "", fmt.Errorf("stream failed after %d bytes: %w", sb.Len(), chunk.Error)
			}
			sb.WriteString(chunk.Content)
			if chunk.Done {
				return sb.String(), nil
			}
		}
	}
}

// Text requests a streamed completion and collects it.
func Text(ctx context.Context, client llm.LLMClient, req llm.CompletionRequest) (string, error) {
	stream, err := client.Stream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to start generation: %w", err)
	}
	return Collect(ctx, stream)
}
