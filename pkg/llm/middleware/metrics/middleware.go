// Package metrics provides metrics middleware for LLM clients.
package metrics

import (
	"context"
	"strings"
	"time"

	"planbuilder/pkg/llm"
	"planbuilder/pkg/llm/llmerrors"
	"planbuilder/pkg/logx"
	"planbuilder/pkg/metrics"
	"planbuilder/pkg/utils"
)

func promptTokens(req llm.CompletionRequest) int {
	var sb strings.Builder
	for i := range req.Messages {
		sb.WriteString(req.Messages[i].Content)
		sb.WriteString("\n")
	}
	return utils.CountTokensSimple(sb.String())
}

func errorType(err error) string {
	if err == nil {
		return ""
	}
	if err == context.Canceled || err == context.DeadlineExceeded { //nolint:errorlint // exact sentinel match
		return "canceled"
	}
	return llmerrors.TypeOf(err).String()
}

// Middleware records request latency, estimated token usage and error types.
// For streams the observation is taken when the stream ends, so duration covers the whole generation.
func Middleware(recorder metrics.Recorder, logger *logx.Logger) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var in, out int
				if err == nil {
					in, out = promptTokens(req), utils.CountTokensSimple(resp.Content)
				}
				recorder.ObserveRequest(next.GetModelName(), in, out, err == nil, errorType(err), duration)
				if logger != nil {
					logger.Debug("complete model=%s tokens=%d+%d err=%v duration=%dms", next.GetModelName(), in, out, err, duration.Milliseconds())
				}
				return resp, err //nolint:wrapcheck // pass through unchanged
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				start := time.Now()
				src, err := next.Stream(ctx, req)
				if err != nil {
					recorder.ObserveRequest(next.GetModelName(), 0, 0, false, errorType(err), time.Since(start))
					return nil, err //nolint:wrapcheck // pass through unchanged
				}

				out := make(chan llm.StreamChunk)
				go func() {
					defer close(out)
					var content strings.Builder
					var streamErr error
					for chunk := range src {
						content.WriteString(chunk.Content)
						if chunk.Error != nil {
							streamErr = chunk.Error
						}
						select {
						case out <- chunk:
						case <-ctx.Done():
							streamErr = ctx.Err()
						}
						if streamErr != nil {
							break
						}
					}

					duration := time.Since(start)
					in, generated := promptTokens(req), utils.CountTokensSimple(content.String())
					recorder.ObserveRequest(next.GetModelName(), in, generated, streamErr == nil, errorType(streamErr), duration)
					if logger != nil {
						logger.Debug("stream model=%s tokens=%d+%d err=%v duration=%dms", next.GetModelName(), in, generated, streamErr, duration.Milliseconds())
					}
				}()
				return out, nil
			},
			next.GetModelName,
		)
	}
}
