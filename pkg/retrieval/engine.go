package retrieval

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"planbuilder/pkg/config"
	"planbuilder/pkg/logx"
	"planbuilder/pkg/metrics"
)

// DefaultCollectTimeout bounds a whole batch.
const DefaultCollectTimeout = 5 * time.Minute

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCollectTimeout sets how long a batch may run before it is abandoned.
func WithCollectTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.collectTimeout = d
		}
	}
}

// WithAdmissionStats reports the admission queue after each completed target
// on the "retrieval" debug domain.
func WithAdmissionStats(stats func() AdmissionStats) EngineOption {
	return func(e *Engine) {
		e.stats = stats
	}
}

// Engine resolves batches of targets inside an isolated, supervised scope.
type Engine struct {
	lookuper       Lookuper
	collectTimeout time.Duration
	stats          func() AdmissionStats
	logger         *logx.Logger
}

// NewEngine creates an engine that runs lookuper once per target.
func NewEngine(lookuper Lookuper, opts ...EngineOption) *Engine {
	e := &Engine{
		lookuper:       lookuper,
		collectTimeout: DefaultCollectTimeout,
		logger:         logx.NewLogger("retrieval"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewEngineFromConfig wires pool, worker and engine from configuration.
func NewEngineFromConfig(cfg config.RetrievalConfig, recorder metrics.Recorder) *Engine {
	pool := NewPool(PoolConfig{
		MaxConcurrency: cfg.MaxConcurrency,
		MaxPerHost:     cfg.MaxPerDomain,
		Delay:          cfg.RequestDelay,
		Timeout:        cfg.RequestTimeout,
	}, recorder)
	worker := NewWorker(pool, WorkerConfig{
		SearchURL:         cfg.SearchURL,
		MaxSearchAttempts: cfg.MaxSearchAttempts,
		Selectors: Selectors{
			SearchLink:     cfg.Selectors.SearchLink,
			DetailValue:    cfg.Selectors.DetailValue,
			DetailFallback: cfg.Selectors.DetailFallback,
		},
		UserAgents: cfg.UserAgents,
	}, recorder)
	return NewEngine(worker, WithCollectTimeout(cfg.CollectTimeout), WithAdmissionStats(pool.Stats))
}

type indexedOutcome struct {
	index   int
	outcome Outcome
}

// Resolve returns exactly one result per target, in submission order.
//
// Workers run in a scope detached from ctx's cancellation and bounded by the
// collect timeout. The scope is cancelled before Resolve returns. If a worker
// panics past its boundary, the batch times out, or ctx is cancelled, every
// target gets ErrorFetching; partial results are never returned.
func (e *Engine) Resolve(ctx context.Context, targets []Target) []Result {
	n := len(targets)
	results := make([]Result, n)
	for i, t := range targets {
		results[i].Identifier = t.Identifier
	}
	if n == 0 {
		return results
	}

	isolated, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.collectTimeout)
	defer cancel()
	isolated = logx.WithComponent(isolated, "engine")

	outcomes := make(chan indexedOutcome, n)
	crashed := make(chan any, 1)
	var completed atomic.Int64

	for i, t := range targets {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					select {
					case crashed <- r:
					default:
					}
				}
			}()
			outcome := e.lookuper.Lookup(isolated, t)
			outcomes <- indexedOutcome{index: i, outcome: outcome}
		}()
	}

	e.logger.Info("resolving %d targets", n)
	for completed.Load() < int64(n) {
		select {
		case got := <-outcomes:
			results[got.index].Outcome = got.outcome
			done := completed.Add(1)
			e.logger.Info("[%.1f%%] Completed %s: %s",
				float64(done)/float64(n)*100, results[got.index].Identifier, results[got.index].Text())
			if e.stats != nil {
				st := e.stats()
				logx.Debug(isolated, "retrieval", "admission: %d/%d active, %d waiting, %d concurrency hits",
					st.ActiveRequests, st.MaxConcurrency, st.Waiting, st.ConcurrencyHits)
			}
		case r := <-crashed:
			return e.fail(results, fmt.Sprintf("worker crashed: %v", r))
		case <-isolated.Done():
			return e.fail(results, fmt.Sprintf("batch timed out after %s", e.collectTimeout))
		case <-ctx.Done():
			return e.fail(results, ctx.Err().Error())
		}
	}
	return results
}

func (e *Engine) fail(results []Result, reason string) []Result {
	e.logger.Error("retrieval batch failed: %s", reason)
	for i := range results {
		results[i].Outcome = ErrorFetching(reason)
	}
	return results
}
