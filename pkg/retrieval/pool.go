package retrieval

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"planbuilder/pkg/logx"
	"planbuilder/pkg/metrics"
)

// PoolConfig holds the politeness limits shared by every worker.
type PoolConfig struct {
	MaxConcurrency int
	MaxPerHost     int
	// Delay is the minimum spacing between request starts.
	Delay   time.Duration
	Timeout time.Duration
}

// DefaultPoolConfig returns the limits used against the salary site.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConcurrency: 5,
		MaxPerHost:     5,
		Delay:          250 * time.Millisecond,
		Timeout:        60 * time.Second,
	}
}

// Request is one GET issued through the pool.
type Request struct {
	URL      string
	Headers  map[string]string
	Priority int
	// Stage labels metrics and logs ("search", "detail").
	Stage string
}

// Response is the result of a request. Redirects are never followed.
type Response struct {
	StatusCode int
	Body       []byte
	URL        *url.URL
}

// Pool issues GET requests under shared concurrency, per-host and pacing limits.
type Pool struct {
	http      *resty.Client
	admission *admission
	limiter   *rate.Limiter
	perHost   int64

	hostsMu sync.Mutex
	hosts   map[string]*semaphore.Weighted

	recorder metrics.Recorder
	logger   *logx.Logger
}

// NewPool creates a pool. A nil recorder disables metrics.
func NewPool(cfg PoolConfig, recorder metrics.Recorder) *Pool {
	def := DefaultPoolConfig()
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	if cfg.MaxPerHost <= 0 {
		cfg.MaxPerHost = def.MaxPerHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}

	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetCookieJar(nil).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))

	return &Pool{
		http:      client,
		admission: newAdmission(cfg.MaxConcurrency),
		limiter:   rate.NewLimiter(limit, 1),
		perHost:   int64(cfg.MaxPerHost),
		hosts:     make(map[string]*semaphore.Weighted),
		recorder:  recorder,
		logger:    logx.NewLogger("pool"),
	}
}

func (p *Pool) hostSemaphore(host string) *semaphore.Weighted {
	p.hostsMu.Lock()
	defer p.hostsMu.Unlock()
	sem, ok := p.hosts[host]
	if !ok {
		sem = semaphore.NewWeighted(p.perHost)
		p.hosts[host] = sem
	}
	return sem
}

// Fetch issues a GET. Every HTTP status, 3xx and 4xx included, is returned as a
// Response; only transport failures and cancellation are errors.
func (p *Pool) Fetch(ctx context.Context, req Request) (*Response, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", req.URL, err)
	}

	release, err := p.admission.Acquire(ctx, req.Priority)
	if err != nil {
		return nil, err
	}
	defer release()

	sem := p.hostSemaphore(target.Host)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err //nolint:wrapcheck // Context error propagated as-is
	}
	defer sem.Release(1)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for request slot: %w", err)
	}

	start := time.Now()
	resp, err := p.http.R().
		SetContext(ctx).
		SetHeaders(req.Headers).
		Get(target.String())
	duration := time.Since(start)
	if err != nil {
		p.recorder.ObserveScrape(req.Stage, 0, duration)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr //nolint:wrapcheck // Context error propagated as-is
		}
		p.logger.Warn("%s request to %s failed: %v", req.Stage, target.Host, err)
		return nil, fmt.Errorf("GET %s: %w", target.Redacted(), err)
	}

	p.recorder.ObserveScrape(req.Stage, resp.StatusCode(), duration)
	logx.Debug(ctx, "retrieval", "%s %s -> %d (%dms)", req.Stage, target.Redacted(), resp.StatusCode(), duration.Milliseconds())

	final := target
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		final = resp.RawResponse.Request.URL
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body(), URL: final}, nil
}

// Stats returns the admission queue snapshot.
func (p *Pool) Stats() AdmissionStats {
	return p.admission.Stats()
}
