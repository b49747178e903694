package retrieval

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"planbuilder/pkg/logx"
	"planbuilder/pkg/metrics"
)

// DefaultSearchURL is the salary search endpoint. {keyword} is replaced by the
// query-escaped role.
const DefaultSearchURL = "https://www.salary.com/tools/salary-calculator/search?keyword={keyword}&location="

// DefaultMaxSearchAttempts bounds search requests per lookup.
const DefaultMaxSearchAttempts = 5

// Fetcher issues one GET. *Pool implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// Lookuper resolves one target to a terminal outcome. Implementations never
// return an error; every failure is an Outcome.
type Lookuper interface {
	Lookup(ctx context.Context, target Target) Outcome
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	SearchURL         string
	MaxSearchAttempts int
	Selectors         Selectors
	UserAgents        []string
}

// Worker performs the search-then-detail lookup for one role.
type Worker struct {
	fetcher  Fetcher
	cfg      WorkerConfig
	agents   *UserAgents
	recorder metrics.Recorder
	logger   *logx.Logger
}

// NewWorker creates a worker issuing requests through fetcher.
func NewWorker(fetcher Fetcher, cfg WorkerConfig, recorder metrics.Recorder) *Worker {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.MaxSearchAttempts <= 0 {
		cfg.MaxSearchAttempts = DefaultMaxSearchAttempts
	}
	def := DefaultSelectors()
	if cfg.Selectors.SearchLink == "" {
		cfg.Selectors.SearchLink = def.SearchLink
	}
	if cfg.Selectors.DetailValue == "" {
		cfg.Selectors.DetailValue = def.DetailValue
	}
	if cfg.Selectors.DetailFallback == "" {
		cfg.Selectors.DetailFallback = def.DetailFallback
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Worker{
		fetcher:  fetcher,
		cfg:      cfg,
		agents:   NewUserAgents(cfg.UserAgents),
		recorder: recorder,
		logger:   logx.NewLogger("retrieval"),
	}
}

func refused(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// SearchURL returns the search URL for role.
func (w *Worker) SearchURL(role string) string {
	return strings.Replace(w.cfg.SearchURL, "{keyword}", url.QueryEscape(role), 1)
}

// Lookup runs the lookup state machine for target. It never panics.
func (w *Worker) Lookup(ctx context.Context, target Target) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("lookup for %q panicked: %v", target.Identifier, r)
			out = Failed(fmt.Sprintf("panic: %v", r))
		}
		w.recorder.ObserveLookup(out.Kind.String())
	}()

	searchURL := w.SearchURL(target.Identifier)
	resp, out, done := w.search(ctx, target.Identifier, searchURL)
	if done {
		return out
	}

	href, found, err := FindDetailLink(resp.Body, w.cfg.Selectors.SearchLink)
	if err != nil {
		return ErrorFetching(err.Error())
	}
	if !found {
		return NoData("no search result link")
	}
	link, err := resp.URL.Parse(href)
	if err != nil {
		return ErrorFetching(fmt.Sprintf("bad result link %q: %v", href, err))
	}

	return w.detail(ctx, target.Identifier, link.String())
}

// search issues the search request, re-issuing it on 403/429 until the attempt
// budget runs out. The bool is true when the outcome is terminal.
func (w *Worker) search(ctx context.Context, role, searchURL string) (*Response, Outcome, bool) {
	for attempt := 1; attempt <= w.cfg.MaxSearchAttempts; attempt++ {
		resp, err := w.fetcher.Fetch(ctx, Request{
			URL:      searchURL,
			Headers:  SearchHeaders(w.agents.Pick()),
			Priority: attempt - 1,
			Stage:    "search",
		})
		if err != nil {
			return nil, Failed(err.Error()), true
		}
		if refused(resp.StatusCode) {
			w.logger.Warn("search for %q refused with HTTP %d (attempt %d/%d)", role, resp.StatusCode, attempt, w.cfg.MaxSearchAttempts)
			continue
		}
		if !success(resp.StatusCode) {
			return nil, Failed(fmt.Sprintf("search returned HTTP %d", resp.StatusCode)), true
		}
		return resp, Outcome{}, false
	}
	return nil, RateLimited(w.cfg.MaxSearchAttempts), true
}

func (w *Worker) detail(ctx context.Context, role, link string) Outcome {
	resp, err := w.fetcher.Fetch(ctx, Request{
		URL:     link,
		Headers: DetailHeaders(w.agents.Pick()),
		Stage:   "detail",
	})
	if err != nil {
		return Failed(err.Error())
	}
	if refused(resp.StatusCode) {
		w.logger.Warn("detail page for %q refused with HTTP %d", role, resp.StatusCode)
		return AccessDenied(resp.StatusCode)
	}
	if !success(resp.StatusCode) {
		return Failed(fmt.Sprintf("detail returned HTTP %d", resp.StatusCode))
	}

	value, found, err := ExtractValue(resp.Body, w.cfg.Selectors.DetailValue, w.cfg.Selectors.DetailFallback)
	if err != nil {
		return ErrorFetching(err.Error())
	}
	if !found {
		return NoData("no salary value on detail page")
	}
	return OK(value)
}
