package retrieval

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body>
<div class="margin-bottom10 font-semibold sal-jobtitle"><a href="/detail/%s">%s</a></div>
</body></html>`

const detailPage = `<html><body>
<svg><text id="top_salary_value"><tspan>%s</tspan></text></svg>
</body></html>`

const fallbackPage = `<html><body><div class="big-salary-value-box"> %s </div></body></html>`

// fakeSite serves search and detail pages. Roles are keyed by keyword.
type fakeSite struct {
	mu           sync.Mutex
	searchHits   map[string]int
	detailHits   map[string]int
	userAgents   []string
	searchStatus map[string][]int // statuses returned in order before succeeding
	detailStatus map[string]int
	noLink       map[string]bool
	fallback     map[string]bool
	noValue      map[string]bool
	salaries     map[string]string
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		searchHits:   map[string]int{},
		detailHits:   map[string]int{},
		searchStatus: map[string][]int{},
		detailStatus: map[string]int{},
		noLink:       map[string]bool{},
		fallback:     map[string]bool{},
		noValue:      map[string]bool{},
		salaries:     map[string]string{},
	}
}

func (f *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userAgents = append(f.userAgents, r.Header.Get("User-Agent"))

	switch {
	case r.URL.Path == "/search":
		role := r.URL.Query().Get("keyword")
		hit := f.searchHits[role]
		f.searchHits[role]++
		if statuses := f.searchStatus[role]; hit < len(statuses) {
			if statuses[hit] == http.StatusFound {
				w.Header().Set("Location", "/elsewhere")
			}
			w.WriteHeader(statuses[hit])
			return
		}
		if f.noLink[role] {
			_, _ = w.Write([]byte("<html><body><p>No results</p></body></html>"))
			return
		}
		slug := strings.ReplaceAll(role, " ", "-")
		_, _ = fmt.Fprintf(w, searchPage, slug, role)
	case strings.HasPrefix(r.URL.Path, "/detail/"):
		role := strings.ReplaceAll(strings.TrimPrefix(r.URL.Path, "/detail/"), "-", " ")
		f.detailHits[role]++
		if status := f.detailStatus[role]; status != 0 {
			w.WriteHeader(status)
			return
		}
		switch {
		case f.noValue[role]:
			_, _ = w.Write([]byte("<html><body></body></html>"))
		case f.fallback[role]:
			_, _ = fmt.Fprintf(w, fallbackPage, f.salaries[role])
		default:
			_, _ = fmt.Fprintf(w, detailPage, f.salaries[role])
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeSite) hits(role string) (search, detail int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchHits[role], f.detailHits[role]
}

func newTestWorker(t *testing.T, site *fakeSite) *Worker {
	t.Helper()
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)
	pool := NewPool(PoolConfig{MaxConcurrency: 5, MaxPerHost: 5}, nil)
	return NewWorker(pool, WorkerConfig{SearchURL: srv.URL + "/search?keyword={keyword}&location="}, nil)
}

func TestWorkerFindsSalary(t *testing.T) {
	site := newFakeSite()
	site.salaries["Backend Engineer"] = "$128,500"
	w := newTestWorker(t, site)

	out := w.Lookup(context.Background(), Target{Identifier: "Backend Engineer"})
	assert.Equal(t, KindOK, out.Kind)
	assert.Equal(t, "$128,500", out.Value)

	search, detail := site.hits("Backend Engineer")
	assert.Equal(t, 1, search)
	assert.Equal(t, 1, detail)
	for _, ua := range site.userAgents {
		assert.NotEmpty(t, ua)
	}
}

func TestWorkerFallbackSelector(t *testing.T) {
	site := newFakeSite()
	site.fallback["Designer"] = true
	site.salaries["Designer"] = "$80,000"
	w := newTestWorker(t, site)

	out := w.Lookup(context.Background(), Target{Identifier: "Designer"})
	assert.Equal(t, KindOK, out.Kind)
	assert.Equal(t, "$80,000", out.Value)
}

func TestWorkerRateLimitedAfterFiveRefusals(t *testing.T) {
	site := newFakeSite()
	site.searchStatus["QA"] = []int{429, 429, 429, 429, 429, 429}
	w := newTestWorker(t, site)

	out := w.Lookup(context.Background(), Target{Identifier: "QA"})
	assert.Equal(t, KindRateLimited, out.Kind)
	assert.Equal(t, "Unable to fetch salary for QA (rate limited)", out.Render("QA"))

	search, detail := site.hits("QA")
	assert.Equal(t, 5, search)
	assert.Zero(t, detail)
}

func TestWorkerRecoversAfterRefusals(t *testing.T) {
	site := newFakeSite()
	site.searchStatus["QA"] = []int{403, 429}
	site.salaries["QA"] = "$70,000"
	w := newTestWorker(t, site)

	out := w.Lookup(context.Background(), Target{Identifier: "QA"})
	assert.True(t, out.IsOK())
	search, _ := site.hits("QA")
	assert.Equal(t, 3, search)
}

func TestWorkerDetailAccessDeniedWithoutRetry(t *testing.T) {
	site := newFakeSite()
	site.detailStatus["PM"] = http.StatusForbidden
	w := newTestWorker(t, site)

	out := w.Lookup(context.Background(), Target{Identifier: "PM"})
	assert.Equal(t, KindAccessDenied, out.Kind)
	assert.Equal(t, "Unable to fetch salary for PM (access denied)", out.Render("PM"))

	search, detail := site.hits("PM")
	assert.Equal(t, 1, search)
	assert.Equal(t, 1, detail)
}

func TestWorkerNoData(t *testing.T) {
	site := newFakeSite()
	site.noLink["Wizard"] = true
	site.noValue["Sage"] = true
	w := newTestWorker(t, site)

	out := w.Lookup(context.Background(), Target{Identifier: "Wizard"})
	assert.Equal(t, KindNoData, out.Kind)
	assert.Equal(t, "No salary data found for Wizard", out.Render("Wizard"))
	_, detail := site.hits("Wizard")
	assert.Zero(t, detail)

	out = w.Lookup(context.Background(), Target{Identifier: "Sage"})
	assert.Equal(t, KindNoData, out.Kind)
}

func TestWorkerStatusFailures(t *testing.T) {
	site := newFakeSite()
	site.searchStatus["Broken"] = []int{500}
	site.searchStatus["Moved"] = []int{302}
	site.detailStatus["Gone"] = http.StatusNotFound
	w := newTestWorker(t, site)

	for _, role := range []string{"Broken", "Moved", "Gone"} {
		out := w.Lookup(context.Background(), Target{Identifier: role})
		assert.Equal(t, KindFailed, out.Kind, role)
		assert.Equal(t, "Failed to fetch salary for "+role, out.Render(role))
	}
	search, _ := site.hits("Broken")
	assert.Equal(t, 1, search)
}

type panickingFetcher struct{}

func (panickingFetcher) Fetch(context.Context, Request) (*Response, error) {
	panic("connection pool exploded")
}

func TestWorkerNeverPanics(t *testing.T) {
	w := NewWorker(panickingFetcher{}, WorkerConfig{}, nil)

	var out Outcome
	require.NotPanics(t, func() {
		out = w.Lookup(context.Background(), Target{Identifier: "Anyone"})
	})
	assert.Equal(t, KindFailed, out.Kind)
	assert.Contains(t, out.Reason, "connection pool exploded")
}

func TestWorkerTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	w := NewWorker(NewPool(PoolConfig{}, nil), WorkerConfig{SearchURL: base + "/search?keyword={keyword}"}, nil)
	out := w.Lookup(context.Background(), Target{Identifier: "Offline"})
	assert.Equal(t, KindFailed, out.Kind)
}

func TestSearchURLEscapesRole(t *testing.T) {
	w := NewWorker(panickingFetcher{}, WorkerConfig{}, nil)
	assert.Equal(t,
		"https://www.salary.com/tools/salary-calculator/search?keyword=Data+Scientist+%26+ML&location=",
		w.SearchURL("Data Scientist & ML"))
}

func TestExtractValueOrder(t *testing.T) {
	body := []byte(`<svg><text id="top_salary_value"><tspan> $1 </tspan></text></svg><div class="salary-value">$2</div>`)
	sel := DefaultSelectors()

	v, ok, err := ExtractValue(body, sel.DetailValue, sel.DetailFallback)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "$1", v)

	v, ok, err = ExtractValue([]byte(`<div class="salary-value">$2</div>`), sel.DetailValue, sel.DetailFallback)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "$2", v)
}

func TestFindDetailLinkRequiresHref(t *testing.T) {
	sel := DefaultSelectors().SearchLink
	_, ok, err := FindDetailLink([]byte(`<div class="margin-bottom10 font-semibold sal-jobtitle"><a>x</a></div>`), sel)
	require.NoError(t, err)
	assert.False(t, ok)

	href, ok, err := FindDetailLink([]byte(`<div class="margin-bottom10 font-semibold sal-jobtitle"><a href=" /d/1 ">x</a></div>`), sel)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/d/1", href)
}
