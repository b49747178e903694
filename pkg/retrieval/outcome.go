// Package retrieval resolves job-role salaries against a public salary site.
//
// A Worker runs the search-then-detail lookup for one role. An Engine runs one
// worker per role inside an isolated, supervised scope and returns exactly one
// result per role in the order the roles were given. All workers share a Pool,
// which owns every politeness limit (concurrency, per-host cap, delay, timeout).
package retrieval

import (
	"fmt"
	"strings"
)

// Kind classifies a lookup outcome.
type Kind int

// Outcome kinds.
const (
	KindOK Kind = iota
	KindNoData
	KindRateLimited
	KindAccessDenied
	KindFailed
	KindErrorFetching
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNoData:
		return "no_data"
	case KindRateLimited:
		return "rate_limited"
	case KindAccessDenied:
		return "access_denied"
	case KindFailed:
		return "failed"
	case KindErrorFetching:
		return "error_fetching"
	default:
		return "unknown"
	}
}

// Outcome is either a value or a failure kind with a reason.
type Outcome struct {
	Kind   Kind
	Value  string
	Reason string
}

// OK wraps a found value.
func OK(value string) Outcome { return Outcome{Kind: KindOK, Value: strings.TrimSpace(value)} }

// NoData reports that the source had nothing for the role.
func NoData(reason string) Outcome { return Outcome{Kind: KindNoData, Reason: reason} }

// RateLimited reports that the search kept being refused.
func RateLimited(attempts int) Outcome {
	return Outcome{Kind: KindRateLimited, Reason: fmt.Sprintf("refused %d times", attempts)}
}

// AccessDenied reports that the detail page was refused.
func AccessDenied(status int) Outcome {
	return Outcome{Kind: KindAccessDenied, Reason: fmt.Sprintf("HTTP %d", status)}
}

// Failed reports a transport, status or unexpected failure.
func Failed(reason string) Outcome { return Outcome{Kind: KindFailed, Reason: reason} }

// ErrorFetching reports a page that could not be processed, or a failed batch.
func ErrorFetching(reason string) Outcome { return Outcome{Kind: KindErrorFetching, Reason: reason} }

// IsOK reports whether a value was found.
func (o Outcome) IsOK() bool { return o.Kind == KindOK }

// Render returns the text shown for identifier.
func (o Outcome) Render(identifier string) string {
	switch o.Kind {
	case KindOK:
		return o.Value
	case KindNoData:
		return "No salary data found for " + identifier
	case KindRateLimited:
		return "Unable to fetch salary for " + identifier + " (rate limited)"
	case KindAccessDenied:
		return "Unable to fetch salary for " + identifier + " (access denied)"
	case KindErrorFetching:
		return "Error fetching salary for " + identifier
	default:
		return "Failed to fetch salary for " + identifier
	}
}

// Target is one identifier to resolve. Duplicates are resolved independently.
type Target struct {
	Identifier string
}

// Targets builds targets from identifiers.
func Targets(identifiers ...string) []Target {
	out := make([]Target, len(identifiers))
	for i, id := range identifiers {
		out[i] = Target{Identifier: id}
	}
	return out
}

// Result is the outcome for one target.
type Result struct {
	Identifier string
	Outcome    Outcome
}

// Text renders the outcome for this result's identifier.
func (r Result) Text() string { return r.Outcome.Render(r.Identifier) }

// String renders "identifier: text".
func (r Result) String() string { return r.Identifier + ": " + r.Text() }

// Summary renders every result as "identifier: text", joined by single spaces.
func Summary(results []Result) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}
