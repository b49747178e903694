package retrieval

import (
	"math/rand"

	"planbuilder/pkg/config"
)

// UserAgents picks user agents from a fixed pool.
type UserAgents struct {
	agents []string
}

// NewUserAgents creates a picker. An empty pool uses the configured defaults.
func NewUserAgents(agents []string) *UserAgents {
	if len(agents) == 0 {
		agents = config.DefaultUserAgents
	}
	return &UserAgents{agents: append([]string(nil), agents...)}
}

// Pick returns a random user agent.
func (u *UserAgents) Pick() string {
	return u.agents[rand.Intn(len(u.agents))] //nolint:gosec // not security sensitive
}

// SearchHeaders returns the full browser-like header set sent with search requests.
func SearchHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Connection":                "keep-alive",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
	}
}

// DetailHeaders returns the lighter header set sent when following a result link.
func DetailHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Connection":      "keep-alive",
	}
}
