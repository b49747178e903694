package retrieval

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors are the CSS selectors applied to search and detail pages.
type Selectors struct {
	SearchLink     string
	DetailValue    string
	DetailFallback string
}

// DefaultSelectors match the current salary site markup.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchLink:     "div.margin-bottom10.font-semibold.sal-jobtitle > a",
		DetailValue:    "text#top_salary_value > tspan",
		DetailFallback: `div[class*="salary-value"]`,
	}
}

func parseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// FindDetailLink returns the href of the first element matching selector.
// The bool is false when no element with a non-empty href matches.
func FindDetailLink(body []byte, selector string) (string, bool, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return "", false, err
	}
	href, ok := doc.Find(selector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", false, nil
	}
	return href, true, nil
}

// ExtractValue returns the trimmed text of the first non-empty match for
// primary, then fallback.
func ExtractValue(body []byte, primary, fallback string) (string, bool, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return "", false, err
	}
	for _, sel := range []string{primary, fallback} {
		if sel == "" {
			continue
		}
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text, true, nil
		}
	}
	return "", false, nil
}
