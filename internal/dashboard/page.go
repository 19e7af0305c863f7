// Package dashboard holds per-session presentation state: the selected page,
// the preview toggle and the uploaded real-data table.
package dashboard

import (
	"fmt"
	"strings"
)

// Page is a dashboard view
type Page string

const (
	PageHome       Page = "home"
	PageTMTI       Page = "tmti"
	PageCompliance Page = "compliance"
	PageImpact     Page = "impact"
)

// Pages returns the pages in navigation order
func Pages() []Page {
	return []Page{PageHome, PageTMTI, PageCompliance, PageImpact}
}

// Title returns the navigation label of the page
func (p Page) Title() string {
	switch p {
	case PageHome:
		return "Overview"
	case PageTMTI:
		return "Resolution time (TMTI)"
	case PageCompliance:
		return "Compliance and risk"
	case PageImpact:
		return "Social impact"
	}
	return string(p)
}

// ParsePage returns the page named s, ignoring case
func ParsePage(s string) (Page, error) {
	want := Page(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range Pages() {
		if p == want {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown page %q", s)
}
