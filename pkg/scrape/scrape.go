// Package scrape fetches the main text of article pages.
package scrape

import (
	"context"
	"net/url"
	"strings"
)

// DefaultMaxChars caps the content kept per page.
const DefaultMaxChars = 4000

// Page is the extracted content of one URL.
type Page struct {
	URL                 string `json:"url"`
	Title               string `json:"title"`
	Content             string `json:"content"`
	Author              string `json:"author,omitempty"`
	Source              string `json:"source"`
	ScrapedSuccessfully bool   `json:"scraped_successfully"`
}

// Scraper extracts readable content from a URL.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (*Page, error)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func hostOf(u *url.URL) string {
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func parseTarget(rawURL string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, false
	}
	return u, true
}
