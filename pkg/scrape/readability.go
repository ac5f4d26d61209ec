package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/codeready-toolchain/herald/pkg/version"
)

const maxPageBytes = 5 << 20

// Readability downloads pages over HTTP and extracts the article body with
// go-readability.
type Readability struct {
	client   *http.Client
	maxChars int
}

var _ Scraper = (*Readability)(nil)

// NewReadability creates a scraper. A nil client gets a 20s timeout and a
// non-positive maxChars uses DefaultMaxChars.
func NewReadability(client *http.Client, maxChars int) *Readability {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Readability{client: client, maxChars: maxChars}
}

// Scrape fetches rawURL and returns its main text.
func (r *Readability) Scrape(ctx context.Context, rawURL string) (*Page, error) {
	target, ok := parseTarget(rawURL)
	if !ok {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", target.Host, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("fetch %s: unsupported content type %q", target.Host, ct)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), target)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}

	source := strings.TrimSpace(article.SiteName)
	if source == "" {
		source = hostOf(target)
	}
	text := strings.Join(strings.Fields(article.TextContent), " ")

	return &Page{
		URL:                 rawURL,
		Title:               strings.TrimSpace(article.Title),
		Content:             truncateRunes(text, r.maxChars),
		Author:              strings.TrimSpace(article.Byline),
		Source:              source,
		ScrapedSuccessfully: text != "",
	}, nil
}
