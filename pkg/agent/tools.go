package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/herald/pkg/github"
	"github.com/codeready-toolchain/herald/pkg/llm"
	"github.com/codeready-toolchain/herald/pkg/market"
	"github.com/codeready-toolchain/herald/pkg/scrape"
	"github.com/codeready-toolchain/herald/pkg/search"
)

// Tool names offered to the model.
const (
	ToolWebSearch          = "web_search"
	ToolScrapeURL          = "scrape_url"
	ToolSearchRepositories = "search_repositories"
	ToolMarketQuotes       = "market_quotes"
)

// ErrToolUnavailable is returned when a tool has no backend configured.
var ErrToolUnavailable = errors.New("tool backend not configured")

const (
	defaultSearchResults = 5
	maxSearchResults     = 10
)

func decodeArgs(args string, v any) error {
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func encodeResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}

// SearchTool exposes a web searcher.
type SearchTool struct {
	searcher search.Searcher
}

var _ Tool = (*SearchTool)(nil)

// NewSearchTool wraps s.
func NewSearchTool(s search.Searcher) *SearchTool {
	return &SearchTool{searcher: s}
}

func (t *SearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        ToolWebSearch,
		Description: "Search the web for recent news articles. Returns a JSON array of {title, url, snippet, source}.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":       map[string]any{"type": "string", "description": "Search query"},
				"max_results": map[string]any{"type": "integer", "minimum": 1, "maximum": maxSearchResults},
			},
			"required": []string{"query"},
		},
	}
}

func (t *SearchTool) Call(ctx context.Context, args string) (string, error) {
	var in struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Query) == "" {
		return "", errors.New("query is required")
	}
	limit := in.MaxResults
	if limit <= 0 {
		limit = defaultSearchResults
	}
	if limit > maxSearchResults {
		limit = maxSearchResults
	}

	if t.searcher == nil {
		return "", ErrToolUnavailable
	}
	results, err := t.searcher.Search(ctx, in.Query, limit)
	if err != nil {
		return "", err
	}
	if results == nil {
		results = []search.Result{}
	}
	return encodeResult(results)
}

// ScrapeTool exposes a page scraper.
type ScrapeTool struct {
	scraper  scrape.Scraper
	maxChars int
}

var _ Tool = (*ScrapeTool)(nil)

// NewScrapeTool wraps s. Content longer than maxChars is truncated; a
// non-positive maxChars uses scrape.DefaultMaxChars.
func NewScrapeTool(s scrape.Scraper, maxChars int) *ScrapeTool {
	if maxChars <= 0 {
		maxChars = scrape.DefaultMaxChars
	}
	return &ScrapeTool{scraper: s, maxChars: maxChars}
}

func (t *ScrapeTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        ToolScrapeURL,
		Description: "Fetch a web page and return its main article text as JSON {url, title, content, author, source, scraped_successfully}.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{"type": "string", "description": "Absolute http(s) URL"},
			},
			"required": []string{"url"},
		},
	}
}

func (t *ScrapeTool) Call(ctx context.Context, args string) (string, error) {
	var in struct {
		URL string `json:"url"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.URL) == "" {
		return "", errors.New("url is required")
	}

	if t.scraper == nil {
		return "", ErrToolUnavailable
	}
	page, err := t.scraper.Scrape(ctx, in.URL)
	if err != nil {
		return "", err
	}
	if runes := []rune(page.Content); len(runes) > t.maxChars {
		page.Content = string(runes[:t.maxChars])
	}
	return encodeResult(page)
}

// RepoSearchTool exposes GitHub repository search.
type RepoSearchTool struct {
	searcher github.Searcher
	maxRepos int
}

var _ Tool = (*RepoSearchTool)(nil)

// NewRepoSearchTool wraps s; per_page is capped at maxRepos when positive.
func NewRepoSearchTool(s github.Searcher, maxRepos int) *RepoSearchTool {
	return &RepoSearchTool{searcher: s, maxRepos: maxRepos}
}

func (t *RepoSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        ToolSearchRepositories,
		Description: "Search GitHub repositories using GitHub search syntax (for example \"stars:>1000 language:go\"). Returns a JSON array of repositories.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":    map[string]any{"type": "string"},
				"sort":     map[string]any{"type": "string", "enum": []string{"stars", "forks", "updated"}},
				"order":    map[string]any{"type": "string", "enum": []string{"desc", "asc"}},
				"per_page": map[string]any{"type": "integer", "minimum": 1, "maximum": github.MaxPerPage},
			},
			"required": []string{"query"},
		},
	}
}

func (t *RepoSearchTool) Call(ctx context.Context, args string) (string, error) {
	var in struct {
		Query   string `json:"query"`
		Sort    string `json:"sort"`
		Order   string `json:"order"`
		PerPage int    `json:"per_page"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	perPage := in.PerPage
	if t.maxRepos > 0 && (perPage <= 0 || perPage > t.maxRepos) {
		perPage = t.maxRepos
	}

	if t.searcher == nil {
		return "", ErrToolUnavailable
	}
	repos, err := t.searcher.SearchRepositories(ctx, github.SearchOptions{
		Query:   in.Query,
		Sort:    in.Sort,
		Order:   in.Order,
		PerPage: perPage,
	})
	if err != nil {
		return "", err
	}
	return encodeResult(repos)
}

// MarketTool exposes the digest price snapshot.
type MarketTool struct {
	provider market.Provider
}

var _ Tool = (*MarketTool)(nil)

// NewMarketTool wraps p.
func NewMarketTool(p market.Provider) *MarketTool {
	return &MarketTool{provider: p}
}

func (t *MarketTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: ToolMarketQuotes,
		Description: "Get current prices for Bitcoin (BTC-USD), gold (GC=F) and the EUR/CHF rate, already formatted. " +
			"Unavailable prices are \"N/A\".",
		Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
	}
}

func (t *MarketTool) Call(ctx context.Context, _ string) (string, error) {
	return encodeResult(market.FetchSnapshot(ctx, t.provider))
}
