package scrape

import (
	"context"
	"fmt"
	"strings"
)

// DefaultFirecrawlTool is the scrape tool exposed by firecrawl-mcp.
const DefaultFirecrawlTool = "firecrawl_scrape"

// ToolCaller invokes a tool on an MCP server and returns its text output.
type ToolCaller interface {
	CallText(ctx context.Context, tool string, args map[string]any) (string, error)
}

// Firecrawl scrapes through a Firecrawl MCP server, which renders pages and
// returns their main content as markdown.
type Firecrawl struct {
	caller   ToolCaller
	tool     string
	maxChars int
}

var _ Scraper = (*Firecrawl)(nil)

// NewFirecrawl creates a scraper calling tool on caller.
func NewFirecrawl(caller ToolCaller, tool string, maxChars int) *Firecrawl {
	if tool == "" {
		tool = DefaultFirecrawlTool
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Firecrawl{caller: caller, tool: tool, maxChars: maxChars}
}

// Scrape asks the server for the markdown of rawURL.
func (f *Firecrawl) Scrape(ctx context.Context, rawURL string) (*Page, error) {
	target, ok := parseTarget(rawURL)
	if !ok {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	markdown, err := f.caller.CallText(ctx, f.tool, map[string]any{
		"url":             target.String(),
		"formats":         []string{"markdown"},
		"onlyMainContent": true,
	})
	if err != nil {
		return nil, fmt.Errorf("firecrawl scrape: %w", err)
	}

	markdown = strings.TrimSpace(markdown)
	return &Page{
		URL:                 rawURL,
		Title:               markdownTitle(markdown),
		Content:             truncateRunes(markdown, f.maxChars),
		Source:              hostOf(target),
		ScrapedSuccessfully: markdown != "",
	}, nil
}

// markdownTitle returns the first level-one heading.
func markdownTitle(md string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
