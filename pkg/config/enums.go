package config

// SearchProvider selects the web search backend
type SearchProvider string

const (
	// SearchProviderDuckDuckGo scrapes the HTML endpoint and needs no key (default)
	SearchProviderDuckDuckGo SearchProvider = "duckduckgo"
	// SearchProviderBrave uses the Brave Search API and needs BRAVE_API_KEY
	SearchProviderBrave SearchProvider = "brave"
)

// IsValid checks if the search provider is valid
func (p SearchProvider) IsValid() bool {
	return p == SearchProviderDuckDuckGo || p == SearchProviderBrave
}

// ScrapeProvider selects the article fetcher
type ScrapeProvider string

const (
	// ScrapeProviderReadability fetches pages directly (default)
	ScrapeProviderReadability ScrapeProvider = "readability"
	// ScrapeProviderFirecrawl calls the firecrawl MCP server
	ScrapeProviderFirecrawl ScrapeProvider = "firecrawl"
)

// IsValid checks if the scrape provider is valid
func (p ScrapeProvider) IsValid() bool {
	return p == ScrapeProviderReadability || p == ScrapeProviderFirecrawl
}

// Requirement names a credential an agent needs before it can run.
// The OpenAI key is implied for every agent.
type Requirement string

const (
	RequirementTelegram  Requirement = "telegram"
	RequirementFirecrawl Requirement = "firecrawl"
	RequirementGitHub    Requirement = "github"
	RequirementBrave     Requirement = "brave"
)

// IsValid checks if the requirement name is known
func (r Requirement) IsValid() bool {
	switch r {
	case RequirementTelegram, RequirementFirecrawl, RequirementGitHub, RequirementBrave:
		return true
	default:
		return false
	}
}
