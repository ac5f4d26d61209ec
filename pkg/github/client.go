// Package github searches repositories through the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeready-toolchain/herald/pkg/version"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com"

	// MaxPerPage is the GitHub search page ceiling.
	MaxPerPage = 100

	maxDescriptionLength = 100
	noDescription        = "No description available"
	unknownLanguage      = "Unknown"
)

// Repository is the normalized search result shape handed to the model.
type Repository struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Stars       int    `json:"stars"`
	URL         string `json:"url"`
	Language    string `json:"language"`
	Owner       string `json:"owner"`
	CreatedAt   string `json:"created_at"`
}

// SearchOptions narrows a repository search.
type SearchOptions struct {
	Query   string
	Sort    string // stars, forks, updated; default stars
	Order   string // desc or asc; default desc
	PerPage int
}

// Searcher finds repositories.
type Searcher interface {
	SearchRepositories(ctx context.Context, opts SearchOptions) ([]Repository, error)
}

// Client talks to the GitHub REST API. The token is optional; without it
// GitHub applies the anonymous rate limit.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Searcher = (*Client)(nil)

// NewClient creates a client. An empty baseURL uses DefaultAPIURL.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default().With("component", "github-client"),
	}
}

// HasToken reports whether requests are authenticated.
func (c *Client) HasToken() bool {
	return c.token != ""
}

type searchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		Name        string  `json:"name"`
		FullName    string  `json:"full_name"`
		Description *string `json:"description"`
		Stars       int     `json:"stargazers_count"`
		HTMLURL     string  `json:"html_url"`
		Language    *string `json:"language"`
		CreatedAt   string  `json:"created_at"`
		Owner       struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"items"`
}

type apiError struct {
	Message string `json:"message"`
}

// SearchRepositories runs GET /search/repositories.
func (c *Client) SearchRepositories(ctx context.Context, opts SearchOptions) ([]Repository, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return nil, fmt.Errorf("empty repository query")
	}
	sort := opts.Sort
	if sort == "" {
		sort = "stars"
	}
	order := opts.Order
	if order == "" {
		order = "desc"
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", sort)
	params.Set("order", order)
	params.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/repositories?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search repositories: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		if apiErr.Message != "" {
			return nil, fmt.Errorf("GitHub returned HTTP %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("GitHub returned HTTP %d", resp.StatusCode)
	}

	var raw searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	repos := make([]Repository, 0, len(raw.Items))
	for _, item := range raw.Items {
		description := noDescription
		if item.Description != nil && strings.TrimSpace(*item.Description) != "" {
			description = truncate(strings.TrimSpace(*item.Description), maxDescriptionLength)
		}
		language := unknownLanguage
		if item.Language != nil && *item.Language != "" {
			language = *item.Language
		}
		repos = append(repos, Repository{
			Name:        item.Name,
			FullName:    item.FullName,
			Description: description,
			Stars:       item.Stars,
			URL:         item.HTMLURL,
			Language:    language,
			Owner:       item.Owner.Login,
			CreatedAt:   item.CreatedAt,
		})
	}

	c.logger.Debug("Repository search finished",
		"query", query, "total_count", raw.TotalCount, "returned", len(repos))
	return repos, nil
}

// CreatedSince appends a created:>YYYY-MM-DD qualifier to query unless it
// already has a created qualifier.
func CreatedSince(query string, since time.Time) string {
	query = strings.TrimSpace(query)
	if strings.Contains(query, "created:") {
		return query
	}
	qualifier := "created:>" + since.Format("2006-01-02")
	if query == "" {
		return qualifier
	}
	return query + " " + qualifier
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
