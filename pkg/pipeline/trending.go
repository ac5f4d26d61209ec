package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/herald/pkg/agent"
	"github.com/codeready-toolchain/herald/pkg/extract"
	"github.com/codeready-toolchain/herald/pkg/github"
	"github.com/codeready-toolchain/herald/pkg/telegram"
)

// GitHub trending limits.
const (
	DefaultMaxRepos = 10
	MaxRepos        = 30
	DefaultDaysBack = 7
	MaxDaysBack     = 365

	DefaultRepoQuery = "stars:>1000"
)

// Trending run failures.
var (
	ErrSearchPlanning  = errors.New("could not plan GitHub search strategy")
	ErrNoRepositories  = errors.New("could not fetch GitHub repositories")
	ErrRepoAnalysis    = errors.New("could not analyze repository data")
	ErrEmptyFormatting = errors.New("formatter returned an empty message")
)

type trendingParams struct {
	MaxRepos     int
	DaysBack     int
	SendTelegram bool
}

func parseTrendingParams(params map[string]any) (trendingParams, error) {
	maxRepos, err := intParam(params, "max_repos", DefaultMaxRepos, 1, MaxRepos)
	if err != nil {
		return trendingParams{}, err
	}
	daysBack, err := intParam(params, "days_back", DefaultDaysBack, 0, MaxDaysBack)
	if err != nil {
		return trendingParams{}, err
	}
	send, err := boolParam(params, "send_telegram", true)
	if err != nil {
		return trendingParams{}, err
	}
	return trendingParams{MaxRepos: maxRepos, DaysBack: daysBack, SendTelegram: send}, nil
}

// Trending reports the most-starred GitHub repositories.
type Trending struct {
	coordinator agent.Stage
	fetcher     agent.Stage
	analyzer    agent.Stage
	formatter   agent.Stage
	assembler   agent.Stage

	github   github.Searcher
	sender   telegram.Sender
	delivery DeliveryObserver
	clock    agent.Clock
	logger   *slog.Logger
}

var _ Pipeline = (*Trending)(nil)

// NewTrending builds the trending stages from deps.
func NewTrending(deps Deps) *Trending {
	return &Trending{
		coordinator: deps.promptStage(agent.StageRepoSearchCoordinator),
		fetcher:     deps.toolStage(agent.StageRepoFetcher, agent.NewRepoSearchTool(deps.GitHub, MaxRepos)),
		analyzer:    deps.promptStage(agent.StageRepoAnalyzer),
		formatter:   deps.promptStage(agent.StageTelegramFormatter),
		assembler:   deps.promptStage(agent.StageTrendingAssembly),
		github:      deps.GitHub,
		sender:      deps.Sender,
		delivery:    deps.Delivery,
		clock:       deps.clock(),
		logger:      slog.Default().With("component", "pipeline", "agent_id", AgentGitHubTrending),
	}
}

// AgentID returns the agent type served by this pipeline.
func (p *Trending) AgentID() string { return AgentGitHubTrending }

// Validate checks max_repos, days_back and send_telegram.
func (p *Trending) Validate(params map[string]any) error {
	_, err := parseTrendingParams(params)
	return err
}

// Run plans a search, fetches repositories (falling back to the REST API),
// ranks them, formats the message and delivers it.
func (p *Trending) Run(ctx context.Context, in Input) (string, error) {
	params, err := parseTrendingParams(in.Parameters)
	if err != nil {
		return "", err
	}
	now := p.clock()
	logger := p.logger.With("execution_id", in.ExecutionID)
	logger.Info("Starting GitHub trending run", "max_repos", params.MaxRepos, "days_back", params.DaysBack)

	if err := in.checkpoint(ctx); err != nil {
		return "", err
	}
	query, err := p.planSearch(ctx, params.MaxRepos)
	if err != nil {
		return "", err
	}
	logger.Info("Search planned", "query", query)

	if err := in.checkpoint(ctx); err != nil {
		return "", err
	}
	repos, err := p.fetch(ctx, logger, query, params)
	if err != nil {
		return "", err
	}

	if err := in.checkpoint(ctx); err != nil {
		return "", err
	}
	analyzed, err := p.analyze(ctx, repos, params.MaxRepos)
	if err != nil {
		return "", err
	}

	if err := in.checkpoint(ctx); err != nil {
		return "", err
	}
	formatted, err := p.formatter.Invoke(ctx, fmt.Sprintf(
		"Format this GitHub repository data for Telegram:\n%s\n\nDate range: Trending Repositories\nCurrent timestamp: %s\n\nCreate an engaging Telegram message with the specified format.",
		indentJSON(analyzed), now.Format("January 02, 2006 at 15:04 MST")))
	if err != nil {
		return "", err
	}
	if formatted = strings.TrimSpace(formatted); formatted == "" {
		return "", ErrEmptyFormatting
	}

	if err := in.checkpoint(ctx); err != nil {
		return "", err
	}
	final, err := p.assembler.Invoke(ctx, fmt.Sprintf(
		"Finalize this Telegram message for GitHub trending repositories:\n\n%s\n\nEnsure it's properly formatted and ready to send.",
		formatted))
	if err != nil {
		return "", err
	}
	if final = strings.TrimSpace(final); final == "" {
		logger.Warn("Final assembly returned nothing, using formatter output")
		final = formatted
	}

	if params.SendTelegram {
		if err := in.checkpoint(ctx); err != nil {
			return "", err
		}
		if err := deliver(ctx, p.sender, p.delivery, logger, final); err != nil {
			return "", err
		}
	}
	return final, nil
}

func (p *Trending) planSearch(ctx context.Context, maxRepos int) (string, error) {
	out, err := p.coordinator.Invoke(ctx, fmt.Sprintf(
		"Plan a GitHub search to find the top %d trending repositories.\nFocus on the most popular and highly-starred repositories.",
		maxRepos))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSearchPlanning, err)
	}
	plan, ok := extract.Object(out)
	if !ok {
		return "", ErrSearchPlanning
	}
	if q, _ := plan["search_query"].(string); strings.TrimSpace(q) != "" {
		return strings.TrimSpace(q), nil
	}
	return DefaultRepoQuery, nil
}

// fetch returns repository records from the fetcher stage, or from the REST
// API when the stage yields nothing.
func (p *Trending) fetch(ctx context.Context, logger *slog.Logger, query string, params trendingParams) (any, error) {
	out, err := p.fetcher.Invoke(ctx, fmt.Sprintf(
		"Search for GitHub repositories using these parameters:\n- Query: %s\n- Sort by: stars (descending)\n- Maximum results: %d",
		query, params.MaxRepos))
	if err == nil {
		if repos, ok := extract.Array(out); ok && len(repos) > 0 {
			return repos, nil
		}
		logger.Warn("Fetcher returned no repositories, using GitHub API fallback")
	} else {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("Fetcher failed, using GitHub API fallback", "error", err)
	}

	if p.github == nil {
		return nil, ErrNoRepositories
	}
	fallbackQuery := query
	if params.DaysBack > 0 {
		fallbackQuery = github.CreatedSince(query, p.clock().AddDate(0, 0, -params.DaysBack))
	}
	repos, err := p.github.SearchRepositories(ctx, github.SearchOptions{
		Query:   fallbackQuery,
		Sort:    "stars",
		Order:   "desc",
		PerPage: params.MaxRepos,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoRepositories, err)
	}
	if len(repos) == 0 {
		return nil, ErrNoRepositories
	}
	logger.Info("Fetched repositories from GitHub API", "count", len(repos))
	return repos, nil
}

func (p *Trending) analyze(ctx context.Context, repos any, maxRepos int) ([]any, error) {
	out, err := p.analyzer.Invoke(ctx, fmt.Sprintf(
		"Analyze and clean this GitHub repository data:\n%s\n\nEnsure repositories are ranked by stars, clean up descriptions, and return the top %d.",
		indentJSON(repos), maxRepos))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepoAnalysis, err)
	}
	analyzed, ok := extract.Array(out)
	if !ok || len(analyzed) == 0 {
		return nil, ErrRepoAnalysis
	}
	return analyzed, nil
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
