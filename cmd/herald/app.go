package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeready-toolchain/herald/pkg/config"
	"github.com/codeready-toolchain/herald/pkg/execution"
	"github.com/codeready-toolchain/herald/pkg/github"
	"github.com/codeready-toolchain/herald/pkg/llm"
	"github.com/codeready-toolchain/herald/pkg/market"
	"github.com/codeready-toolchain/herald/pkg/mcp"
	"github.com/codeready-toolchain/herald/pkg/metrics"
	"github.com/codeready-toolchain/herald/pkg/orchestrator"
	"github.com/codeready-toolchain/herald/pkg/pipeline"
	"github.com/codeready-toolchain/herald/pkg/queue"
	"github.com/codeready-toolchain/herald/pkg/scrape"
	"github.com/codeready-toolchain/herald/pkg/search"
	"github.com/codeready-toolchain/herald/pkg/slack"
	"github.com/codeready-toolchain/herald/pkg/telegram"
)

const (
	outboundTimeout = 30 * time.Second
	llmMaxRetries   = 2
)

// app holds the components shared by every command.
type app struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	tracker *execution.Tracker
	service *orchestrator.Service
	pool    *queue.WorkerPool

	closers []func() error
}

// newApp loads configuration and wires the orchestrator with its worker pool.
// The pool is not started.
func newApp(ctx context.Context, configDir string) (*app, error) {
	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	a := &app{cfg: cfg, metrics: metrics.New()}
	httpClient := &http.Client{Timeout: outboundTimeout}

	// 2. Capabilities
	deps := pipeline.Deps{
		StageModels:    cfg.LLM.StageModels,
		Searcher:       newSearcher(cfg, httpClient),
		ScrapeMaxChars: cfg.Scrape.MaxChars,
		GitHub:         github.NewClient(cfg.GitHub.APIURL, cfg.Credentials.GitHubToken),
		Market:         market.NewYahoo(cfg.Market.APIURL, httpClient),
		Sender: telegram.NewClient(cfg.Credentials.TelegramBotToken, cfg.Credentials.TelegramChatID,
			telegram.WithAPIURL(cfg.Telegram.APIURL)),
		Delivery: a.metrics,
	}

	llmClient, err := llm.NewOpenAIClient(llm.Config{
		APIKey:      cfg.Credentials.OpenAIAPIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxRetries:  llmMaxRetries,
		Observer:    a.metrics,
	})
	if err != nil {
		// Agents report the missing key as an unmet requirement.
		slog.Warn("LLM client not configured, agents are unavailable", "error", err)
	} else {
		deps.LLM = llmClient
		slog.Info("LLM client initialized", "model", cfg.LLM.Model)
	}

	scraper, closeScraper := newScraper(cfg, httpClient)
	deps.Scraper = scraper
	if closeScraper != nil {
		a.closers = append(a.closers, closeScraper)
	}

	// 3. Orchestrator
	a.tracker = execution.NewTracker()
	opts := []orchestrator.Option{orchestrator.WithMetrics(a.metrics)}
	if cfg.Slack.Enabled {
		if notifier := slack.NewService(slack.ServiceConfig{
			Token:        cfg.Credentials.SlackBotToken,
			Channel:      cfg.Slack.Channel,
			DashboardURL: cfg.DashboardURL,
		}); notifier != nil {
			opts = append(opts, orchestrator.WithNotifier(notifier))
			slog.Info("Slack notifications enabled", "channel", cfg.Slack.Channel)
		}
	}
	a.service = orchestrator.NewService(cfg, pipeline.NewDefaultRegistry(deps), a.tracker, opts...)

	// 4. Worker pool
	a.pool = queue.NewWorkerPool(cfg.Queue.MaxConcurrentRuns, a.service)
	a.service.AttachPool(a.pool)
	a.metrics.RegisterQueueDepth(a.pool.QueueDepth)

	return a, nil
}

func newSearcher(cfg *config.Config, client *http.Client) search.Searcher {
	if cfg.Search.Provider == config.SearchProviderBrave {
		return search.NewBrave(cfg.Credentials.BraveAPIKey, cfg.Search.URL, client)
	}
	return search.NewDuckDuckGo(cfg.Search.URL, client)
}

// newScraper returns the configured scraper and, for firecrawl, a func that
// closes the MCP session.
func newScraper(cfg *config.Config, client *http.Client) (scrape.Scraper, func() error) {
	if cfg.Scrape.Provider != config.ScrapeProviderFirecrawl {
		return scrape.NewReadability(client, cfg.Scrape.MaxChars), nil
	}

	fc := cfg.Scrape.Firecrawl
	transport := mcp.TransportConfig{
		Type:    mcp.TransportStdio,
		Command: fc.Command,
		Args:    fc.Args,
		Env:     map[string]string{"FIRECRAWL_API_KEY": cfg.Credentials.FirecrawlAPIKey},
	}
	if fc.URL != "" {
		transport = mcp.TransportConfig{
			Type:        mcp.TransportHTTP,
			URL:         fc.URL,
			BearerToken: cfg.Credentials.FirecrawlAPIKey,
			Timeout:     outboundTimeout,
		}
	}
	mcpClient := mcp.NewClient("firecrawl", transport)
	slog.Info("Firecrawl scraper configured", "transport", transport.Type, "tool", fc.Tool)
	return scrape.NewFirecrawl(mcpClient, fc.Tool, cfg.Scrape.MaxChars), mcpClient.Close
}

// close releases external sessions in reverse order of creation.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("Error closing component", "error", err)
		}
	}
}
