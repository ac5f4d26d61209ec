package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/codeready-toolchain/herald/pkg/agent"
	"github.com/codeready-toolchain/herald/pkg/extract"
	"github.com/codeready-toolchain/herald/pkg/market"
	"github.com/codeready-toolchain/herald/pkg/telegram"
)

// Daily news limits.
const (
	QueriesPerTopic      = 2
	ResultsPerQuery      = 2
	ScrapeLimit          = 3
	ContentSnippetLength = 500

	MaxTopics          = 10
	DefaultMaxArticles = 3
	MaxArticles        = 10
)

// DefaultTopics are researched when a run names none.
var DefaultTopics = []string{
	"Bitcoin cryptocurrency",
	"Artificial Intelligence AI",
	"Politics elections",
	"Finance markets",
}

const (
	tldrFallback = "Key developments across crypto, AI, politics, and finance markets today."
	tldrNoNews   = "No major news developments today."
	noSections   = "No news updates available today."
)

var assemblyPlaceholders = []string{"[btc_price]", "[gold_price]", "[eur_chf]", "[tldr_text]", "[topic_sections]"}

type newsParams struct {
	Topics       []string
	MaxArticles  int
	SendTelegram bool
}

func parseNewsParams(params map[string]any) (newsParams, error) {
	topics, err := stringListParam(params, "topics", DefaultTopics)
	if err != nil {
		return newsParams{}, err
	}
	if len(topics) > MaxTopics {
		return newsParams{}, &ParameterError{Param: "topics", Message: fmt.Sprintf("at most %d topics are allowed", MaxTopics)}
	}
	maxArticles, err := intParam(params, "max_articles_per_topic", DefaultMaxArticles, 1, MaxArticles)
	if err != nil {
		return newsParams{}, err
	}
	send, err := boolParam(params, "send_telegram", true)
	if err != nil {
		return newsParams{}, err
	}
	return newsParams{Topics: topics, MaxArticles: maxArticles, SendTelegram: send}, nil
}

// News is the enhanced daily news pipeline: per topic it plans queries,
// searches, scrapes and summarizes, then adds market data and a TLDR,
// assembles the digest and delivers it.
type News struct {
	planner    agent.Stage
	searcher   agent.Stage
	scraper    agent.Stage
	summarizer agent.Stage
	financial  agent.Stage
	tldr       agent.Stage
	assembler  agent.Stage

	sender   telegram.Sender
	delivery DeliveryObserver
	clock    agent.Clock
	logger   *slog.Logger
}

var _ Pipeline = (*News)(nil)

// NewNews builds the daily news stages from deps.
func NewNews(deps Deps) *News {
	maxChars := deps.ScrapeMaxChars
	if maxChars <= 0 {
		maxChars = 4000
	}
	return &News{
		planner:    deps.promptStage(agent.StageResearchCoordinator),
		searcher:   deps.toolStage(agent.StageWebResearcher, agent.NewSearchTool(deps.Searcher)),
		scraper:    deps.toolStage(agent.StageContentScraper, agent.NewScrapeTool(deps.Scraper, maxChars)),
		summarizer: deps.promptStage(agent.StageTopicSummaryWriter),
		financial:  deps.toolStage(agent.StageFinancialData, agent.NewMarketTool(deps.Market)),
		tldr:       deps.promptStage(agent.StageTLDRGenerator),
		assembler:  deps.promptStage(agent.StageFinalAssembly),
		sender:     deps.Sender,
		delivery:   deps.Delivery,
		clock:      deps.clock(),
		logger:     slog.Default().With("component", "pipeline", "agent_id", AgentDailyNews),
	}
}

// AgentID returns the agent type served by this pipeline.
func (p *News) AgentID() string { return AgentDailyNews }

// Validate checks topics, max_articles_per_topic and send_telegram.
func (p *News) Validate(params map[string]any) error {
	_, err := parseNewsParams(params)
	return err
}

// Run executes the digest. Topic failures degrade to placeholder sections;
// only checkpoint errors and delivery failures end the run with an error.
func (p *News) Run(ctx context.Context, in Input) (string, error) {
	params, err := parseNewsParams(in.Parameters)
	if err != nil {
		return "", err
	}
	now := p.clock()
	logger := p.logger.With("execution_id", in.ExecutionID)
	logger.Info("Starting daily news run",
		"topics", len(params.Topics), "max_articles_per_topic", params.MaxArticles)

	sections := make([]string, 0, len(params.Topics))
	for i, topic := range params.Topics {
		start := time.Now()
		section, err := p.processTopic(ctx, in, logger.With("topic", topic), topic, params.MaxArticles, now)
		if err != nil {
			return "", err
		}
		sections = append(sections, section)
		logger.Info("Topic processed",
			"topic", topic, "index", i+1, "duration_ms", time.Since(start).Milliseconds())
	}

	if err := in.checkpoint(ctx); err != nil {
		return "", err
	}
	snapshot := p.marketData(ctx, logger)

	if err := in.checkpoint(ctx); err != nil {
		return "", err
	}
	tldr := p.generateTLDR(ctx, logger, sections)

	if err := in.checkpoint(ctx); err != nil {
		return "", err
	}
	digest := p.assemble(ctx, logger, now, snapshot, tldr, sections)

	if params.SendTelegram {
		if err := in.checkpoint(ctx); err != nil {
			return "", err
		}
		if err := deliver(ctx, p.sender, p.delivery, logger, digest); err != nil {
			return "", err
		}
	}
	return digest, nil
}

// processTopic returns the topic's section. The returned error is non-nil only
// when the run must stop.
func (p *News) processTopic(ctx context.Context, in Input, logger *slog.Logger, topic string, maxArticles int, now time.Time) (string, error) {
	if err := in.checkpoint(ctx); err != nil {
		return "", err
	}
	queries := p.planQueries(ctx, logger, topic, now)

	articles, err := p.search(ctx, in, logger, topic, queries)
	if err != nil {
		return "", err
	}
	if len(articles) == 0 {
		logger.Warn("No articles found")
		return fmt.Sprintf("_%s: No recent news available._", topic), nil
	}

	if err := in.checkpoint(ctx); err != nil {
		return "", err
	}
	scraped := p.scrapeArticles(ctx, logger, articles, maxArticles)

	if err := in.checkpoint(ctx); err != nil {
		return "", err
	}
	summary, err := p.summarizer.Invoke(ctx, summaryPrompt(topic, scraped))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Error("Topic summary failed", "error", err)
		return fmt.Sprintf("_%s: Processing error occurred._", topic), nil
	}
	if summary = strings.TrimSpace(summary); summary == "" {
		return fmt.Sprintf("_%s: No detailed information available._", topic), nil
	}
	return summary, nil
}

func (p *News) planQueries(ctx context.Context, logger *slog.Logger, topic string, now time.Time) []string {
	today := now.Format("2006-01-02")
	fallback := []string{
		fmt.Sprintf("latest %s news today", topic),
		fmt.Sprintf("%s breaking news %s", topic, today),
	}

	out, err := p.planner.Invoke(ctx, fmt.Sprintf(
		"Plan research strategy for this single topic: %s. Generate 2-3 specific search queries focusing on today's date %s.",
		topic, today))
	if err != nil {
		logger.Warn("Research planning failed, using fallback queries", "error", err)
		return fallback
	}

	var plan struct {
		ResearchPlan map[string][]string `json:"research_plan"`
	}
	if !extract.Into(out, &plan) || len(plan.ResearchPlan) == 0 {
		logger.Warn("No research plan in planner output, using fallback queries")
		return fallback
	}
	// Key order is lost once decoded; sorted keys keep the choice stable.
	keys := make([]string, 0, len(plan.ResearchPlan))
	for k := range plan.ResearchPlan {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var valid []string
		for _, q := range plan.ResearchPlan[k] {
			if q = strings.TrimSpace(q); q != "" {
				valid = append(valid, q)
			}
		}
		if len(valid) > 0 {
			return valid
		}
	}
	return fallback
}

func (p *News) search(ctx context.Context, in Input, logger *slog.Logger, topic string, queries []string) ([]Record, error) {
	if len(queries) > QueriesPerTopic {
		queries = queries[:QueriesPerTopic]
	}

	var articles []Record
	for _, query := range queries {
		if err := in.checkpoint(ctx); err != nil {
			return nil, err
		}
		out, err := p.searcher.Invoke(ctx, "Search for recent news about: "+query)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("Search failed, skipping query", "query", query, "error", err)
			continue
		}
		results, ok := extractRecords(out)
		if !ok || len(results) == 0 {
			logger.Warn("No search results for query", "query", query)
			continue
		}
		if len(results) > ResultsPerQuery {
			results = results[:ResultsPerQuery]
		}
		for _, r := range results {
			r["topic"] = topic
			articles = append(articles, r)
		}
	}
	return articles, nil
}

func (p *News) scrapeArticles(ctx context.Context, logger *slog.Logger, articles []Record, maxArticles int) []Record {
	top := articles
	if len(top) > maxArticles {
		top = top[:maxArticles]
	}
	fallback := top
	if len(fallback) > ScrapeLimit {
		fallback = fallback[:ScrapeLimit]
	}

	urls := make([]string, 0, ScrapeLimit)
	for _, a := range top {
		if u := a.String("url"); u != "" && len(urls) < ScrapeLimit {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return fallback
	}

	encoded, _ := json.Marshal(urls)
	out, err := p.scraper.Invoke(ctx, "Scrape content from these URLs: "+string(encoded))
	if err != nil {
		logger.Warn("Scraping failed, using search results", "error", err)
		return fallback
	}
	scraped, _ := extractRecords(out)
	merged := MergeByURL(top, scraped)
	if len(merged) == 0 {
		logger.Warn("No scraped content merged, using search results")
		return fallback
	}
	return merged
}

func summaryPrompt(topic string, articles []Record) string {
	limited := make([]map[string]string, 0, len(articles))
	for _, a := range articles {
		content := a.String("content")
		if r := []rune(content); len(r) > ContentSnippetLength {
			content = string(r[:ContentSnippetLength])
		}
		limited = append(limited, map[string]string{
			"title":   a.String("title"),
			"url":     a.String("url"),
			"snippet": a.String("snippet"),
			"source":  a.String("source"),
			"content": content,
		})
	}
	encoded, _ := json.Marshal(limited)
	return fmt.Sprintf("Create a Telegram-formatted summary section for %s using these articles: %s", topic, encoded)
}

func (p *News) marketData(ctx context.Context, logger *slog.Logger) market.Snapshot {
	snapshot := market.EmptySnapshot()
	out, err := p.financial.Invoke(ctx, "Get current market prices for BTC, GOLD, and EUR/CHF")
	if err != nil {
		logger.Warn("Financial data unavailable", "error", err)
		return snapshot
	}

	got, ok := extract.Object(out)
	if !ok {
		logger.Warn("No financial data in stage output")
		return snapshot
	}
	for key, dst := range map[string]*string{
		"btc_price":  &snapshot.BTCPrice,
		"gold_price": &snapshot.GoldPrice,
		"eur_chf":    &snapshot.EURCHF,
	} {
		if v := strings.TrimSpace(fmt.Sprint(got[key])); got[key] != nil && v != "" {
			*dst = v
		}
	}
	return snapshot
}

func (p *News) generateTLDR(ctx context.Context, logger *slog.Logger, sections []string) string {
	if len(sections) == 0 {
		return tldrNoNews
	}
	out, err := p.tldr.Invoke(ctx, "Create a TLDR from these topic summaries: "+strings.Join(sections, "\n"))
	if err != nil {
		logger.Warn("TLDR generation failed, using fallback", "error", err)
		return tldrFallback
	}
	if out = strings.TrimSpace(out); out == "" {
		return tldrFallback
	}
	return out
}

func (p *News) assemble(ctx context.Context, logger *slog.Logger, now time.Time, snapshot market.Snapshot, tldr string, sections []string) string {
	if len(sections) == 0 {
		return renderDigest(now, snapshot, "No relevant news found for today's topics.", noSections)
	}
	body := strings.Join(sections, "\n\n")

	marketJSON, _ := json.Marshal(snapshot)
	out, err := p.assembler.Invoke(ctx, fmt.Sprintf(
		"Assemble the final news summary using this data:\nMarket Data: %s\nTLDR: %s\nTopic Sections:\n%s",
		marketJSON, tldr, body))
	if err != nil {
		logger.Warn("Final assembly failed, using template", "error", err)
		return renderDigest(now, snapshot, tldr, body)
	}
	if problem := checkAssembly(out, sections); problem != "" {
		logger.Warn("Final assembly rejected, using template", "reason", problem)
		return renderDigest(now, snapshot, tldr, body)
	}
	return strings.TrimSpace(out)
}

// checkAssembly returns why an assembled digest is unusable, or "".
func checkAssembly(out string, sections []string) string {
	if strings.TrimSpace(out) == "" {
		return "empty output"
	}
	for _, ph := range assemblyPlaceholders {
		if strings.Contains(out, ph) {
			return "unfilled placeholder " + ph
		}
	}
	for _, s := range sections {
		first := strings.TrimSpace(strings.SplitN(s, "\n", 2)[0])
		if first != "" && !strings.Contains(out, first) {
			return "missing section " + first
		}
	}
	return ""
}

func renderDigest(now time.Time, snapshot market.Snapshot, tldr, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*News Agent - %s*\n\n", now.Format("January 02, 2006"))
	fmt.Fprintf(&b, "*BTC price:* %s\n", snapshot.BTCPrice)
	fmt.Fprintf(&b, "*GOLD price:* %s\n", snapshot.GoldPrice)
	fmt.Fprintf(&b, "*EUR/CHF:* %s\n\n", snapshot.EURCHF)
	fmt.Fprintf(&b, "*TLDR:* %s\n\n", tldr)
	b.WriteString(body)
	return b.String()
}
