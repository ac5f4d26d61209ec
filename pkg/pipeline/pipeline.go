// Package pipeline implements the fixed multi-stage runs behind each agent
// type. A pipeline chains agent stages, recovers per item where it can and
// delivers the final text.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/codeready-toolchain/herald/pkg/agent"
	"github.com/codeready-toolchain/herald/pkg/github"
	"github.com/codeready-toolchain/herald/pkg/llm"
	"github.com/codeready-toolchain/herald/pkg/market"
	"github.com/codeready-toolchain/herald/pkg/scrape"
	"github.com/codeready-toolchain/herald/pkg/search"
	"github.com/codeready-toolchain/herald/pkg/telegram"
)

// Agent type IDs.
const (
	AgentDailyNews      = "enhanced-daily-news"
	AgentGitHubTrending = "github-trending"
)

// Input is what a single run receives.
type Input struct {
	ExecutionID string
	Parameters  map[string]any
	// Checkpoint is called before every stage. A non-nil error aborts the run
	// and is returned unchanged.
	Checkpoint func(ctx context.Context) error
}

func (in Input) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if in.Checkpoint == nil {
		return nil
	}
	return in.Checkpoint(ctx)
}

// Pipeline is the fixed stage sequence of one agent type.
type Pipeline interface {
	AgentID() string
	// Validate checks run parameters before a run is accepted.
	Validate(params map[string]any) error
	// Run executes the pipeline and returns the final text.
	Run(ctx context.Context, in Input) (string, error)
}

// DeliveryObserver records delivery outcomes.
type DeliveryObserver interface {
	ObserveDelivery(channel string, err error)
}

// Deps are the capabilities pipelines are built from.
type Deps struct {
	LLM llm.Client
	// StageModels overrides the model per stage ID.
	StageModels map[string]string

	Searcher       search.Searcher
	Scraper        scrape.Scraper
	ScrapeMaxChars int
	GitHub         github.Searcher
	Market         market.Provider

	Sender   telegram.Sender
	Delivery DeliveryObserver
	Clock    agent.Clock
}

func (d Deps) clock() agent.Clock {
	if d.Clock == nil {
		return time.Now
	}
	return d.Clock
}

func (d Deps) descriptor(stageID string) agent.Descriptor {
	desc, ok := agent.Builtin()[stageID]
	if !ok {
		panic(fmt.Sprintf("pipeline: unknown stage %q", stageID))
	}
	if model := d.StageModels[stageID]; model != "" {
		desc = desc.WithModel(model)
	}
	return desc
}

func (d Deps) promptStage(stageID string) agent.Stage {
	return agent.NewPromptStage(d.descriptor(stageID), d.LLM, agent.WithClock(d.clock()))
}

func (d Deps) toolStage(stageID string, tool agent.Tool) agent.Stage {
	return agent.NewToolStage(d.descriptor(stageID), d.LLM, tool, agent.WithClock(d.clock()))
}

// Registry maps agent IDs to pipelines. It is built once at startup and
// read-only afterwards.
type Registry struct {
	pipelines map[string]Pipeline
}

// NewRegistry registers ps. A duplicate agent ID keeps the last pipeline.
func NewRegistry(ps ...Pipeline) *Registry {
	r := &Registry{pipelines: make(map[string]Pipeline, len(ps))}
	for _, p := range ps {
		r.pipelines[p.AgentID()] = p
	}
	return r
}

// NewDefaultRegistry builds both built-in pipelines from deps.
func NewDefaultRegistry(deps Deps) *Registry {
	return NewRegistry(NewNews(deps), NewTrending(deps))
}

// Get returns the pipeline for agentID.
func (r *Registry) Get(agentID string) (Pipeline, bool) {
	p, ok := r.pipelines[agentID]
	return p, ok
}

// Has reports whether agentID has a pipeline.
func (r *Registry) Has(agentID string) bool {
	_, ok := r.pipelines[agentID]
	return ok
}

// IDs returns the registered agent IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.pipelines))
	for id := range r.pipelines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
