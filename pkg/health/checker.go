// Package health computes service health and readiness, and serves the
// standard gRPC health protocol.
package health

import (
	"time"

	"github.com/codeready-toolchain/herald/pkg/config"
	"github.com/codeready-toolchain/herald/pkg/orchestrator"
	"github.com/codeready-toolchain/herald/pkg/queue"
	"github.com/codeready-toolchain/herald/pkg/version"
)

// Overall statuses.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// Check names.
const (
	CheckAPI             = "api"
	CheckConfiguration   = "configuration"
	CheckOpenAIKey       = "openai_api_key"
	CheckTelegram        = "telegram_configured"
	CheckFirecrawl       = "firecrawl_configured"
	CheckGitHubToken     = "github_token"
	CheckWorkerPool      = "worker_pool"
	CheckScheduler       = "scheduler"
	CheckAgentsAvailable = "agents_available"
)

// A degraded service still answers; these checks decide healthy vs degraded.
var criticalChecks = []string{CheckAPI, CheckConfiguration, CheckOpenAIKey, CheckWorkerPool}

// AgentLister lists agents with their availability.
type AgentLister interface {
	ListAgents(availableOnly bool) []orchestrator.AgentInfo
}

// PoolReporter reports worker pool health.
type PoolReporter interface {
	Health() *queue.PoolHealth
}

// JobCounter reports the number of scheduled jobs.
type JobCounter interface {
	Len() int
}

// Report is the body of GET /health and GET /health/readiness.
type Report struct {
	Status          string          `json:"status"`
	Timestamp       time.Time       `json:"timestamp"`
	Version         string          `json:"version"`
	Commit          string          `json:"commit"`
	UptimeSeconds   float64         `json:"uptime_seconds"`
	Checks          map[string]bool `json:"checks"`
	AgentsAvailable *int            `json:"agents_available,omitempty"`
}

// Liveness is the body of GET /health/liveness.
type Liveness struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// Checker evaluates health from live components. Pool and scheduler may be
// nil; a nil scheduler is healthy only when scheduling is disabled.
type Checker struct {
	cfg       *config.Config
	agents    AgentLister
	pool      PoolReporter
	scheduler JobCounter

	started time.Time
	clock   func() time.Time
}

// NewChecker creates a Checker. Uptime counts from now.
func NewChecker(cfg *config.Config, agents AgentLister, pool PoolReporter, scheduler JobCounter) *Checker {
	return &Checker{
		cfg:       cfg,
		agents:    agents,
		pool:      pool,
		scheduler: scheduler,
		started:   time.Now(),
		clock:     time.Now,
	}
}

func (c *Checker) uptime(now time.Time) float64 {
	return now.Sub(c.started).Seconds()
}

// Health runs every check. Status is degraded when any critical check fails.
func (c *Checker) Health() *Report {
	now := c.clock()
	creds := c.cfg.Credentials
	checks := map[string]bool{
		CheckAPI:           true,
		CheckConfiguration: c.cfg.AgentRegistry != nil && c.cfg.AgentRegistry.Len() > 0,
		CheckOpenAIKey:     creds.OpenAIAPIKey != "",
		CheckTelegram:      creds.TelegramConfigured(),
		CheckFirecrawl:     creds.FirecrawlAPIKey != "",
		CheckGitHubToken:   creds.GitHubToken != "",
		CheckWorkerPool:    c.poolHealthy(),
		CheckScheduler:     c.schedulerHealthy(),
	}

	status := StatusHealthy
	for _, name := range criticalChecks {
		if !checks[name] {
			status = StatusDegraded
			break
		}
	}
	return &Report{
		Status:        status,
		Timestamp:     now.UTC(),
		Version:       version.Version,
		Commit:        version.GitCommit,
		UptimeSeconds: c.uptime(now),
		Checks:        checks,
	}
}

// Readiness reports whether runs can be accepted: an OpenAI key, a healthy
// pool and at least one available agent.
func (c *Checker) Readiness() (*Report, bool) {
	now := c.clock()
	available := c.AvailableAgents()
	checks := map[string]bool{
		CheckAPI:             true,
		CheckConfiguration:   c.cfg.AgentRegistry != nil && c.cfg.AgentRegistry.Len() > 0,
		CheckOpenAIKey:       c.cfg.Credentials.OpenAIAPIKey != "",
		CheckWorkerPool:      c.poolHealthy(),
		CheckAgentsAvailable: available > 0,
	}
	ready := true
	for _, ok := range checks {
		ready = ready && ok
	}
	status := StatusReady
	if !ready {
		status = StatusNotReady
	}
	return &Report{
		Status:          status,
		Timestamp:       now.UTC(),
		Version:         version.Version,
		Commit:          version.GitCommit,
		UptimeSeconds:   c.uptime(now),
		Checks:          checks,
		AgentsAvailable: &available,
	}, ready
}

// Liveness always reports alive.
func (c *Checker) Liveness() *Liveness {
	now := c.clock()
	return &Liveness{Status: StatusAlive, Timestamp: now.UTC(), UptimeSeconds: c.uptime(now)}
}

// AvailableAgents counts enabled agents whose requirements are met.
func (c *Checker) AvailableAgents() int {
	if c.agents == nil {
		return 0
	}
	return len(c.agents.ListAgents(true))
}

// AgentStatus maps each agent ID to its availability.
func (c *Checker) AgentStatus() map[string]bool {
	out := make(map[string]bool)
	if c.agents == nil {
		return out
	}
	for _, a := range c.agents.ListAgents(false) {
		out[a.ID] = a.Available
	}
	return out
}

// UptimeSeconds returns seconds since the checker was created.
func (c *Checker) UptimeSeconds() float64 {
	return c.uptime(c.clock())
}

func (c *Checker) poolHealthy() bool {
	if c.pool == nil {
		return false
	}
	h := c.pool.Health()
	return h != nil && h.IsHealthy
}

func (c *Checker) schedulerHealthy() bool {
	if c.cfg.Scheduler == nil || !c.cfg.Scheduler.Enabled {
		return true
	}
	return c.scheduler != nil
}
