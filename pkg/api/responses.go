package api

import (
	"time"

	"github.com/codeready-toolchain/herald/pkg/execution"
	"github.com/codeready-toolchain/herald/pkg/orchestrator"
	"github.com/codeready-toolchain/herald/pkg/scheduler"
)

// AgentListResponse is returned by GET /agents.
type AgentListResponse struct {
	Agents         []orchestrator.AgentInfo `json:"agents"`
	TotalCount     int                      `json:"total_count"`
	AvailableCount int                      `json:"available_count"`
}

// ExecutionListResponse is returned by GET /agents/executions.
type ExecutionListResponse struct {
	Executions []*execution.Record `json:"executions"`
	Count      int                 `json:"count"`
}

// MetricsResponse is returned by GET /agents/metrics.
type MetricsResponse struct {
	execution.Metrics
	UptimeSeconds float64   `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}

// ScheduleResponse is returned by GET /agents/schedule.
type ScheduleResponse struct {
	SchedulerRunning bool            `json:"scheduler_running"`
	TotalJobs        int             `json:"total_jobs"`
	Jobs             []scheduler.Job `json:"jobs"`
	Timezone         string          `json:"timezone"`
}
