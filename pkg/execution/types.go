// Package execution tracks the lifecycle of pipeline runs in memory.
package execution

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Source records who submitted a run.
type Source string

const (
	SourceAPI      Source = "api"
	SourceSchedule Source = "schedule"
	SourceCLI      Source = "cli"
)

var (
	// ErrNotFound is returned for unknown or swept execution IDs.
	ErrNotFound = errors.New("execution not found")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the record's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotCancellable is returned when cancelling a terminal record.
	ErrNotCancellable = errors.New("execution is not cancellable")
)

// Record is the tracked state of one run.
type Record struct {
	ID          string         `json:"execution_id"`
	AgentID     string         `json:"agent_id"`
	Parameters  map[string]any `json:"parameters"`
	Status      Status         `json:"status"`
	Source      Source         `json:"source"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Result      string         `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	// DurationSeconds is CompletedAt minus CreatedAt, set on terminal
	// transitions.
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

func (r *Record) clone() *Record {
	c := *r
	if r.Parameters != nil {
		c.Parameters = make(map[string]any, len(r.Parameters))
		for k, v := range r.Parameters {
			c.Parameters[k] = v
		}
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.DurationSeconds != nil {
		d := *r.DurationSeconds
		c.DurationSeconds = &d
	}
	return &c
}

// AgentCounts are per-agent totals.
type AgentCounts struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Metrics is an aggregate view of the live record set.
type Metrics struct {
	TotalExecutions        int                    `json:"total_executions"`
	Successful             int                    `json:"successful_executions"`
	Failed                 int                    `json:"failed_executions"`
	Cancelled              int                    `json:"cancelled_executions"`
	Running                int                    `json:"running_executions"`
	Pending                int                    `json:"pending_executions"`
	SuccessRate            float64                `json:"success_rate"`
	AverageDurationSeconds float64                `json:"average_duration_seconds"`
	PerAgent               map[string]AgentCounts `json:"per_agent"`
	Recent                 []*Record              `json:"recent_executions"`
}
