package execution

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecentLimit is the number of newest records included in Metrics.
const RecentLimit = 10

type entry struct {
	rec  *Record
	seq  uint64
	done chan struct{}
}

// Tracker is the in-memory execution record store. Every transition is
// atomic per record; reads return copies.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]*entry
	// issued holds every ID ever handed out, including swept ones.
	issued map[string]struct{}
	seq    uint64

	clock  func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock sets the tracker clock.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) {
		if gen != nil {
			t.newID = gen
		}
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		records: make(map[string]*entry),
		issued:  make(map[string]struct{}),
		clock:   time.Now,
		newID:   func() string { return uuid.New().String() },
		logger:  slog.Default().With("component", "execution-tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create stores a new PENDING record and returns a copy of it.
func (t *Tracker) Create(agentID string, params map[string]any, source Source) *Record {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.newID()
	for {
		if _, taken := t.issued[id]; !taken {
			break
		}
		id = t.newID()
	}
	t.issued[id] = struct{}{}
	t.seq++

	rec := &Record{
		ID:         id,
		AgentID:    agentID,
		Parameters: params,
		Status:     StatusPending,
		Source:     source,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	rec = rec.clone()
	t.records[id] = &entry{rec: rec, seq: t.seq, done: make(chan struct{})}
	return rec.clone()
}

// Start moves a PENDING record to RUNNING.
func (t *Tracker) Start(id string) error {
	_, err := t.transition(id, StatusRunning, func(r *Record, now time.Time) {
		r.StartedAt = &now
	}, StatusPending)
	return err
}

// Complete moves a RUNNING record to COMPLETED with result.
func (t *Tracker) Complete(id, result string) error {
	_, err := t.transition(id, StatusCompleted, func(r *Record, _ time.Time) {
		r.Result = result
	}, StatusRunning)
	return err
}

// Fail moves a RUNNING record to FAILED with message.
func (t *Tracker) Fail(id, message string) error {
	_, err := t.transition(id, StatusFailed, func(r *Record, _ time.Time) {
		r.Error = message
	}, StatusRunning)
	return err
}

// Cancel moves a PENDING or RUNNING record to CANCELLED and returns the
// status it had before.
func (t *Tracker) Cancel(id string) (Status, error) {
	prev, err := t.transition(id, StatusCancelled, nil, StatusPending, StatusRunning)
	if err != nil && prev.Terminal() {
		return prev, fmt.Errorf("%w: %s is %s", ErrNotCancellable, id, prev)
	}
	return prev, err
}

func (t *Tracker) transition(id string, to Status, mutate func(*Record, time.Time), from ...Status) (Status, error) {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.records[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := e.rec.Status
	allowed := false
	for _, s := range from {
		if prev == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return prev, fmt.Errorf("%w: %s is %s, cannot become %s", ErrInvalidTransition, id, prev, to)
	}

	e.rec.Status = to
	e.rec.UpdatedAt = now
	if mutate != nil {
		mutate(e.rec, now)
	}
	if to.Terminal() {
		completed := now
		e.rec.CompletedAt = &completed
		d := completed.Sub(e.rec.CreatedAt).Seconds()
		e.rec.DurationSeconds = &d
		close(e.done)
	}
	return prev, nil
}

// Get returns a copy of the record.
func (t *Tracker) Get(id string) (*Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.rec.clone(), nil
}

// Status returns the current status of id.
func (t *Tracker) Status(id string) (Status, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.records[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.rec.Status, nil
}

// Done returns a channel closed when id reaches a terminal status or is swept.
func (t *Tracker) Done(id string) (<-chan struct{}, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.done, nil
}

// List returns up to limit records, newest first. A non-positive limit
// returns all of them.
func (t *Tracker) List(limit int) []*Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.newestLocked(limit)
}

func (t *Tracker) newestLocked(limit int) []*Record {
	entries := make([]*entry, 0, len(t.records))
	for _, e := range t.records {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]*Record, len(entries))
	for i, e := range entries {
		out[i] = e.rec.clone()
	}
	return out
}

// Metrics aggregates the records currently held.
func (t *Tracker) Metrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m := Metrics{
		TotalExecutions: len(t.records),
		PerAgent:        make(map[string]AgentCounts),
	}
	var totalDuration float64
	var withDuration int
	for _, e := range t.records {
		r := e.rec
		counts := m.PerAgent[r.AgentID]
		counts.Total++

		switch r.Status {
		case StatusCompleted:
			m.Successful++
			counts.Successful++
		case StatusFailed:
			m.Failed++
			counts.Failed++
		case StatusCancelled:
			m.Cancelled++
		case StatusRunning:
			m.Running++
		case StatusPending:
			m.Pending++
		}
		m.PerAgent[r.AgentID] = counts

		if r.DurationSeconds != nil {
			totalDuration += *r.DurationSeconds
			withDuration++
		}
	}

	if withDuration > 0 {
		m.AverageDurationSeconds = totalDuration / float64(withDuration)
	}
	if m.TotalExecutions > 0 {
		m.SuccessRate = float64(m.Successful) / float64(m.TotalExecutions) * 100
	}
	m.Recent = t.newestLocked(RecentLimit)
	return m
}

// Sweep removes records created more than maxAge ago and returns how many
// were removed. Non-terminal records are kept unless includeActive is set.
// Waiters on a swept record's Done channel are released.
func (t *Tracker) Sweep(maxAge time.Duration, includeActive bool) int {
	cutoff := t.clock().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, e := range t.records {
		if !e.rec.CreatedAt.Before(cutoff) {
			continue
		}
		if !e.rec.Status.Terminal() {
			if !includeActive {
				continue
			}
			close(e.done)
			t.logger.Warn("Sweeping active execution", "execution_id", id, "status", e.rec.Status)
		}
		delete(t.records, id)
		removed++
	}
	return removed
}

// Len returns the number of records currently held.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
