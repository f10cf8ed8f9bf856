package monitor

import (
	"sync"
	"time"
)

// Snapshot is the read model served by the status endpoint.
type Snapshot struct {
	RunID       string       `json:"run_id,omitempty"`
	State       string       `json:"state"`
	Checks      int          `json:"checks"`
	LastResult  *CheckResult `json:"last_result,omitempty"`
	LastCheckAt *time.Time   `json:"last_check_at,omitempty"`
	NextTrigger *time.Time   `json:"next_trigger,omitempty"`
}

// Tracker records the observable state of the current monitoring run. It is
// written by the single monitoring flow and read by the HTTP server, so all
// access is mutex-guarded.
type Tracker struct {
	mu          sync.RWMutex
	runID       string
	state       State
	checks      int
	lastResult  *CheckResult
	lastCheckAt time.Time
	nextTrigger time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{state: StateDone}
}

// BeginRun resets per-run counters for a new monitoring run.
func (t *Tracker) BeginRun(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runID = runID
	t.state = StateInitializing
	t.checks = 0
	t.lastResult = nil
	t.lastCheckAt = time.Time{}
}

// SetState records a state transition.
func (t *Tracker) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

// RecordResult stores the outcome of a check cycle.
func (t *Tracker) RecordResult(at time.Time, result CheckResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checks++
	r := result
	t.lastResult = &r
	t.lastCheckAt = at
}

// SetNextTrigger records the next scheduled monitoring start.
func (t *Tracker) SetNextTrigger(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextTrigger = at
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := Snapshot{
		RunID:  t.runID,
		State:  t.state.String(),
		Checks: t.checks,
	}
	if t.lastResult != nil {
		r := *t.lastResult
		snap.LastResult = &r
	}
	if !t.lastCheckAt.IsZero() {
		at := t.lastCheckAt
		snap.LastCheckAt = &at
	}
	if !t.nextTrigger.IsZero() {
		at := t.nextTrigger
		snap.NextTrigger = &at
	}
	return snap
}
