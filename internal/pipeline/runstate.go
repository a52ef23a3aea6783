package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/semaphore"
)

// State is the lifecycle of the most recent pipeline run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// ErrRunInProgress is returned when a run is requested while another run
// holds the slot.
var ErrRunInProgress = eris.New("pipeline: a run is already in progress")

// Status is a point-in-time snapshot of the tracker for the dashboard.
type Status struct {
	State        State      `json:"state"`
	RunID        string     `json:"run_id,omitempty"`
	CurrentNiche string     `json:"current_niche,omitempty"`
	LeadsFound   int        `json:"leads_found"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// Tracker serializes pipeline runs and records progress for status
// queries. At most one run holds the slot at a time; a second Begin
// fails fast instead of queueing.
type Tracker struct {
	slot *semaphore.Weighted

	mu     sync.Mutex
	status Status
}

func NewTracker() *Tracker {
	return &Tracker{
		slot:   semaphore.NewWeighted(1),
		status: Status{State: StateIdle},
	}
}

// Begin claims the run slot and returns the new run's ID. The caller must
// call End exactly once when the run finishes.
func (t *Tracker) Begin() (string, error) {
	if !t.slot.TryAcquire(1) {
		return "", ErrRunInProgress
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	t.mu.Lock()
	t.status = Status{
		State:     StateRunning,
		RunID:     id,
		StartedAt: &now,
	}
	t.mu.Unlock()
	return id, nil
}

// End releases the run slot and records the outcome.
func (t *Tracker) End(err error) {
	now := time.Now().UTC()

	t.mu.Lock()
	t.status.FinishedAt = &now
	t.status.CurrentNiche = ""
	if err != nil {
		t.status.State = StateFailed
		t.status.LastError = err.Error()
	} else {
		t.status.State = StateCompleted
	}
	t.mu.Unlock()

	t.slot.Release(1)
}

// SetNiche records the niche currently being processed.
func (t *Tracker) SetNiche(niche string) {
	t.mu.Lock()
	t.status.CurrentNiche = niche
	t.mu.Unlock()
}

// AddLeads bumps the running lead counter.
func (t *Tracker) AddLeads(n int) {
	t.mu.Lock()
	t.status.LeadsFound += n
	t.mu.Unlock()
}

// Status returns a snapshot of the current run state.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}
