package testforge

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Run holds the per-request state of one pipeline execution: current
// stage, accumulated warnings, and provider usage. A run is created and
// destroyed within a single Generate call and never shared across runs.
//
// Runs are safe for concurrent use by multiple goroutines.
type Run struct {
	id        string
	startedAt time.Time

	mu       sync.RWMutex
	stage    Stage
	warnings []DroppedCase
	repaired bool
	usage    *TokenUsage
}

// NewRun creates run state with a unique ID, starting at the
// normalizing stage.
func NewRun() *Run {
	return &Run{
		id:        uuid.New().String(),
		startedAt: time.Now(),
		stage:     StageNormalizing,
	}
}

// ID returns the unique identifier for this run.
func (r *Run) ID() string {
	return r.id
}

// StartedAt returns when the run was created.
func (r *Run) StartedAt() time.Time {
	return r.startedAt
}

// Stage returns the stage the run is currently in.
func (r *Run) Stage() Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stage
}

// setStage advances the run. Stages only move forward; the pipeline
// never re-enters an earlier stage.
func (r *Run) setStage(stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stage = stage
}

// AddWarnings appends dropped-case warnings to the run.
func (r *Run) AddWarnings(warnings ...DroppedCase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, warnings...)
}

// Warnings returns a copy of the accumulated warnings, safe to modify.
func (r *Run) Warnings() []DroppedCase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	warnings := make([]DroppedCase, len(r.warnings))
	copy(warnings, r.warnings)
	return warnings
}

// MarkRepaired flags that the response repair pass was applied.
func (r *Run) MarkRepaired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repaired = true
}

// Repaired reports whether the repair pass was applied during this run.
func (r *Run) Repaired() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.repaired
}

// SetUsage records the token usage from the provider call.
func (r *Run) SetUsage(usage *TokenUsage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if usage != nil {
		u := *usage
		r.usage = &u
	}
}

// Usage returns a copy of the recorded token usage, or nil before the
// provider call completed.
func (r *Run) Usage() *TokenUsage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.usage == nil {
		return nil
	}
	u := *r.usage
	return &u
}
