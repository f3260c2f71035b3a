// Package tokens tracks context-window consumption across a run. The
// tracker is shared between the round loop and the interactive shell, so
// all state is mutex-guarded.
package tokens

import (
	"fmt"
	"sync"
)

// Status buckets the usage ratio against the configured thresholds.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Fallbacks when the caller passes zero values.
const (
	defaultContextWindow     = 128000
	defaultWarningThreshold  = 0.80
	defaultCriticalThreshold = 0.95
)

// Usage is a point-in-time snapshot, serialized into saved sessions.
type Usage struct {
	Consumed      int     `json:"consumed"`
	ContextWindow int     `json:"context_window"`
	EstimatedCost float64 `json:"estimated_cost"`
	ModelName     string  `json:"model_name"`
}

// Tracker accumulates consumed tokens and estimated cost against a
// model's context window.
type Tracker struct {
	mu                sync.RWMutex
	consumed          int
	estimatedCost     float64
	modelName         string
	contextWindow     int
	warningThreshold  float64
	criticalThreshold float64
}

// NewTracker builds a tracker for the given model. Zero contextWindow or
// thresholds fall back to defaults.
func NewTracker(modelName string, contextWindow int, warningAt, criticalAt float64) *Tracker {
	if contextWindow <= 0 {
		contextWindow = defaultContextWindow
	}
	if warningAt <= 0 {
		warningAt = defaultWarningThreshold
	}
	if criticalAt <= 0 {
		criticalAt = defaultCriticalThreshold
	}
	return &Tracker{
		modelName:         modelName,
		contextWindow:     contextWindow,
		warningThreshold:  warningAt,
		criticalThreshold: criticalAt,
	}
}

// Restore rebuilds a tracker from a persisted snapshot.
func Restore(u Usage, warningAt, criticalAt float64) *Tracker {
	t := NewTracker(u.ModelName, u.ContextWindow, warningAt, criticalAt)
	t.consumed = u.Consumed
	t.estimatedCost = u.EstimatedCost
	return t
}

// AddConsumed records tokens and cost from a completed model call.
func (t *Tracker) AddConsumed(count int, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consumed += count
	t.estimatedCost += cost
}

// SubtractConsumed removes tokens and cost, clamping at zero. Used when
// rewinding conversation state.
func (t *Tracker) SubtractConsumed(count int, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consumed -= count
	if t.consumed < 0 {
		t.consumed = 0
	}
	t.estimatedCost -= cost
	if t.estimatedCost < 0 {
		t.estimatedCost = 0
	}
}

// Reset zeroes consumption and cost, keeping the model binding.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consumed = 0
	t.estimatedCost = 0
}

// SetModel rebinds the tracker to a model and its context window without
// touching accumulated consumption.
func (t *Tracker) SetModel(name string, contextWindow int) {
	if contextWindow <= 0 {
		contextWindow = defaultContextWindow
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modelName = name
	t.contextWindow = contextWindow
}

// Consumed returns the total tokens recorded so far.
func (t *Tracker) Consumed() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.consumed
}

// ContextWindow returns the bound model's window size.
func (t *Tracker) ContextWindow() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.contextWindow
}

// EstimatedCost returns the accumulated cost estimate.
func (t *Tracker) EstimatedCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.estimatedCost
}

// Remaining returns the tokens left in the window, floored at zero.
func (t *Tracker) Remaining() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if rem := t.contextWindow - t.consumed; rem > 0 {
		return rem
	}
	return 0
}

// UsageRatio returns consumed/window, or 0 for an empty window.
func (t *Tracker) UsageRatio() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ratioLocked()
}

func (t *Tracker) ratioLocked() float64 {
	if t.contextWindow == 0 {
		return 0
	}
	return float64(t.consumed) / float64(t.contextWindow)
}

// Status classifies the current usage ratio.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ratio := t.ratioLocked()
	switch {
	case ratio >= t.criticalThreshold:
		return StatusCritical
	case ratio >= t.warningThreshold:
		return StatusWarning
	default:
		return StatusNormal
	}
}

// CheckThresholds returns a user-facing message when usage has crossed
// the warning or critical threshold, and false otherwise.
func (t *Tracker) CheckThresholds() (string, bool) {
	switch t.Status() {
	case StatusCritical:
		pct := t.UsageRatio() * 100
		return fmt.Sprintf("Context usage at %.0f%%. Consider /clear or /compact to free context.", pct), true
	case StatusWarning:
		pct := t.UsageRatio() * 100
		return fmt.Sprintf("Context usage at %.0f%%. Approaching limit.", pct), true
	default:
		return "", false
	}
}

// Snapshot captures the tracker state for display or persistence.
func (t *Tracker) Snapshot() Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Usage{
		Consumed:      t.consumed,
		ContextWindow: t.contextWindow,
		EstimatedCost: t.estimatedCost,
		ModelName:     t.modelName,
	}
}
