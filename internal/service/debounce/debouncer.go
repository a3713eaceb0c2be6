// Package debounce turns a noisy per-frame label stream into at most one
// confirmation per stable run.
package debounce

import (
	"time"

	"recicleai/internal/model"
)

// DefaultHoldDuration is the time a label must be held before it is confirmed.
const DefaultHoldDuration = 3 * time.Second

// State is a snapshot of the debouncer run.
type State struct {
	Current   model.Label
	RunStart  time.Time
	Confirmed bool
	started   bool
}

// Debouncer confirms a label once it has been observed continuously for the
// hold duration. It is not safe for concurrent use; the perception loop owns it.
type Debouncer struct {
	hold  time.Duration
	state State
}

// New creates a debouncer with no active run. A non-positive hold falls back
// to DefaultHoldDuration.
func New(hold time.Duration) *Debouncer {
	if hold <= 0 {
		hold = DefaultHoldDuration
	}
	return &Debouncer{hold: hold}
}

// Update feeds the label observed at now. It returns the label and true exactly
// once per run, on the first call where the run has lasted at least the hold
// duration. Any label change starts a new run.
func (d *Debouncer) Update(label model.Label, now time.Time) (model.Label, bool) {
	if !d.state.started || label != d.state.Current {
		d.state = State{
			Current:  label,
			RunStart: now,
			started:  true,
		}
		return "", false
	}

	if !d.state.Confirmed && now.Sub(d.state.RunStart) >= d.hold {
		d.state.Confirmed = true
		return label, true
	}

	return "", false
}

// State returns the current run.
func (d *Debouncer) State() State {
	return d.state
}

// Hold returns the configured hold duration.
func (d *Debouncer) Hold() time.Duration {
	return d.hold
}
