package debounce

import (
	"testing"
	"time"

	"recicleai/internal/model"
)

var t0 = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func at(d time.Duration) time.Time {
	return t0.Add(d)
}

type step struct {
	label model.Label
	at    time.Duration
	want  model.Label // empty means no confirmation
}

func runSteps(t *testing.T, d *Debouncer, steps []step) int {
	t.Helper()

	confirmations := 0
	for i, s := range steps {
		got, ok := d.Update(s.label, at(s.at))
		if ok {
			confirmations++
		}
		if s.want == "" && ok {
			t.Errorf("step %d (%s @%s): unexpected confirmation %q", i, s.label, s.at, got)
		}
		if s.want != "" && (!ok || got != s.want) {
			t.Errorf("step %d (%s @%s): expected confirmation %q, got %q (%v)", i, s.label, s.at, s.want, got, ok)
		}
	}
	return confirmations
}

func TestUpdate_ConfirmsOnceAfterHold(t *testing.T) {
	d := New(3 * time.Second)

	steps := []step{
		{"PLASTIC", 0, ""},
		{"PLASTIC", time.Second, ""},
		{"PLASTIC", 2999 * time.Millisecond, ""},
		{"PLASTIC", 3 * time.Second, "PLASTIC"},
		{"PLASTIC", 3100 * time.Millisecond, ""},
		{"PLASTIC", 4 * time.Second, ""},
	}

	if n := runSteps(t, d, steps); n != 1 {
		t.Errorf("Expected exactly 1 confirmation, got %d", n)
	}
}

func TestUpdate_FirstCallPastThreshold(t *testing.T) {
	d := New(3 * time.Second)

	// Sparse frames: the first call at or beyond the hold confirms.
	steps := []step{
		{"PAPER", 0, ""},
		{"PAPER", 2 * time.Second, ""},
		{"PAPER", 5 * time.Second, "PAPER"},
		{"PAPER", 9 * time.Second, ""},
	}

	runSteps(t, d, steps)
}

func TestUpdate_ChangeResetsRun(t *testing.T) {
	d := New(3 * time.Second)

	steps := []step{
		{"A", 0, ""},
		{"A", time.Second, ""},
		{"A", 2900 * time.Millisecond, ""},
		{"B", 3 * time.Second, ""},
		{"B", 5 * time.Second, ""},
		{"B", 5999 * time.Millisecond, ""},
		{"B", 6 * time.Second, "B"},
	}

	if n := runSteps(t, d, steps); n != 1 {
		t.Errorf("Expected exactly 1 confirmation, got %d", n)
	}

	state := d.State()
	if state.Current != "B" || !state.RunStart.Equal(at(3*time.Second)) || !state.Confirmed {
		t.Errorf("Unexpected state: %+v", state)
	}
}

func TestUpdate_NoDoubleConfirmationOverLongRun(t *testing.T) {
	d := New(3 * time.Second)

	confirmations := 0
	for ms := 0; ms <= 10000; ms += 33 {
		if _, ok := d.Update("METAL", at(time.Duration(ms)*time.Millisecond)); ok {
			confirmations++
		}
	}

	if confirmations != 1 {
		t.Errorf("Expected 1 confirmation across a 10s run, got %d", confirmations)
	}
}

func TestUpdate_ReturningLabelStartsNewRun(t *testing.T) {
	d := New(3 * time.Second)

	steps := []step{
		{"A", 0, ""},
		{"A", 3 * time.Second, "A"},
		{"B", 4 * time.Second, ""},
		{"A", 5 * time.Second, ""},
		{"A", 8 * time.Second, "A"},
	}

	if n := runSteps(t, d, steps); n != 2 {
		t.Errorf("Expected 2 confirmations for two runs, got %d", n)
	}
}

func TestUpdate_NoneIsAnOrdinaryLabel(t *testing.T) {
	d := New(3 * time.Second)

	steps := []step{
		{model.None, 0, ""},
		{model.None, 3 * time.Second, model.None},
		{model.None, 7 * time.Second, ""},
	}

	runSteps(t, d, steps)
}

func TestUpdate_ComparisonIsByValue(t *testing.T) {
	d := New(time.Second)

	// Normalization is the caller's job: "glass" and "GLASS" are different runs.
	steps := []step{
		{"glass", 0, ""},
		{"GLASS", 2 * time.Second, ""},
		{"GLASS", 3 * time.Second, "GLASS"},
	}

	runSteps(t, d, steps)
}

func TestNew_DefaultHold(t *testing.T) {
	if d := New(0); d.Hold() != DefaultHoldDuration {
		t.Errorf("Expected default hold %s, got %s", DefaultHoldDuration, d.Hold())
	}
}
