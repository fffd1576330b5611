package dispatch

import "time"

// DefaultFreeWait is the free waiting budget once the driver has arrived.
const DefaultFreeWait = 300 * time.Second

// WaitTimer is the ARRIVED waiting countdown. It is a value anchored to the
// instant the state was entered; it never ticks by itself.
type WaitTimer struct {
	StartedAt time.Time
	Budget    time.Duration
}

// NewWaitTimer starts a countdown of budget at start.
func NewWaitTimer(start time.Time, budget time.Duration) WaitTimer {
	if budget <= 0 {
		budget = DefaultFreeWait
	}
	return WaitTimer{StartedAt: start, Budget: budget}
}

// Elapsed is the whole seconds waited so far.
func (w WaitTimer) Elapsed(now time.Time) time.Duration {
	d := now.Sub(w.StartedAt)
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}

// Remaining is the free time left at now, in whole seconds, never negative.
func (w WaitTimer) Remaining(now time.Time) time.Duration {
	left := w.Budget - w.Elapsed(now)
	if left < 0 {
		return 0
	}
	return left
}

// Overtime reports whether the free budget is used up.
func (w WaitTimer) Overtime(now time.Time) bool {
	return w.Elapsed(now) >= w.Budget
}

// WaitState is a sample of the countdown for rendering.
type WaitState struct {
	StartedAt time.Time     `json:"started_at"`
	Remaining time.Duration `json:"remaining_ns"`
	Seconds   int           `json:"remaining_seconds"`
	Overtime  bool          `json:"overtime"`
	Over      time.Duration `json:"over_ns"`
}

// Sample renders the countdown at now.
func (w WaitTimer) Sample(now time.Time) WaitState {
	rem := w.Remaining(now)
	s := WaitState{
		StartedAt: w.StartedAt,
		Remaining: rem,
		Seconds:   int(rem / time.Second),
		Overtime:  w.Overtime(now),
	}
	if s.Overtime {
		s.Over = w.Elapsed(now) - w.Budget
	}
	return s
}
