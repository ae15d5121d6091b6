// Package repeat emulates client-side key auto-repeat for keys the
// input method consumes. A key grab delivers each physical press once,
// so holding a composition key would otherwise produce a single
// keystroke.
package repeat

import (
	"log/slog"
	"time"
)

// Scheduler arms a timer that first fires after delay and then once
// every period until disarmed. Arm replaces any earlier arming.
type Scheduler interface {
	Arm(delay, period time.Duration, fire func()) error
	Disarm() error
	Close() error
}

// State is the repeat bookkeeping for the key currently held, together
// with the repeat parameters announced by the compositor.
type State struct {
	Keysym uint32
	Code   uint32
	// Rate is in repeats per second. Zero disables repeat.
	Rate int32
	// Delay is the time before the first repeat, in milliseconds.
	Delay int32
}

// Period returns the interval between repeats, or zero when repeat is
// disabled.
func (s State) Period() time.Duration {
	if s.Rate <= 0 {
		return 0
	}
	return time.Second / time.Duration(s.Rate)
}

// Repeater tracks at most one repeating key and drives a Scheduler.
//
// Repeater is not safe for concurrent use; it is owned by the session
// loop. Timer expirations reach the loop through the fire callback,
// which receives the generation that was current when the timer was
// armed. Fires carrying an older generation are stale and must be
// dropped with Current.
type Repeater struct {
	sched  Scheduler
	fire   func(gen uint64)
	logger *slog.Logger

	state  State
	gen    uint64
	active bool
}

// New creates a Repeater. fire is invoked from the scheduler's
// goroutine and must only hand the generation over to the owning loop.
func New(sched Scheduler, fire func(gen uint64), logger *slog.Logger) *Repeater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repeater{
		sched:  sched,
		fire:   fire,
		logger: logger.With("component", "repeat"),
	}
}

// SetInfo records the repeat parameters. An active repeat keeps its
// current schedule until the next Start.
func (r *Repeater) SetInfo(rate, delay int32) {
	r.state.Rate = rate
	r.state.Delay = delay
}

// State returns a copy of the current repeat state.
func (r *Repeater) State() State { return r.state }

// Enabled reports whether the announced rate allows repeat.
func (r *Repeater) Enabled() bool { return r.state.Rate > 0 }

// Active reports whether a key is currently repeating.
func (r *Repeater) Active() bool { return r.active }

// Start begins repeating keysym. Any earlier repeat is disarmed first.
// It is a no-op when repeat is disabled.
func (r *Repeater) Start(keysym, code uint32) {
	r.Stop()
	if !r.Enabled() {
		return
	}

	r.gen++
	gen := r.gen
	delay := time.Duration(r.state.Delay) * time.Millisecond
	err := r.sched.Arm(delay, r.state.Period(), func() { r.fire(gen) })
	if err != nil {
		r.logger.Warn("arm repeat timer", "error", err)
		return
	}
	r.state.Keysym = keysym
	r.state.Code = code
	r.active = true
}

// Stop disarms the repeat timer. Calling Stop with nothing armed is a
// no-op.
func (r *Repeater) Stop() {
	if !r.active {
		return
	}
	r.active = false
	r.gen++
	if err := r.sched.Disarm(); err != nil {
		r.logger.Warn("disarm repeat timer", "error", err)
	}
}

// Matches reports whether a release of (keysym, code) ends the active
// repeat. The code comparison covers releases whose keysym changed
// because a modifier went up first.
func (r *Repeater) Matches(keysym, code uint32) bool {
	return r.active && (r.state.Keysym == keysym || r.state.Code == code)
}

// Current reports whether a fire with generation gen belongs to the
// active repeat, returning the keysym to replay.
func (r *Repeater) Current(gen uint64) (uint32, bool) {
	if !r.active || gen != r.gen {
		return 0, false
	}
	return r.state.Keysym, true
}

// Close stops any repeat and releases the scheduler.
func (r *Repeater) Close() error {
	r.Stop()
	return r.sched.Close()
}
