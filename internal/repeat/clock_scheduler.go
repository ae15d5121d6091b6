package repeat

import (
	"sync"
	"time"

	"wlchewing/internal/clock"
)

// ClockScheduler implements Scheduler on top of a clock.Clock. It is
// the portable scheduler and the one used by tests.
type ClockScheduler struct {
	clock clock.Clock

	mu    sync.Mutex
	timer *clock.Timer
	gen   uint64
}

// NewClockScheduler returns a scheduler driven by c.
func NewClockScheduler(c clock.Clock) *ClockScheduler {
	if c == nil {
		c = clock.Real()
	}
	return &ClockScheduler{clock: c}
}

// minDelay keeps a zero delay from firing synchronously inside Arm.
const minDelay = time.Millisecond

// Arm schedules fire after delay and then every period.
func (s *ClockScheduler) Arm(delay, period time.Duration, fire func()) error {
	if delay < minDelay {
		delay = minDelay
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	gen := s.gen

	var tick func()
	tick = func() {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		if period > 0 {
			s.timer = s.clock.AfterFunc(period, tick)
		}
		s.mu.Unlock()
		fire()
	}
	s.timer = s.clock.AfterFunc(delay, tick)
	return nil
}

// Disarm cancels the pending fire, if any.
func (s *ClockScheduler) Disarm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

// Close disarms the scheduler.
func (s *ClockScheduler) Close() error { return s.Disarm() }

func (s *ClockScheduler) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
