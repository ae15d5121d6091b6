package repeat

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wlchewing/internal/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// firing records the generations handed to the owning loop.
type firing struct {
	gens []uint64
}

func (f *firing) fire(gen uint64) { f.gens = append(f.gens, gen) }

func newTestRepeater(t *testing.T) (*Repeater, *clock.FakeClock, *firing) {
	t.Helper()
	c := clock.Fake(epoch)
	f := &firing{}
	r := New(NewClockScheduler(c), f.fire, nil)
	return r, c, f
}

func TestStatePeriod(t *testing.T) {
	assert.Equal(t, 40*time.Millisecond, State{Rate: 25}.Period())
	assert.Equal(t, time.Duration(0), State{Rate: 0}.Period())
	assert.Equal(t, time.Duration(0), State{Rate: -3}.Period())
}

func TestRepeaterDelayThenPeriod(t *testing.T) {
	r, c, f := newTestRepeater(t)
	r.SetInfo(25, 600)

	r.Start(0x61, 30)
	require.True(t, r.Active())

	c.Advance(599 * time.Millisecond)
	assert.Empty(t, f.gens)

	// 600, 640, 680
	c.Advance(101 * time.Millisecond)
	require.Len(t, f.gens, 3)

	sym, ok := r.Current(f.gens[0])
	assert.True(t, ok)
	assert.Equal(t, uint32(0x61), sym)
}

func TestRepeaterDisabledWhenRateZero(t *testing.T) {
	r, c, f := newTestRepeater(t)
	r.SetInfo(0, 600)

	r.Start(0x61, 30)
	assert.False(t, r.Active())
	c.Advance(5 * time.Second)
	assert.Empty(t, f.gens)
}

func TestRepeaterStopInvalidatesGeneration(t *testing.T) {
	r, c, f := newTestRepeater(t)
	r.SetInfo(25, 600)

	r.Start(0x61, 30)
	c.Advance(600 * time.Millisecond)
	require.Len(t, f.gens, 1)
	stale := f.gens[0]

	r.Stop()
	_, ok := r.Current(stale)
	assert.False(t, ok)

	c.Advance(time.Second)
	assert.Len(t, f.gens, 1, "no fires after stop")

	// Stop is idempotent.
	r.Stop()
	assert.False(t, r.Active())
}

func TestRepeaterStartReplacesPreviousKey(t *testing.T) {
	r, c, f := newTestRepeater(t)
	r.SetInfo(25, 600)

	r.Start(0x61, 30)
	c.Advance(300 * time.Millisecond)
	r.Start(0x62, 48)
	c.Advance(600 * time.Millisecond)

	require.Len(t, f.gens, 1)
	sym, ok := r.Current(f.gens[0])
	require.True(t, ok)
	assert.Equal(t, uint32(0x62), sym)
}

func TestRepeaterMatches(t *testing.T) {
	r, _, _ := newTestRepeater(t)
	r.SetInfo(25, 600)

	assert.False(t, r.Matches(0x61, 30), "nothing active")

	r.Start(0x61, 30)
	assert.True(t, r.Matches(0x61, 30))
	assert.True(t, r.Matches(0x41, 30), "same code, shifted keysym")
	assert.True(t, r.Matches(0x61, 99), "same keysym, other code")
	assert.False(t, r.Matches(0x62, 48))
}

type failingScheduler struct{}

func (failingScheduler) Arm(time.Duration, time.Duration, func()) error {
	return errors.New("timer unavailable")
}
func (failingScheduler) Disarm() error { return nil }
func (failingScheduler) Close() error  { return nil }

func TestRepeaterArmFailureIsNotFatal(t *testing.T) {
	r := New(failingScheduler{}, func(uint64) {}, nil)
	r.SetInfo(25, 600)

	r.Start(0x61, 30)
	assert.False(t, r.Active())
	assert.NoError(t, r.Close())
}
