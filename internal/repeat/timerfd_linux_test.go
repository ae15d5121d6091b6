//go:build linux

package repeat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerfdSchedulerFiresAndDisarms(t *testing.T) {
	s, err := NewTimerfdScheduler(nil)
	require.NoError(t, err)
	defer s.Close()

	fired := make(chan struct{}, 16)
	require.NoError(t, s.Arm(5*time.Millisecond, 5*time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}))

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatal("timerfd did not fire")
		}
	}

	require.NoError(t, s.Disarm())
}
