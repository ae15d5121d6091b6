//go:build linux

package repeat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// TimerfdScheduler implements Scheduler with a monotonic timerfd. A
// reader goroutine converts expirations into fire calls.
type TimerfdScheduler struct {
	fd     int
	file   *os.File
	logger *slog.Logger

	mu   sync.Mutex
	fire func()
	done chan struct{}
}

// NewTimerfdScheduler creates the timerfd and starts its reader.
func NewTimerfdScheduler(logger *slog.Logger) (*TimerfdScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timerfd_create: %w", err)
	}
	s := &TimerfdScheduler{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), "repeat-timerfd"),
		logger: logger.With("component", "repeat"),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Arm programs the timer. A zero delay would disarm a timerfd, so it is
// rounded up to one nanosecond.
func (s *TimerfdScheduler) Arm(delay, period time.Duration, fire func()) error {
	if delay <= 0 {
		delay = time.Nanosecond
	}
	s.mu.Lock()
	s.fire = fire
	s.mu.Unlock()

	spec := unix.ItimerSpec{
		Value:    unix.NsecToTimespec(int64(delay)),
		Interval: unix.NsecToTimespec(int64(period)),
	}
	if err := unix.TimerfdSettime(s.fd, 0, &spec, nil); err != nil {
		return fmt.Errorf("timerfd_settime: %w", err)
	}
	return nil
}

// Disarm stops the timer.
func (s *TimerfdScheduler) Disarm() error {
	s.mu.Lock()
	s.fire = nil
	s.mu.Unlock()

	var spec unix.ItimerSpec
	if err := unix.TimerfdSettime(s.fd, 0, &spec, nil); err != nil {
		return fmt.Errorf("timerfd_settime: %w", err)
	}
	return nil
}

// Close stops the reader and closes the timerfd.
func (s *TimerfdScheduler) Close() error {
	err := s.file.Close()
	<-s.done
	return err
}

func (s *TimerfdScheduler) readLoop() {
	defer close(s.done)
	var buf [8]byte
	for {
		n, err := s.file.Read(buf[:])
		if err != nil {
			if !errors.Is(err, os.ErrClosed) {
				s.logger.Warn("read repeat timer", "error", err)
			}
			return
		}
		if n != len(buf) || binary.NativeEndian.Uint64(buf[:]) == 0 {
			continue
		}

		// Overruns are coalesced into a single repeat.
		s.mu.Lock()
		fire := s.fire
		s.mu.Unlock()
		if fire != nil {
			fire()
		}
	}
}
