package ime

import "sync"

// Mailbox is an unbounded queue of notifications with a single
// consumer. Post never blocks, so producers such as the Wayland pump
// cannot stall behind a loop that is itself waiting on a roundtrip.
type Mailbox struct {
	mu    sync.Mutex
	queue []Notification
	ready chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Post appends n. Safe for concurrent use.
func (m *Mailbox) Post(n Notification) {
	m.mu.Lock()
	m.queue = append(m.queue, n)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled when notifications may be waiting.
func (m *Mailbox) Ready() <-chan struct{} { return m.ready }

// Drain removes and returns everything posted so far, in order.
func (m *Mailbox) Drain() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.queue
	m.queue = nil
	return out
}

// Len returns the number of queued notifications.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
