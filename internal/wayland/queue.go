package wayland

import "sync"

// message is one event read off the socket, not yet dispatched.
type message struct {
	sender uint32
	opcode uint32
	fd     int
	data   []byte
}

// queue hands raw events from the pump to the goroutine that owns the
// protocol objects.
type queue struct {
	mu    sync.Mutex
	msgs  []message
	ready chan struct{}
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

// push appends m and reports whether the queue was empty before.
func (q *queue) push(m message) bool {
	q.mu.Lock()
	wasEmpty := len(q.msgs) == 0
	q.msgs = append(q.msgs, m)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return wasEmpty
}

func (q *queue) drain() []message {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs := q.msgs
	q.msgs = nil
	return msgs
}
