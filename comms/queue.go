package comms

import (
	"sync"
	"time"
)

// inbox is an unbounded FIFO queue of messages with blocking receive.
// Enqueue and dequeue need no locking beyond the inbox's own mutex, so
// inbox traffic never contends with the bus registry lock.
type inbox struct {
	mu   sync.Mutex
	msgs []*Message
	wake chan struct{} // capacity 1, signals a waiting receiver
}

func newInbox() *inbox {
	return &inbox{wake: make(chan struct{}, 1)}
}

// put appends msg and wakes one waiting receiver.
func (q *inbox) put(msg *Message) {
	q.mu.Lock()
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// tryGet pops the head of the queue if one is present.
func (q *inbox) tryGet() (*Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.msgs) == 0 {
		return nil, false
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	return msg, true
}

// get blocks up to timeout for the next message. The wake channel may
// carry a stale signal from an already-consumed put, so the queue is
// re-checked after every wakeup until the deadline passes.
func (q *inbox) get(timeout time.Duration) (*Message, bool) {
	if msg, ok := q.tryGet(); ok {
		return msg, true
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-q.wake:
			if msg, ok := q.tryGet(); ok {
				return msg, true
			}
		case <-deadline.C:
			return nil, false
		}
	}
}

// depth returns the number of queued messages.
func (q *inbox) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}
