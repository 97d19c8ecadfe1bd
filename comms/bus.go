package comms

import (
	"sort"
	"sync"
	"time"
)

// maxHistory caps the in-memory message log. totalSent keeps counting
// past the cap so Status reports the true historical total.
const maxHistory = 1000

// InMemoryBus is a thread-safe in-process message bus. One mutex
// protects the active-role set, handler tables, and history log; each
// inbox carries its own lock so enqueue/dequeue never block registry
// operations.
type InMemoryBus struct {
	mu        sync.RWMutex
	active    map[Role]bool
	handlers  map[Role]map[Kind]Handler
	history   []*Message
	totalSent int

	inboxes map[Role]*inbox // fixed at construction, read-only after
}

// NewInMemoryBus creates a bus with an inbox and handler table for
// every known role. No role is active until it registers.
func NewInMemoryBus() *InMemoryBus {
	b := &InMemoryBus{
		active:   make(map[Role]bool),
		handlers: make(map[Role]map[Kind]Handler),
		inboxes:  make(map[Role]*inbox),
	}
	for _, role := range Roles {
		b.inboxes[role] = newInbox()
		b.handlers[role] = make(map[Kind]Handler)
	}
	return b
}

// Register marks role active. Idempotent.
func (b *InMemoryBus) Register(role Role) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active[role] = true
}

// Unregister marks role inactive. The role's inbox keeps any queued
// messages so a loop draining past its running flag can still see them.
func (b *InMemoryBus) Unregister(role Role) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.active, role)
}

// RegisterHandler installs h for the (role, kind) pair. Last write wins.
func (b *InMemoryBus) RegisterHandler(role Role, kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[role][kind] = h
}

// Handler returns the handler registered for (role, kind), or nil.
func (b *InMemoryBus) Handler(role Role, kind Kind) Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handlers[role][kind]
}

// Send appends msg to the receiver's inbox and the history log under
// one critical section. Delivery is exactly-once and FIFO per receiver.
func (b *InMemoryBus) Send(msg *Message) error {
	b.mu.Lock()
	if !b.active[msg.Receiver] {
		b.mu.Unlock()
		return &DeliveryError{Sender: msg.Sender, Receiver: msg.Receiver}
	}

	b.history = append(b.history, msg)
	if len(b.history) > maxHistory {
		b.history = b.history[len(b.history)-maxHistory:]
	}
	b.totalSent++
	q := b.inboxes[msg.Receiver]
	q.put(msg)
	b.mu.Unlock()

	return nil
}

// Receive blocks up to timeout for the next message addressed to role.
// No handler is invoked; dispatch is the caller's job.
func (b *InMemoryBus) Receive(role Role, timeout time.Duration) (*Message, bool) {
	q := b.inboxes[role]
	if q == nil {
		return nil, false
	}
	return q.get(timeout)
}

// History returns the most recent messages sent to or from role, oldest
// first, up to limit (0 = no limit).
func (b *InMemoryBus) History(role Role, limit int) []*Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []*Message
	for i := len(b.history) - 1; i >= 0; i-- {
		m := b.history[i]
		if m.Receiver == role || m.Sender == role {
			result = append(result, m)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	// Reverse to chronological order
	for l, r := 0, len(result)-1; l < r; l, r = l+1, r-1 {
		result[l], result[r] = result[r], result[l]
	}
	return result
}

// Status reports active roles, the total number of messages ever sent,
// and the current depth of every inbox. Monitoring only; nothing should
// branch on it.
func (b *InMemoryBus) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	roles := make([]Role, 0, len(b.active))
	for role := range b.active {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	sizes := make(map[Role]int, len(b.inboxes))
	for role, q := range b.inboxes {
		sizes[role] = q.depth()
	}

	return Status{
		ActiveAgents:  roles,
		TotalMessages: b.totalSent,
		QueueSizes:    sizes,
	}
}
