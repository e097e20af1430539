package access

import (
	"context"
	"sync"
)

// Pending is a confirmation request waiting for an answer from the host UI.
type Pending struct {
	ID      uint64
	Request Request
}

// Broker turns Confirm calls into asynchronous request/response pairs. The
// host UI reads Requests, shows whatever modal it likes and calls Respond.
type Broker struct {
	requests chan Pending

	mu      sync.Mutex
	nextID  uint64
	waiters map[uint64]chan bool
}

// NewBroker creates a broker whose request channel holds up to buffer
// unread requests.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{
		requests: make(chan Pending, buffer),
		waiters:  make(map[uint64]chan bool),
	}
}

// Requests returns the channel of requests awaiting an answer.
func (b *Broker) Requests() <-chan Pending {
	return b.requests
}

// Confirm implements Checker. It blocks until Respond is called for the
// request or ctx is done.
func (b *Broker) Confirm(ctx context.Context, req Request) (bool, error) {
	answer := make(chan bool, 1)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.waiters[id] = answer
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.waiters, id)
		b.mu.Unlock()
	}()

	select {
	case b.requests <- Pending{ID: id, Request: req}:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case ok := <-answer:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Respond answers a pending request. It reports false when the request is
// unknown or already answered.
func (b *Broker) Respond(id uint64, ok bool) bool {
	b.mu.Lock()
	answer, found := b.waiters[id]
	delete(b.waiters, id)
	b.mu.Unlock()

	if !found {
		return false
	}
	answer <- ok
	return true
}

// DenyAll answers every outstanding request with a refusal.
func (b *Broker) DenyAll() {
	b.mu.Lock()
	waiting := make([]chan bool, 0, len(b.waiters))
	for id, answer := range b.waiters {
		waiting = append(waiting, answer)
		delete(b.waiters, id)
	}
	b.mu.Unlock()

	for _, answer := range waiting {
		answer <- false
	}
}
