package services

import (
	"context"
	"sync"
	"time"
)

type Decision struct {
	Approved bool
	Notes    string
}

// ApprovalBroker hands approval decisions from the API to the pipeline run
// that is waiting for them. One waiter per application.
type ApprovalBroker struct {
	mu      sync.Mutex
	waiters map[string]chan Decision
}

func NewApprovalBroker() *ApprovalBroker {
	return &ApprovalBroker{waiters: make(map[string]chan Decision)}
}

// ApprovalTicket is held by the waiting side. Always Close it.
type ApprovalTicket struct {
	broker *ApprovalBroker
	id     string
	ch     chan Decision
}

// Register starts listening for a decision on applicationID. A previous
// registration for the same id is replaced.
func (b *ApprovalBroker) Register(applicationID string) *ApprovalTicket {
	ch := make(chan Decision, 1)
	b.mu.Lock()
	b.waiters[applicationID] = ch
	b.mu.Unlock()
	return &ApprovalTicket{broker: b, id: applicationID, ch: ch}
}

// Resolve delivers d to the waiter. It reports false when nobody is waiting.
// The send happens under mu: Wait drains the channel only after Close, which
// takes mu, so a decision reported as delivered is always seen.
func (b *ApprovalBroker) Resolve(applicationID string, d Decision) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.waiters[applicationID]
	if !ok {
		return false
	}
	delete(b.waiters, applicationID)
	// Buffered, and only the registered entry is ever sent to.
	ch <- d
	return true
}

func (b *ApprovalBroker) IsWaiting(applicationID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.waiters[applicationID]
	return ok
}

// Wait blocks until a decision arrives, the timeout passes or ctx is done.
// ok is false when no decision arrived.
func (t *ApprovalTicket) Wait(ctx context.Context, timeout time.Duration) (d Decision, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d = <-t.ch:
		return d, true
	case <-timer.C:
	case <-ctx.Done():
	}

	// A decision may have landed between the timer firing and now.
	t.Close()
	select {
	case d = <-t.ch:
		return d, true
	default:
		return Decision{}, false
	}
}

// Close unregisters the ticket if it is still the active one.
func (t *ApprovalTicket) Close() {
	b := t.broker
	b.mu.Lock()
	if b.waiters[t.id] == t.ch {
		delete(b.waiters, t.id)
	}
	b.mu.Unlock()
}
