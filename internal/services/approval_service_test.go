package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApprovalBroker_ResolveWakesWaiter(t *testing.T) {
	b := NewApprovalBroker()
	ticket := b.Register("app-1")
	defer ticket.Close()
	assert.True(t, b.IsWaiting("app-1"))

	go func() {
		time.Sleep(10 * time.Millisecond)
		assert.True(t, b.Resolve("app-1", Decision{Approved: true, Notes: "go"}))
	}()

	d, ok := ticket.Wait(context.Background(), time.Second)
	assert.True(t, ok)
	assert.True(t, d.Approved)
	assert.Equal(t, "go", d.Notes)
	assert.False(t, b.IsWaiting("app-1"))
}

func TestApprovalBroker_Timeout(t *testing.T) {
	b := NewApprovalBroker()
	ticket := b.Register("app-1")

	d, ok := ticket.Wait(context.Background(), 10*time.Millisecond)
	assert.False(t, ok)
	assert.False(t, d.Approved)
	assert.False(t, b.IsWaiting("app-1"))
	assert.False(t, b.Resolve("app-1", Decision{Approved: true}), "nobody left to resolve")
}

func TestApprovalBroker_ContextCancel(t *testing.T) {
	b := NewApprovalBroker()
	ticket := b.Register("app-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := ticket.Wait(ctx, time.Hour)
	assert.False(t, ok)
}

func TestApprovalBroker_DecisionBeforeWait(t *testing.T) {
	b := NewApprovalBroker()
	ticket := b.Register("app-1")
	assert.True(t, b.Resolve("app-1", Decision{Approved: false, Notes: "no"}))

	d, ok := ticket.Wait(context.Background(), time.Second)
	assert.True(t, ok)
	assert.False(t, d.Approved)
}

func TestApprovalBroker_ResolveUnknown(t *testing.T) {
	assert.False(t, NewApprovalBroker().Resolve("missing", Decision{Approved: true}))
}

func TestApprovalBroker_ReRegisterKeepsNewest(t *testing.T) {
	b := NewApprovalBroker()
	old := b.Register("app-1")
	fresh := b.Register("app-1")

	old.Close()
	assert.True(t, b.IsWaiting("app-1"), "closing a replaced ticket leaves the new one")

	assert.True(t, b.Resolve("app-1", Decision{Approved: true}))
	d, ok := fresh.Wait(context.Background(), time.Second)
	assert.True(t, ok)
	assert.True(t, d.Approved)
}

func TestApprovalBroker_DeliveredDecisionSurvivesTimeout(t *testing.T) {
	b := NewApprovalBroker()
	for i := 0; i < 500; i++ {
		ticket := b.Register("app-1")
		type result struct {
			d  Decision
			ok bool
		}
		got := make(chan result, 1)
		go func() {
			d, ok := ticket.Wait(context.Background(), time.Microsecond)
			got <- result{d, ok}
		}()

		delivered := b.Resolve("app-1", Decision{Approved: true})
		r := <-got
		if delivered {
			assert.True(t, r.ok, "iteration %d: decision delivered but wait timed out", i)
			assert.True(t, r.d.Approved)
		} else {
			assert.False(t, r.ok)
		}
		ticket.Close()
	}
}
