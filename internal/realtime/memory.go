package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sekkot/portal/internal/model"
)

// MemoryBroker delivers within one process.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*Subscription]struct{})}
}

func (b *MemoryBroker) Publish(ctx context.Context, n *model.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[n.UserID] {
		select {
		case sub.ch <- n:
		default:
			slog.Warn("realtime subscriber is full, dropping event", "user_id", n.UserID, "notification_id", n.ID)
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(userID, func() error {
		b.mu.Lock()
		defer b.mu.Unlock()

		b.remove(sub)
		return nil
	})

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*Subscription]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	b.mu.Unlock()

	return sub, nil
}

// Subscribers returns the number of open subscriptions for userID.
func (b *MemoryBroker) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}

// remove drops sub and closes its channel. Callers hold b.mu.
func (b *MemoryBroker) remove(sub *Subscription) {
	subs, ok := b.subs[sub.UserID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.subs, sub.UserID)
	}
	close(sub.ch)
}

// Close ends every open subscription. Later subscribes fail.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for _, subs := range b.subs {
		for sub := range subs {
			b.remove(sub)
		}
	}
	return nil
}
