package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sekkot/portal/internal/model"
)

// ErrFeedClosed is returned by Next after the subscription ends.
var ErrFeedClosed = errors.New("feed closed")

// Lister loads a user's notifications, newest first.
type Lister interface {
	ByUser(ctx context.Context, userID string) ([]*model.Notification, error)
}

// Feed is the live notification list of one dashboard connection.
type Feed struct {
	sub *Subscription

	mu    sync.Mutex
	items []*model.Notification
	seen  map[string]bool
}

// OpenFeed loads existing notifications while subscribing to new ones.
// The caller owns the feed and must Close it.
func OpenFeed(ctx context.Context, userID string, lister Lister, broker Broker) (*Feed, error) {
	var (
		wg      sync.WaitGroup
		items   []*model.Notification
		listErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		items, listErr = lister.ByUser(ctx, userID)
	}()

	sub, subErr := broker.Subscribe(ctx, userID)
	wg.Wait()

	if subErr != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", subErr)
	}
	if listErr != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to load notifications: %w", listErr)
	}

	f := &Feed{sub: sub, items: items, seen: make(map[string]bool, len(items))}
	for _, n := range items {
		f.seen[n.ID] = true
	}
	return f, nil
}

// Items returns a copy of the list, newest first.
func (f *Feed) Items() []*model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.Notification(nil), f.items...)
}

// Next waits for the next new notification and prepends it. Events already
// in the list are skipped; one can arrive both ways around OpenFeed.
func (f *Feed) Next(ctx context.Context) (*model.Notification, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case n, ok := <-f.sub.Events():
			if !ok {
				return nil, ErrFeedClosed
			}
			if f.prepend(n) {
				return n, nil
			}
		}
	}
}

func (f *Feed) prepend(n *model.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen[n.ID] {
		return false
	}
	f.seen[n.ID] = true
	f.items = append([]*model.Notification{n}, f.items...)
	return true
}

func (f *Feed) Close() error {
	return f.sub.Close()
}
