package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/sekkot/portal/internal/model"
)

// Broker fans notification inserts out to subscribers of the owning user.
type Broker interface {
	Publish(ctx context.Context, n *model.Notification) error
	Subscribe(ctx context.Context, userID string) (*Subscription, error)
	Close() error
}

const subscriptionBuffer = 16

var ErrBrokerClosed = errors.New("broker closed")

// Subscription delivers inserts for one user until closed. Every
// subscription must be closed by its owner.
type Subscription struct {
	UserID string

	ch      chan *model.Notification
	once    sync.Once
	release func() error
	err     error
}

func newSubscription(userID string, release func() error) *Subscription {
	return &Subscription{
		UserID:  userID,
		ch:      make(chan *model.Notification, subscriptionBuffer),
		release: release,
	}
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan *model.Notification {
	return s.ch
}

func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.err = s.release()
	})
	return s.err
}
