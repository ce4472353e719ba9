package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sekkot/portal/internal/model"
)

type listFunc func(ctx context.Context, userID string) ([]*model.Notification, error)

func (f listFunc) ByUser(ctx context.Context, userID string) ([]*model.Notification, error) {
	return f(ctx, userID)
}

func notification(id, userID string) *model.Notification {
	return &model.Notification{ID: id, UserID: userID, Title: id, CreatedAt: time.Now()}
}

func TestFeedPrependsPushedNotifications(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	broker := NewMemoryBroker()
	existing := []*model.Notification{notification("n2", "u1"), notification("n1", "u1")}
	lister := listFunc(func(ctx context.Context, userID string) ([]*model.Notification, error) {
		return existing, nil
	})

	feed, err := OpenFeed(ctx, "u1", lister, broker)
	if err != nil {
		t.Fatal(err)
	}
	defer feed.Close()

	// Another user's insert and a duplicate of a loaded row are both skipped.
	_ = broker.Publish(ctx, notification("x1", "u2"))
	_ = broker.Publish(ctx, notification("n2", "u1"))
	_ = broker.Publish(ctx, notification("n3", "u1"))

	n, err := feed.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n.ID != "n3" {
		t.Fatalf("next = %s, want n3", n.ID)
	}

	items := feed.Items()
	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.ID
	}
	want := []string{"n3", "n2", "n1"}
	if len(got) != len(want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items = %v, want %v", got, want)
		}
	}
}

func TestFeedCloseReleasesSubscription(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	lister := listFunc(func(ctx context.Context, userID string) ([]*model.Notification, error) {
		return nil, nil
	})

	feed, err := OpenFeed(ctx, "u1", lister, broker)
	if err != nil {
		t.Fatal(err)
	}
	if broker.Subscribers("u1") != 1 {
		t.Fatalf("subscribers = %d, want 1", broker.Subscribers("u1"))
	}

	if err := feed.Close(); err != nil {
		t.Fatal(err)
	}
	if err := feed.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if broker.Subscribers("u1") != 0 {
		t.Fatalf("subscribers after close = %d, want 0", broker.Subscribers("u1"))
	}

	_, err = feed.Next(ctx)
	if !errors.Is(err, ErrFeedClosed) {
		t.Fatalf("next after close: %v, want ErrFeedClosed", err)
	}
}

func TestOpenFeedListFailureReleasesSubscription(t *testing.T) {
	broker := NewMemoryBroker()
	lister := listFunc(func(ctx context.Context, userID string) ([]*model.Notification, error) {
		return nil, errors.New("database unavailable")
	})

	_, err := OpenFeed(context.Background(), "u1", lister, broker)
	if err == nil {
		t.Fatal("expected error")
	}
	if broker.Subscribers("u1") != 0 {
		t.Fatal("subscription leaked after a failed load")
	}
}

func TestMemoryBrokerClose(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()

	sub, err := broker.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}

	if err := broker.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatal("events channel should be closed by broker close")
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("closing an ended subscription: %v", err)
	}

	_, err = broker.Subscribe(ctx, "u1")
	if !errors.Is(err, ErrBrokerClosed) {
		t.Fatalf("subscribe after close: %v, want ErrBrokerClosed", err)
	}
}
