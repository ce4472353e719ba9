package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newRedisBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), srv.Addr())
	if err != nil {
		t.Fatal(err)
	}
	b := NewRedisBroker(client)
	t.Cleanup(func() { _ = b.Close() })
	return b, srv
}

func TestRedisBrokerDeliversToOwner(t *testing.T) {
	ctx := context.Background()
	b, _ := newRedisBroker(t)

	sub, err := b.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = sub.Close() }()

	if err := b.Publish(ctx, notification("other", "u2")); err != nil {
		t.Fatal(err)
	}
	if err := b.Publish(ctx, notification("n1", "u1")); err != nil {
		t.Fatal(err)
	}

	select {
	case n := <-sub.Events():
		if n.ID != "n1" || n.UserID != "u1" {
			t.Fatalf("got %+v, want n1 for u1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestRedisBrokerCloseUnsubscribes(t *testing.T) {
	ctx := context.Background()
	b, srv := newRedisBroker(t)

	sub, err := b.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if n := srv.PubSubNumSub(channel("u1"))[channel("u1")]; n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}

	if err := sub.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatal("events channel still open after close")
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.PubSubNumSub(channel("u1"))[channel("u1")] != 0 {
		if time.Now().After(deadline) {
			t.Fatal("redis subscription not released")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
