package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/storage/storagetest"
)

func TestMarkReadTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, storagetest.NewMemoryStorage("http://files.test"))
	customer := f.user(t, "buyer@example.com")

	n, err := f.notifications.Create(ctx, customer.ID, "Requirement Completed", "Done", model.RequirementStatusCompleted)
	if err != nil {
		t.Fatal(err)
	}

	changed, err := f.notifications.MarkRead(ctx, customer.ID, n.ID)
	if err != nil || !changed {
		t.Fatalf("first mark: changed=%v err=%v", changed, err)
	}

	changed, err = f.notifications.MarkRead(ctx, customer.ID, n.ID)
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if changed {
		t.Fatal("second mark should report no change")
	}

	notes, err := f.notifications.Notifications(ctx, customer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || !notes[0].Read {
		t.Fatalf("notifications = %+v, want one read", notes)
	}

	unread, err := f.notifications.UnreadCount(ctx, customer.ID)
	if err != nil || unread != 0 {
		t.Fatalf("unread = %d, err = %v", unread, err)
	}
}

func TestMarkReadOtherUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, storagetest.NewMemoryStorage("http://files.test"))
	owner := f.user(t, "buyer@example.com")
	other := f.user(t, "other@example.com")

	n, err := f.notifications.Create(ctx, owner.ID, "Hello", "Hi", model.NotificationTypeResponse)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.notifications.MarkRead(ctx, other.ID, n.ID)
	if !errors.Is(err, repository.ErrNotificationNotFound) {
		t.Fatalf("err = %v, want ErrNotificationNotFound", err)
	}
}

func TestCreatePublishesToFeed(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f := newFixture(t, storagetest.NewMemoryStorage("http://files.test"))
	customer := f.user(t, "buyer@example.com")

	feed, err := f.notifications.OpenFeed(ctx, customer.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer feed.Close()

	if len(feed.Items()) != 0 {
		t.Fatalf("initial items = %d", len(feed.Items()))
	}

	created, err := f.notifications.Create(ctx, customer.ID, "New response", "Hello", model.NotificationTypeResponse)
	if err != nil {
		t.Fatal(err)
	}

	got, err := feed.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != created.ID {
		t.Fatalf("pushed %s, want %s", got.ID, created.ID)
	}
}
