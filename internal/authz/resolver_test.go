package authz

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sekkot/portal/internal/db/dbtest"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
)

func TestIsAdmin(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	users := repository.NewUserRepository(database)
	resolver := NewResolver(repository.NewAdminRepository(database))

	user := &model.User{ID: uuid.New().String(), Email: "ops@example.com", CreatedAt: time.Now().UTC()}
	if err := users.Create(ctx, user); err != nil {
		t.Fatal(err)
	}

	isAdmin, err := resolver.IsAdmin(ctx, user.ID)
	if err != nil {
		t.Fatalf("no row: unexpected error %v", err)
	}
	if isAdmin {
		t.Fatal("user without an admin row must not be admin")
	}

	if err := resolver.Grant(ctx, user.ID); err != nil {
		t.Fatal(err)
	}
	isAdmin, _ = resolver.IsAdmin(ctx, user.ID)
	if !isAdmin {
		t.Fatal("granted user should be admin")
	}

	admins, err := resolver.Admins(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(admins) != 1 || admins[0].Email != "ops@example.com" {
		t.Fatalf("admins = %+v", admins)
	}

	if err := resolver.Revoke(ctx, user.ID); err != nil {
		t.Fatal(err)
	}
	isAdmin, _ = resolver.IsAdmin(ctx, user.ID)
	if isAdmin {
		t.Fatal("revoked user should not be admin")
	}

	isAdmin, err = resolver.IsAdmin(ctx, "")
	if err != nil || isAdmin {
		t.Fatalf("empty user id: got %v, %v", isAdmin, err)
	}
}
