package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sekkot/portal/internal/db/dbtest"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/service"
)

func TestRegisterEmailFailureRemovesUser(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	users := repository.NewUserRepository(database)
	tokens := repository.NewTokenRepository(database)

	// Not dev mode and no API key, so every send fails.
	broken := service.NewEmailService("", "noreply@example.com", "http://localhost", "Test", false)
	auth := service.NewAuthService(users, tokens, broken, time.Hour, time.Hour)

	_, err := auth.Register(ctx, "buyer@example.com", "Str0ng-enough!", false)
	if err == nil {
		t.Fatal("expected register to fail when the confirmation email cannot be sent")
	}

	_, err = users.ByEmail(ctx, "buyer@example.com")
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("user left behind after failed send: %v", err)
	}

	working := service.NewEmailService("", "noreply@example.com", "http://localhost", "Test", true)
	auth = service.NewAuthService(users, tokens, working, time.Hour, time.Hour)
	if _, err := auth.Register(ctx, "buyer@example.com", "Str0ng-enough!", false); err != nil {
		t.Fatalf("register again: %v", err)
	}
}
