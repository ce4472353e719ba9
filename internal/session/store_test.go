package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sekkot/portal/internal/db/dbtest"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/session"
)

const testPassword = "Str0ng-enough!"

func newStore(t *testing.T, autoConfirm bool) *session.Store {
	t.Helper()

	store, _ := newStoreDB(t, autoConfirm)
	return store
}

func newStoreDB(t *testing.T, autoConfirm bool) (*session.Store, *sqlx.DB) {
	t.Helper()

	return newStoreOpts(t, session.Options{
		JWTSecret:     "test-secret",
		AccessExpiry:  time.Hour,
		SessionExpiry: 24 * time.Hour,
		AutoConfirm:   autoConfirm,
	})
}

func newStoreOpts(t *testing.T, opts session.Options) (*session.Store, *sqlx.DB) {
	t.Helper()

	database := dbtest.New(t)
	email := service.NewEmailService("", "noreply@example.com", "http://localhost", "Test", true)
	auth := service.NewAuthService(
		repository.NewUserRepository(database),
		repository.NewTokenRepository(database),
		email,
		time.Hour,
		time.Hour,
	)

	store := session.NewStore(auth, repository.NewSessionRepository(database), opts)
	return store, database
}

func authKind(t *testing.T, err error) session.Kind {
	t.Helper()

	var authErr *session.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
	return authErr.Kind
}

func TestSignInInvalidCredentials(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, true)

	sess, err := store.SignIn(ctx, "nobody@example.com", testPassword)
	if sess != nil {
		t.Fatal("expected no session for unknown account")
	}
	if kind := authKind(t, err); kind != session.KindInvalidCredentials {
		t.Fatalf("kind = %v, want %v", kind, session.KindInvalidCredentials)
	}

	_, err = store.SignUp(ctx, "buyer@example.com", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	sess, err = store.SignIn(ctx, "buyer@example.com", "wrong-Passw0rd")
	if sess != nil {
		t.Fatal("expected no session for wrong password")
	}
	if kind := authKind(t, err); kind != session.KindInvalidCredentials {
		t.Fatalf("kind = %v, want %v", kind, session.KindInvalidCredentials)
	}
}

func TestSignInUnconfirmed(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, false)

	sess, err := store.SignUp(ctx, "buyer@example.com", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if sess != nil {
		t.Fatal("unconfirmed sign up should not start a session")
	}

	_, err = store.SignIn(ctx, "buyer@example.com", testPassword)
	if kind := authKind(t, err); kind != session.KindEmailNotConfirmed {
		t.Fatalf("kind = %v, want %v", kind, session.KindEmailNotConfirmed)
	}
}

func TestSignUpDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, true)

	_, err := store.SignUp(ctx, "buyer@example.com", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	_, err = store.SignUp(ctx, "Buyer@Example.com", testPassword)
	if kind := authKind(t, err); kind != session.KindAlreadyRegistered {
		t.Fatalf("kind = %v, want %v", kind, session.KindAlreadyRegistered)
	}
}

func TestRestoreAndRefresh(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, true)

	sess, err := store.SignUp(ctx, "buyer@example.com", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	restored, err := store.Restore(ctx, sess.AccessToken, "")
	if err != nil {
		t.Fatalf("restore from access token: %v", err)
	}
	if restored.ID != sess.ID || restored.Email != "buyer@example.com" {
		t.Fatalf("restored %+v, want session %s", restored, sess.ID)
	}
	if restored.RefreshToken != "" {
		t.Fatal("restore from a valid access token should not rotate")
	}

	refreshed, err := store.Restore(ctx, "", sess.RefreshToken)
	if err != nil {
		t.Fatalf("restore from refresh token: %v", err)
	}
	if refreshed.ID != sess.ID {
		t.Fatalf("refresh changed session id: %s != %s", refreshed.ID, sess.ID)
	}
	if refreshed.RefreshToken == "" || refreshed.RefreshToken == sess.RefreshToken {
		t.Fatal("refresh should issue a new refresh token")
	}

	_, err = store.Refresh(ctx, sess.RefreshToken)
	if !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("reused refresh token: err = %v, want ErrNoSession", err)
	}

	_, err = store.Restore(ctx, "garbage", "garbage")
	if !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("garbage tokens: err = %v, want ErrNoSession", err)
	}
}

func TestSignOutEvents(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, true)

	var events []session.EventType
	sub := store.Subscribe(func(ev session.Event) {
		events = append(events, ev.Type)
	})
	defer sub.Unsubscribe()

	sess, err := store.SignUp(ctx, "buyer@example.com", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	err = store.SignOut(ctx, sess)
	if err != nil {
		t.Fatalf("sign out: %v", err)
	}

	want := []session.EventType{session.EventSignedIn, session.EventSignedOut}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("events = %v, want %v", events, want)
	}

	_, err = store.Restore(ctx, sess.AccessToken, sess.RefreshToken)
	if !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("restore after sign out: err = %v, want ErrNoSession", err)
	}

	sub.Unsubscribe()
	_, err = store.SignIn(ctx, "buyer@example.com", testPassword)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("unsubscribed listener received %d events", len(events))
	}
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	store, database := newStoreDB(t, false)

	_, err := store.SignUp(ctx, "buyer@example.com", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	// Unknown addresses succeed without revealing anything.
	if err := store.ResetPassword(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("reset unknown: %v", err)
	}
	if err := store.ResetPassword(ctx, "buyer@example.com"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	var token string
	err = database.Get(&token, "SELECT token FROM tokens WHERE type = $1", model.TokenTypePasswordReset)
	if err != nil {
		t.Fatalf("load reset token: %v", err)
	}

	const newPassword = "An0ther-Passw0rd!"
	sess, err := store.CompletePasswordReset(ctx, token, newPassword)
	if err != nil {
		t.Fatalf("complete reset: %v", err)
	}
	if sess == nil {
		t.Fatal("completing a reset should start a session")
	}

	// The link is single use.
	_, err = store.CompletePasswordReset(ctx, token, newPassword)
	if err == nil {
		t.Fatal("reused reset link accepted")
	}

	// Opening the link confirmed the address, so the new password signs in.
	if _, err := store.SignIn(ctx, "buyer@example.com", newPassword); err != nil {
		t.Fatalf("sign in with new password: %v", err)
	}
	_, err = store.SignIn(ctx, "buyer@example.com", testPassword)
	if kind := authKind(t, err); kind != session.KindInvalidCredentials {
		t.Fatalf("old password kind = %v, want %v", kind, session.KindInvalidCredentials)
	}
}

func TestConcurrentRefresh(t *testing.T) {
	ctx := context.Background()
	store, _ := newStoreOpts(t, session.Options{
		JWTSecret:     "test-secret",
		AccessExpiry:  time.Hour,
		SessionExpiry: 24 * time.Hour,
		AutoConfirm:   true,
		RefreshGrace:  time.Minute,
	})

	sess, err := store.SignUp(ctx, "buyer@example.com", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	const n = 4
	results := make([]*model.Session, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = store.Refresh(ctx, sess.RefreshToken)
		}()
	}
	close(start)
	wg.Wait()

	var rotated []*model.Session
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("refresh %d: %v", i, errs[i])
		}
		if results[i].AccessToken == "" {
			t.Fatalf("refresh %d issued no access token", i)
		}
		if results[i].RefreshToken != "" {
			rotated = append(rotated, results[i])
		}
	}
	if len(rotated) != 1 {
		t.Fatalf("%d refreshes rotated the secret, want 1", len(rotated))
	}

	// The winning secret is the live one.
	if _, err := store.Refresh(ctx, rotated[0].RefreshToken); err != nil {
		t.Fatalf("refresh with rotated secret: %v", err)
	}
}

func TestRefreshGraceExpires(t *testing.T) {
	ctx := context.Background()
	store, _ := newStoreOpts(t, session.Options{
		JWTSecret:     "test-secret",
		AccessExpiry:  time.Hour,
		SessionExpiry: 24 * time.Hour,
		AutoConfirm:   true,
		RefreshGrace:  30 * time.Second,
	})

	now := time.Now()
	session.SetClock(store, func() time.Time { return now })

	sess, err := store.SignUp(ctx, "buyer@example.com", testPassword)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := store.Refresh(ctx, sess.RefreshToken); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	now = now.Add(10 * time.Second)
	again, err := store.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatalf("replaced secret inside grace: %v", err)
	}
	if again.RefreshToken != "" {
		t.Fatal("grace refresh must not rotate")
	}

	now = now.Add(time.Minute)
	if _, err := store.Refresh(ctx, sess.RefreshToken); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("replaced secret after grace: err = %v, want ErrNoSession", err)
	}
}
