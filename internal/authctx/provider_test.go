package authctx

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sekkot/portal/internal/db/dbtest"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/session"
)

// blockingResolver holds every lookup until release is closed.
type blockingResolver struct {
	release chan struct{}
	started chan struct{}
	calls   atomic.Int32
	admin   bool
}

func newBlockingResolver(admin bool) *blockingResolver {
	return &blockingResolver{
		release: make(chan struct{}),
		started: make(chan struct{}, 8),
		admin:   admin,
	}
}

func (r *blockingResolver) IsAdmin(ctx context.Context, userID string) (bool, error) {
	r.calls.Add(1)
	r.started <- struct{}{}
	select {
	case <-r.release:
		return r.admin, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type staticResolver bool

func (r staticResolver) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return bool(r), nil
}

func newStore(t *testing.T) *session.Store {
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
	return session.NewStore(auth, repository.NewSessionRepository(database), session.Options{
		JWTSecret:     "test-secret",
		AccessExpiry:  time.Hour,
		SessionExpiry: time.Hour,
		AutoConfirm:   true,
	})
}

func TestStateAnonymous(t *testing.T) {
	p := New(newStore(t), staticResolver(true))

	st := p.State(context.Background(), nil)
	if st.User != nil || st.IsAdmin || st.Loading {
		t.Fatalf("anonymous state = %+v", st)
	}
}

func TestStateLoadingWhileResolving(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	// Sign up before the provider subscribes so the first State call
	// does the resolution.
	sess, err := store.SignUp(ctx, "buyer@example.com", "Str0ng-enough!")
	if err != nil {
		t.Fatal(err)
	}

	resolver := newBlockingResolver(true)
	p := New(store, resolver)

	var wg sync.WaitGroup
	var first State
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = p.State(ctx, sess)
	}()

	<-resolver.started

	during := p.State(ctx, sess)
	if !during.Loading || during.IsAdmin {
		t.Fatalf("state during resolution = %+v, want loading and not admin", during)
	}

	close(resolver.release)
	wg.Wait()

	if first.Loading || first.User == nil || !first.IsAdmin {
		t.Fatalf("resolved state = %+v", first)
	}

	after := p.State(ctx, sess)
	if after.Loading || !after.IsAdmin {
		t.Fatalf("cached state = %+v", after)
	}
	if n := resolver.calls.Load(); n != 1 {
		t.Fatalf("resolver called %d times, want 1", n)
	}
}

func TestSignInResolvesOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	resolver := newBlockingResolver(false)
	close(resolver.release)

	p := New(store, resolver)
	p.Start(ctx)
	defer p.Close()

	sess, err := p.SignUp(ctx, "buyer@example.com", "Str0ng-enough!")
	if err != nil {
		t.Fatal(err)
	}

	for range 3 {
		st := p.State(ctx, sess)
		if st.Loading || st.User == nil || st.IsAdmin {
			t.Fatalf("state = %+v", st)
		}
	}
	if n := resolver.calls.Load(); n != 1 {
		t.Fatalf("resolver called %d times, want 1", n)
	}
}

func TestSignOutResetsState(t *testing.T) {
	ctx := context.Background()
	p := New(newStore(t), staticResolver(true))
	p.Start(ctx)
	defer p.Close()

	sess, err := p.SignUp(ctx, "ops@example.com", "Str0ng-enough!")
	if err != nil {
		t.Fatal(err)
	}
	if st := p.State(ctx, sess); !st.IsAdmin {
		t.Fatalf("state before sign out = %+v", st)
	}

	if err := p.SignOut(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 0 {
		t.Fatalf("tracked sessions after sign out = %d", p.Len())
	}
}

func TestEvictExpired(t *testing.T) {
	p := New(newStore(t), staticResolver(false))

	now := time.Now()
	p.entries["old"] = &entry{state: State{Session: &model.Session{ID: "old"}}, expires: now.Add(-time.Minute)}
	p.entries["live"] = &entry{state: State{Session: &model.Session{ID: "live"}}, expires: now.Add(time.Minute)}

	p.evictExpired(now)

	if _, ok := p.entries["old"]; ok {
		t.Fatal("expired entry kept")
	}
	if _, ok := p.entries["live"]; !ok {
		t.Fatal("live entry evicted")
	}
}

// switchResolver answers with whatever admin currently holds.
type switchResolver struct {
	admin atomic.Bool
	calls atomic.Int32
}

func (r *switchResolver) IsAdmin(ctx context.Context, userID string) (bool, error) {
	r.calls.Add(1)
	return r.admin.Load(), nil
}

func TestAdminFlagExpires(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	sess, err := store.SignUp(ctx, "ops@example.com", "Str0ng-enough!")
	if err != nil {
		t.Fatal(err)
	}

	resolver := &switchResolver{}
	resolver.admin.Store(true)

	now := time.Now()
	p := New(store, resolver, WithAdminTTL(time.Minute))
	p.now = func() time.Time { return now }

	if st := p.State(ctx, sess); !st.IsAdmin {
		t.Fatalf("initial state = %+v", st)
	}

	resolver.admin.Store(false)
	if st := p.State(ctx, sess); !st.IsAdmin {
		t.Fatalf("flag re-read before the ttl: %+v", st)
	}

	now = now.Add(2 * time.Minute)
	st := p.State(ctx, sess)
	if st.IsAdmin || st.Loading || st.User == nil {
		t.Fatalf("state after ttl = %+v, want signed in without admin", st)
	}
	if st := p.State(ctx, sess); st.IsAdmin {
		t.Fatalf("revoked flag not kept: %+v", st)
	}
	if n := resolver.calls.Load(); n != 2 {
		t.Fatalf("resolver called %d times, want 2", n)
	}
}

func TestAdminFlagReresolvedOnRefresh(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	resolver := &switchResolver{}
	p := New(store, resolver)
	p.Start(ctx)
	defer p.Close()

	sess, err := p.SignUp(ctx, "ops@example.com", "Str0ng-enough!")
	if err != nil {
		t.Fatal(err)
	}
	if st := p.State(ctx, sess); st.IsAdmin {
		t.Fatalf("state before promotion = %+v", st)
	}

	resolver.admin.Store(true)
	refreshed, err := store.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}

	if st := p.State(ctx, refreshed); !st.IsAdmin {
		t.Fatalf("state after refresh = %+v, want admin", st)
	}
}
