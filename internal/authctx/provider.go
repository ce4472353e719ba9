package authctx

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/session"
)

// State is what pages and guards see of the current visitor.
type State struct {
	User    *model.User
	Session *model.Session
	IsAdmin bool
	Loading bool
}

func (s State) SignedIn() bool {
	return s.User != nil
}

// AdminResolver decides the admin flag for a user.
type AdminResolver interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type entry struct {
	state      State
	expires    time.Time
	resolvedAt time.Time
	refreshing bool
}

const (
	resolveTimeout = 5 * time.Second

	// DefaultAdminTTL bounds how long a resolved admin flag is served
	// before it is looked up again.
	DefaultAdminTTL = 30 * time.Second
)

type Option func(*Provider)

// WithAdminTTL sets how long an admin flag is trusted.
func WithAdminTTL(d time.Duration) Option {
	return func(p *Provider) {
		p.adminTTL = d
	}
}

// Provider aggregates session and admin state per browser session. Create
// one per process, Start it before serving and Close it on shutdown.
type Provider struct {
	store    *session.Store
	resolver AdminResolver
	adminTTL time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	sub    *session.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

func New(store *session.Store, resolver AdminResolver, opts ...Option) *Provider {
	p := &Provider{
		store:    store,
		resolver: resolver,
		adminTTL: DefaultAdminTTL,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start subscribes to the session event stream and begins evicting
// expired sessions.
func (p *Provider) Start(ctx context.Context) {
	p.sub = p.store.Subscribe(p.onEvent)

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.cleanupLoop(ctx)
}

// Close releases the event subscription and stops cleanup.
func (p *Provider) Close() {
	if p.sub != nil {
		p.sub.Unsubscribe()
	}
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

// State returns the state for sess. The first caller for a session resolves
// it; callers arriving while that is in flight get Loading. Once the admin
// flag is older than the admin TTL the next caller looks it up again while
// others keep getting the previous state.
func (p *Provider) State(ctx context.Context, sess *model.Session) State {
	if sess == nil {
		return State{}
	}

	p.mu.Lock()
	e, ok := p.entries[sess.ID]
	if ok {
		st := e.state
		stale := !st.Loading && st.User != nil && !e.refreshing && p.now().Sub(e.resolvedAt) >= p.adminTTL
		if stale {
			e.refreshing = true
		}
		p.mu.Unlock()

		if stale {
			return p.refreshAdmin(ctx, e, st)
		}
		return st
	}
	e = &entry{state: State{Session: sess, Loading: true}, expires: sess.ExpiresAt}
	p.entries[sess.ID] = e
	p.mu.Unlock()

	return p.resolve(ctx, e, sess, nil)
}

// Len returns the number of tracked sessions.
func (p *Provider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	return p.store.SignIn(ctx, email, password)
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	return p.store.SignUp(ctx, email, password)
}

func (p *Provider) SignOut(ctx context.Context, sess *model.Session) error {
	return p.store.SignOut(ctx, sess)
}

func (p *Provider) ResetPassword(ctx context.Context, email string) error {
	return p.store.ResetPassword(ctx, email)
}

// resolve fills e with the user and admin flag. A failed lookup leaves the
// visitor anonymous and drops the entry so the next request retries.
func (p *Provider) resolve(ctx context.Context, e *entry, sess *model.Session, user *model.User) State {
	if user == nil {
		var err error
		user, err = p.store.User(ctx, sess)
		if err != nil {
			slog.Warn("failed to resolve session user", "error", err, "session_id", sess.ID)
			p.drop(sess.ID, e)
			return State{}
		}
	}

	isAdmin, err := p.resolver.IsAdmin(ctx, user.ID)
	if err != nil {
		slog.Error("failed to resolve admin flag", "error", err, "user_id", user.ID)
		p.drop(sess.ID, e)
		return State{User: user, Session: sess}
	}

	st := State{User: user, Session: sess, IsAdmin: isAdmin}

	p.mu.Lock()
	if p.entries[sess.ID] == e {
		e.state = st
		e.resolvedAt = p.now()
	}
	p.mu.Unlock()

	return st
}

// refreshAdmin looks the admin flag up again for a resolved entry. A failed
// lookup drops the entry and serves the visitor without admin rights.
func (p *Provider) refreshAdmin(ctx context.Context, e *entry, st State) State {
	isAdmin, err := p.resolver.IsAdmin(ctx, st.User.ID)

	p.mu.Lock()
	defer p.mu.Unlock()

	e.refreshing = false
	if err != nil {
		slog.Error("failed to refresh admin flag", "error", err, "user_id", st.User.ID)
		if p.entries[st.Session.ID] == e {
			delete(p.entries, st.Session.ID)
		}
		return State{User: st.User, Session: st.Session}
	}
	if p.entries[st.Session.ID] != e {
		st.IsAdmin = isAdmin
		return st
	}

	if e.state.IsAdmin != isAdmin {
		slog.Info("admin flag changed", "user_id", st.User.ID, "is_admin", isAdmin)
	}
	e.state.IsAdmin = isAdmin
	e.resolvedAt = p.now()
	return e.state
}

func (p *Provider) drop(id string, e *entry) {
	p.mu.Lock()
	if p.entries[id] == e {
		delete(p.entries, id)
	}
	p.mu.Unlock()
}

func (p *Provider) onEvent(ev session.Event) {
	switch ev.Type {
	case session.EventSignedIn:
		p.track(ev.Session, ev.User)

	case session.EventSignedOut:
		p.mu.Lock()
		delete(p.entries, ev.Session.ID)
		p.mu.Unlock()

	case session.EventTokenRefreshed:
		p.mu.Lock()
		if e, ok := p.entries[ev.Session.ID]; ok {
			e.state.Session = ev.Session
			e.expires = ev.Session.ExpiresAt
			// The next State looks the admin flag up again.
			e.resolvedAt = time.Time{}
		}
		p.mu.Unlock()

	case session.EventUserUpdated:
		var sessions []*model.Session
		p.mu.Lock()
		for _, e := range p.entries {
			if e.state.User != nil && e.state.User.ID == ev.User.ID {
				sessions = append(sessions, e.state.Session)
			}
		}
		p.mu.Unlock()

		for _, sess := range sessions {
			p.track(sess, ev.User)
		}
	}
}

// track starts a fresh resolution for sess, replacing any previous state.
func (p *Provider) track(sess *model.Session, user *model.User) {
	e := &entry{state: State{Session: sess, Loading: true}, expires: sess.ExpiresAt}

	p.mu.Lock()
	p.entries[sess.ID] = e
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	p.resolve(ctx, e, sess, user)
}

func (p *Provider) cleanupLoop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.evictExpired(now)
		}
	}
}

func (p *Provider) evictExpired(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, e := range p.entries {
		if now.After(e.expires) {
			delete(p.entries, id)
		}
	}
}
