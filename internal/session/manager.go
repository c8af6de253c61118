// Package session owns the authentication lifecycle. No other component
// reads the persisted store or holds the token; they get value snapshots
// through the event bus or the TokenSource view of the manager.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iraxa/shopclient/internal/domain"
	"github.com/iraxa/shopclient/internal/eventbus"
)

type State int

const (
	StateUnknown State = iota
	StateRestoring
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

var ErrEmptyToken = errors.New("empty token")

// ProfileService fetches the live profile for the current bearer token.
type ProfileService interface {
	Profile(ctx context.Context) (domain.User, error)
}

// Store is the durable token+profile storage.
type Store interface {
	Save(ctx context.Context, session domain.Session) error
	Load(ctx context.Context) (domain.Session, bool, error)
	Clear(ctx context.Context) error
}

type Manager struct {
	// Profiles is set after construction because the API client that
	// implements it needs the manager as its token source.
	Profiles ProfileService

	// Notify surfaces user-facing notices (welcome, logged out). Optional.
	Notify func(title, message string)

	mu      sync.Mutex
	state   State
	session domain.Session

	store Store
	bus   *eventbus.Bus
	log   *slog.Logger
}

func NewManager(store Store, bus *eventbus.Bus, log *slog.Logger) *Manager {
	return &Manager{
		state: StateUnknown,
		store: store,
		bus:   bus,
		log:   log,
	}
}

// Token implements the gateway's token source.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Token
}

// Snapshot returns the session by value; callers cannot mutate the original.
func (m *Manager) Snapshot() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Restore runs once at process start. A persisted token authenticates
// immediately from the cached profile, then the live profile either
// confirms the session or forces it out.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateUnknown {
		m.mu.Unlock()
		return
	}
	m.state = StateRestoring
	m.mu.Unlock()

	cached, ok, err := m.store.Load(ctx)
	if err != nil {
		m.log.Error("session_restore_load_failed", "error", err)
	}
	if err != nil || !ok {
		m.toAnonymous()
		return
	}

	if expired, expErr := tokenExpired(cached.Token); expErr == nil && expired {
		m.log.Info("session_restore_token_expired")
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.log.Error("session_store_clear_failed", "error", clearErr)
		}
		m.toAnonymous()
		return
	}

	m.mu.Lock()
	m.session = cached
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.log.Info("session_restored_from_cache", "user", cached.User.Name)
	m.bus.Publish(eventbus.TopicSessionAcquired, cached)

	m.revalidate(ctx)
}

func (m *Manager) revalidate(ctx context.Context) {
	user, err := m.Profiles.Profile(ctx)
	if err != nil {
		m.log.Warn("session_revalidation_failed", "error", err)
		// The gateway may already have forced the logout on a 401; the
		// live check keeps the side effects single.
		m.HandleUnauthenticated(ctx)
		return
	}

	m.mu.Lock()
	m.session.User = user
	snap := m.session
	m.mu.Unlock()

	if err := m.store.Save(ctx, snap); err != nil {
		m.log.Error("session_store_save_failed", "error", err)
	}
	m.bus.Publish(eventbus.TopicSessionAcquired, snap)
}

// CompleteLogin finishes the external identity handshake: the provider has
// handed over a token, the profile comes from the server.
func (m *Manager) CompleteLogin(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	m.session = domain.Session{Token: token}
	m.mu.Unlock()

	user, err := m.Profiles.Profile(ctx)
	if err != nil {
		m.mu.Lock()
		m.session = domain.Session{}
		m.state = StateAnonymous
		m.mu.Unlock()
		return fmt.Errorf("fetch profile: %w", err)
	}

	m.mu.Lock()
	m.session.User = user
	m.state = StateAuthenticated
	snap := m.session
	m.mu.Unlock()

	if err := m.store.Save(ctx, snap); err != nil {
		m.log.Error("session_store_save_failed", "error", err)
	}

	m.log.Info("login_completed", "user", user.Name)
	m.bus.Publish(eventbus.TopicSessionAcquired, snap)
	m.notify("Welcome", user.Name)
	return nil
}

// Logout clears the session. Safe to call when already anonymous; the
// cleared signal is re-published so observers converge.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.session = domain.Session{}
	m.state = StateAnonymous
	m.mu.Unlock()

	m.clearAndAnnounce(ctx)
}

// HandleUnauthenticated is the gateway's 401 path. Concurrent calls from
// simultaneously failing requests produce exactly one logout: only the call
// that finds a live session acts.
func (m *Manager) HandleUnauthenticated(ctx context.Context) {
	m.mu.Lock()
	if !m.session.Live() {
		m.mu.Unlock()
		return
	}
	m.session = domain.Session{}
	m.state = StateAnonymous
	m.mu.Unlock()

	m.log.Info("session_invalidated_by_server")
	m.clearAndAnnounce(ctx)
}

func (m *Manager) clearAndAnnounce(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error("session_store_clear_failed", "error", err)
	}
	m.bus.Publish(eventbus.TopicSessionCleared, nil)
	m.notify("Logged out", "You have been successfully logged out.")
}

func (m *Manager) toAnonymous() {
	m.mu.Lock()
	m.state = StateAnonymous
	m.mu.Unlock()
}

func (m *Manager) notify(title, message string) {
	if m.Notify != nil {
		m.Notify(title, message)
		return
	}
	m.log.Info("notice", "title", title, "message", message)
}
