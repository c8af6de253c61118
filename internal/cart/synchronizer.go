// Package cart keeps the local cart snapshot in step with the remote cart.
// The server response after every mutation is the authoritative state; the
// local copy is never patched from predicted values.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iraxa/shopclient/internal/api"
	"github.com/iraxa/shopclient/internal/domain"
	"github.com/iraxa/shopclient/internal/eventbus"
	"github.com/iraxa/shopclient/internal/session"
)

type remoteAPI interface {
	FetchCart(ctx context.Context) (domain.Cart, error)
	AddToCart(ctx context.Context, req api.AddItemRequest) (domain.Cart, error)
	UpdateQuantity(ctx context.Context, itemID string, quantity uint) (domain.Cart, error)
	RemoveItem(ctx context.Context, itemID string) (domain.Cart, error)
}

type sessionState interface {
	State() session.State
}

type Synchronizer struct {
	mu        sync.Mutex
	cart      domain.Cart
	itemLocks map[string]*sync.Mutex

	api      remoteAPI
	sessions sessionState
	bus      *eventbus.Bus
	log      *slog.Logger
	unsubs   []func()
}

// New wires the synchronizer to the bus: an acquired session triggers a full
// load, a cleared session empties the local copy.
func New(remote remoteAPI, sessions sessionState, bus *eventbus.Bus, log *slog.Logger) *Synchronizer {
	s := &Synchronizer{
		itemLocks: make(map[string]*sync.Mutex),
		api:       remote,
		sessions:  sessions,
		bus:       bus,
		log:       log,
	}

	s.unsubs = append(s.unsubs,
		bus.Subscribe(eventbus.TopicSessionAcquired, func(any) {
			if err := s.LoadForSession(context.Background()); err != nil {
				log.Warn("cart_load_on_session_failed", "error", err)
			}
		}),
		bus.Subscribe(eventbus.TopicSessionCleared, func(any) {
			s.reset()
		}),
	)
	return s
}

// Close tears down the bus subscriptions; no publish after Close reaches
// this synchronizer.
func (s *Synchronizer) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
}

// Snapshot returns a value copy of the current cart.
func (s *Synchronizer) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// LoadForSession replaces the local cart with the remote one. While the
// session is still restoring the load is deferred and re-run when the
// session settles; a failed fetch leaves the previous snapshot untouched.
func (s *Synchronizer) LoadForSession(ctx context.Context) error {
	// A load racing ahead of session restoration would run against a stale
	// or absent token; the session-acquired subscription re-runs it once
	// restoration settles.
	if s.sessions != nil && s.sessions.State() == session.StateRestoring {
		s.log.Debug("cart_load_deferred_until_session_settles")
		return nil
	}

	fetched, err := s.api.FetchCart(ctx)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	s.replace(fetched)
	return nil
}

func (s *Synchronizer) Add(ctx context.Context, req api.AddItemRequest) error {
	if req.Quantity == 0 {
		return nil
	}

	lock := s.itemLock("product:" + req.ProductID)
	lock.Lock()
	defer lock.Unlock()

	updated, err := s.api.AddToCart(ctx, req)
	if err != nil {
		s.reconcile(ctx)
		return fmt.Errorf("add to cart: %w", err)
	}

	s.replace(updated)
	return nil
}

func (s *Synchronizer) Remove(ctx context.Context, itemID string) error {
	lock := s.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	updated, err := s.api.RemoveItem(ctx, itemID)
	if err != nil {
		s.reconcile(ctx)
		return fmt.Errorf("remove from cart: %w", err)
	}

	s.replace(updated)
	return nil
}

// SetQuantity pushes a new quantity for one line. Non-positive quantities
// are rejected locally with no request and no state change.
func (s *Synchronizer) SetQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return nil
	}

	lock := s.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	updated, err := s.api.UpdateQuantity(ctx, itemID, uint(quantity))
	if err != nil {
		s.reconcile(ctx)
		return fmt.Errorf("update quantity: %w", err)
	}

	s.replace(updated)
	return nil
}

// itemLock serializes mutations per cart line so overlapping writes for the
// same item cannot land out of order.
func (s *Synchronizer) itemLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.itemLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.itemLocks[key] = lock
	}
	return lock
}

func (s *Synchronizer) replace(c domain.Cart) {
	s.mu.Lock()
	s.cart = c
	snap := s.cart.Clone()
	s.mu.Unlock()

	s.bus.Publish(eventbus.TopicCartChanged, snap)
}

// reconcile refetches the whole cart after a failed mutation instead of
// guessing what the server applied. A failed refetch keeps the previous
// snapshot; staleness is repaired on the next successful call.
func (s *Synchronizer) reconcile(ctx context.Context) {
	fetched, err := s.api.FetchCart(ctx)
	if err != nil {
		s.log.Warn("cart_reconcile_failed", "error", err)
		return
	}
	s.replace(fetched)
}

func (s *Synchronizer) reset() {
	s.mu.Lock()
	s.cart = domain.Cart{}
	s.mu.Unlock()

	s.bus.Publish(eventbus.TopicCartChanged, domain.Cart{})
}
