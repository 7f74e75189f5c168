package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

// CartView is a read-only copy of a cart handed to transports.
type CartView struct {
	ID        string            `json:"cart_id"`
	Lines     []domain.CartLine `json:"lines"`
	Total     int64             `json:"total_cents"`
	CreatedAt time.Time         `json:"created_at"`
}

func viewOf(c *domain.Cart) CartView {
	return CartView{ID: c.ID, Lines: c.Lines(), Total: c.Total(), CreatedAt: c.CreatedAt}
}

type cartSession struct {
	mu     sync.Mutex
	owner  string
	cart   *domain.Cart
	closed bool
}

// CartService owns the checkout sessions. Each cart lives from Open until a
// successful checkout or Abandon and is only visible to the user who opened it.
type CartService struct {
	catalog  *CatalogService
	checkout *CheckoutService

	mu       sync.Mutex
	sessions map[string]*cartSession
}

func NewCartService(catalog *CatalogService, checkout *CheckoutService) *CartService {
	return &CartService{
		catalog:  catalog,
		checkout: checkout,
		sessions: make(map[string]*cartSession),
	}
}

func (s *CartService) Open(who domain.Identity) CartView {
	cart := domain.NewCart(uuid.NewString(), time.Now().UTC())

	s.mu.Lock()
	s.sessions[cart.ID] = &cartSession{owner: who.UserID, cart: cart}
	s.mu.Unlock()

	return viewOf(cart)
}

// acquire returns the locked session; callers must unlock it.
func (s *CartService) acquire(who domain.Identity, cartID string) (*cartSession, error) {
	s.mu.Lock()
	sess, ok := s.sessions[cartID]
	s.mu.Unlock()
	if !ok || sess.owner != who.UserID {
		return nil, ErrCartNotFound
	}

	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil, ErrCartNotFound
	}
	return sess, nil
}

func (s *CartService) drop(sess *cartSession) {
	sess.closed = true
	s.mu.Lock()
	delete(s.sessions, sess.cart.ID)
	s.mu.Unlock()
}

func (s *CartService) Get(who domain.Identity, cartID string) (CartView, error) {
	sess, err := s.acquire(who, cartID)
	if err != nil {
		return CartView{}, err
	}
	defer sess.mu.Unlock()
	return viewOf(sess.cart), nil
}

// AddItem freezes the snapshot price of itemID into the cart.
func (s *CartService) AddItem(ctx context.Context, who domain.Identity, cartID, itemID string, quantity int) (CartView, error) {
	item, err := s.catalog.Item(ctx, itemID)
	if err != nil {
		return CartView{}, err
	}

	sess, err := s.acquire(who, cartID)
	if err != nil {
		return CartView{}, err
	}
	defer sess.mu.Unlock()

	if err := sess.cart.AddItem(item, quantity); err != nil {
		return CartView{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return viewOf(sess.cart), nil
}

func (s *CartService) AdjustQuantity(who domain.Identity, cartID, itemID string, delta int) (CartView, error) {
	sess, err := s.acquire(who, cartID)
	if err != nil {
		return CartView{}, err
	}
	defer sess.mu.Unlock()

	if err := sess.cart.AdjustQuantity(itemID, delta); err != nil {
		return CartView{}, err
	}
	return viewOf(sess.cart), nil
}

func (s *CartService) RemoveItem(who domain.Identity, cartID, itemID string) (CartView, error) {
	sess, err := s.acquire(who, cartID)
	if err != nil {
		return CartView{}, err
	}
	defer sess.mu.Unlock()

	sess.cart.RemoveItem(itemID)
	return viewOf(sess.cart), nil
}

// Abandon destroys the session without touching the stores.
func (s *CartService) Abandon(who domain.Identity, cartID string) error {
	sess, err := s.acquire(who, cartID)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()

	sess.cart.Clear()
	s.drop(sess)
	return nil
}

// Checkout commits the cart. The session stays locked for the whole commit so
// a cashier's double submit waits and then sees ErrDuplicateCheckout or ErrCartNotFound.
func (s *CartService) Checkout(ctx context.Context, who domain.Identity, cartID string) (*Confirmation, error) {
	sess, err := s.acquire(who, cartID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	conf, err := s.checkout.Checkout(ctx, sess.cart)
	switch {
	case err == nil:
		sess.cart.Clear()
		s.drop(sess)
		s.refresh(ctx)
	case errors.Is(err, ErrPartialCommit):
		s.refresh(ctx)
	}
	return conf, err
}

func (s *CartService) refresh(ctx context.Context) {
	if _, err := s.catalog.Refresh(context.WithoutCancel(ctx)); err != nil {
		log.Printf("cart: snapshot refresh after checkout failed: %v", err)
	}
}

// Sessions reports the number of open carts.
func (s *CartService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
