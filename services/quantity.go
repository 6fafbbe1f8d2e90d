package services

import (
	"context"
	"log/slog"
	"sync"

	"foodies-telegram/logger"
	"foodies-telegram/models"
)

// CartSyncer is the backend cart API.
type CartSyncer interface {
	GetCart(ctx context.Context, token string) (models.QuantityMap, error)
	AddToCart(ctx context.Context, foodID, token string) error
	RemoveFromCart(ctx context.Context, foodID, token string) error
	ClearCart(ctx context.Context, token string) error
}

// QuantityStore is the local projection of the server cart: food id -> quantity >= 1.
//
// Increase is optimistic (local first, then remote), Decrease is pessimistic-ordered
// (remote first, then local regardless of outcome). Remote calls run in the background so
// neither mutator blocks its caller; Wait joins them. Neither rolls back on failure; the
// projection only converges with the server on Load. Without a credential the store runs
// in guest mode and never calls the backend from its mutators.
type QuantityStore struct {
	cart CartSyncer
	log  *slog.Logger
	wg   sync.WaitGroup

	mu         sync.Mutex
	credential string
	items      models.QuantityMap
}

func NewQuantityStore(cart CartSyncer, log *slog.Logger) *QuantityStore {
	return &QuantityStore{
		cart:  cart,
		log:   logger.OrDefault(log),
		items: make(models.QuantityMap),
	}
}

func (s *QuantityStore) SetCredential(token string) {
	s.mu.Lock()
	s.credential = token
	s.mu.Unlock()
}

func (s *QuantityStore) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Increase adds one unit locally and returns; the backend is told in the background.
func (s *QuantityStore) Increase(ctx context.Context, foodID string) {
	s.mu.Lock()
	s.items[foodID]++
	token := s.credential
	s.mu.Unlock()

	if token == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = absorb(s.log, OpCartIncrease, s.cart.AddToCart(ctx, foodID, token), "food_id", foodID)
	}()
}

// Decrease tells the backend first, then removes one unit locally whatever the backend said.
// With a credential both steps run in the background; done (may be nil) is called once the
// local map has changed. In guest mode everything happens before Decrease returns.
func (s *QuantityStore) Decrease(ctx context.Context, foodID string, done func()) {
	token := s.Credential()
	if token == "" {
		s.decrement(foodID)
		if done != nil {
			done()
		}
		return
	}

	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = absorb(s.log, OpCartDecrease, s.cart.RemoveFromCart(ctx, foodID, token), "food_id", foodID)
		s.decrement(foodID)
		if done != nil {
			done()
		}
	}()
}

func (s *QuantityStore) decrement(foodID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items[foodID] > 1 {
		s.items[foodID]--
	} else {
		delete(s.items, foodID)
	}
}

// Wait blocks until every background cart call has finished.
func (s *QuantityStore) Wait() {
	s.wg.Wait()
}

// RemoveAll drops the line locally only.
func (s *QuantityStore) RemoveAll(foodID string) {
	s.mu.Lock()
	delete(s.items, foodID)
	s.mu.Unlock()
}

// Load replaces the local map with the backend's. On error the local map is left as is.
func (s *QuantityStore) Load(ctx context.Context, token string) error {
	items, err := s.cart.GetCart(ctx, token)
	if err != nil {
		return err
	}
	fresh := make(models.QuantityMap, len(items))
	for id, n := range items {
		if n > 0 {
			fresh[id] = n
		}
	}
	s.mu.Lock()
	s.items = fresh
	s.mu.Unlock()
	return nil
}

// Reset empties the local map without touching the backend.
func (s *QuantityStore) Reset() {
	s.mu.Lock()
	s.items = make(models.QuantityMap)
	s.mu.Unlock()
}

func (s *QuantityStore) Quantity(foodID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[foodID]
}

// Snapshot returns a copy of the current map.
func (s *QuantityStore) Snapshot() models.QuantityMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(models.QuantityMap, len(s.items))
	for id, n := range s.items {
		out[id] = n
	}
	return out
}

// Count is the number of distinct foods in the cart.
func (s *QuantityStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
