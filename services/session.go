package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"foodies-telegram/logger"
	"foodies-telegram/models"

	"golang.org/x/sync/errgroup"
)

type RegionSource interface {
	Regions(ctx context.Context) ([]models.Region, error)
}

// SessionDeps are the collaborators shared by every customer session.
type SessionDeps struct {
	Catalog     CatalogSource
	Regions     RegionSource
	Cart        CartSyncer
	Credentials CredentialStore
	Log         *slog.Logger
}

// Session is one customer's storefront: the catalog snapshot, the province list and the cart.
type Session struct {
	UserID     int64
	Quantities *QuantityStore

	mu      sync.RWMutex
	catalog []models.FoodItem
	regions []models.Region
}

// Bootstrap fetches the catalog and the regions concurrently and, when a credential is stored
// for the user, loads the cart. Every failure is logged and leaves the affected part empty.
func Bootstrap(ctx context.Context, userID int64, deps SessionDeps) *Session {
	log := logger.OrDefault(deps.Log).With("user_id", userID)
	s := &Session{UserID: userID, Quantities: NewQuantityStore(deps.Cart, log)}

	var g errgroup.Group
	g.Go(func() error {
		foods, err := deps.Catalog.Foods(ctx)
		if err != nil {
			log.Warn("catalog fetch failed", "error", err)
			return nil
		}
		s.SetCatalog(foods)
		return nil
	})
	g.Go(func() error {
		if deps.Regions == nil {
			return nil
		}
		regions, err := deps.Regions.Regions(ctx)
		if err != nil {
			log.Warn("region fetch failed", "error", err)
			return nil
		}
		s.mu.Lock()
		s.regions = regions
		s.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		if deps.Credentials == nil {
			return nil
		}
		token, err := deps.Credentials.Token(ctx, userID)
		if err != nil {
			log.Warn("credential lookup failed", "error", err)
			return nil
		}
		if token == "" {
			return nil
		}
		s.Quantities.SetCredential(token)
		_ = absorb(log, OpCartLoad, s.Quantities.Load(ctx, token))
		return nil
	})
	_ = g.Wait()

	return s
}

func (s *Session) Catalog() []models.FoodItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

func (s *Session) SetCatalog(foods []models.FoodItem) {
	s.mu.Lock()
	s.catalog = foods
	s.mu.Unlock()
}

func (s *Session) Regions() []models.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regions
}

// Lines joins the current catalog with the current cart.
func (s *Session) Lines() ([]CartLine, models.QuantityMap) {
	q := s.Quantities.Snapshot()
	return CartLines(s.Catalog(), q), q
}

// Categories returns "All" followed by the distinct catalog categories in catalog order.
func Categories(catalog []models.FoodItem) []string {
	out := []string{models.CategoryAll}
	seen := map[string]bool{}
	for _, f := range catalog {
		if f.Category == "" || seen[f.Category] {
			continue
		}
		seen[f.Category] = true
		out = append(out, f.Category)
	}
	return out
}

// FilterFoods keeps the items of category ("All" or empty keeps every category) whose name
// contains search, case-insensitively.
func FilterFoods(catalog []models.FoodItem, category, search string) []models.FoodItem {
	search = strings.ToLower(strings.TrimSpace(search))
	var out []models.FoodItem
	for _, f := range catalog {
		if category != "" && category != models.CategoryAll && f.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(f.Name), search) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Sessions holds the live session of each Telegram user.
type Sessions struct {
	deps SessionDeps

	mu     sync.Mutex
	byUser map[int64]*Session
}

func NewSessions(deps SessionDeps) *Sessions {
	return &Sessions{deps: deps, byUser: make(map[int64]*Session)}
}

// Get returns the user's session, bootstrapping it on first use.
func (m *Sessions) Get(ctx context.Context, userID int64) *Session {
	m.mu.Lock()
	s, ok := m.byUser[userID]
	m.mu.Unlock()
	if ok {
		return s
	}

	fresh := Bootstrap(ctx, userID, m.deps)

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byUser[userID]; ok {
		return s
	}
	m.byUser[userID] = fresh
	return fresh
}

// Login stores the credential and loads the user's cart from the backend. Only a failure to
// store the credential is returned; a failed cart load is logged and the local cart is kept.
func (m *Sessions) Login(ctx context.Context, userID int64, token string) error {
	if m.deps.Credentials != nil {
		if err := m.deps.Credentials.SaveToken(ctx, userID, token); err != nil {
			return fmt.Errorf("save credential: %w", err)
		}
	}
	s := m.Get(ctx, userID)
	s.Quantities.SetCredential(token)
	_ = absorb(logger.OrDefault(m.deps.Log), OpCartLoad, s.Quantities.Load(ctx, token), "user_id", userID)
	return nil
}

// Logout forgets the credential; the session drops back to an empty guest cart.
func (m *Sessions) Logout(ctx context.Context, userID int64) error {
	if m.deps.Credentials != nil {
		if err := m.deps.Credentials.DeleteToken(ctx, userID); err != nil {
			return fmt.Errorf("delete credential: %w", err)
		}
	}
	s := m.Get(ctx, userID)
	s.Quantities.SetCredential("")
	s.Quantities.Reset()
	return nil
}

// Wait blocks until every session's background cart calls have finished.
func (m *Sessions) Wait() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.byUser))
	for _, s := range m.byUser {
		all = append(all, s)
	}
	m.mu.Unlock()
	for _, s := range all {
		s.Quantities.Wait()
	}
}

type catalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RefreshCatalog refetches the catalog into s, dropping any cached copy first.
func (m *Sessions) RefreshCatalog(ctx context.Context, s *Session) error {
	if c, ok := m.deps.Catalog.(catalogInvalidator); ok {
		if err := c.Invalidate(ctx); err != nil {
			logger.OrDefault(m.deps.Log).Warn("catalog cache invalidate failed", "error", err)
		}
	}
	foods, err := m.deps.Catalog.Foods(ctx)
	if err != nil {
		return err
	}
	s.SetCatalog(foods)
	return nil
}
