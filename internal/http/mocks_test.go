package http

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mscykler/storefront/internal/cart"
	"github.com/mscykler/storefront/internal/catalog"
	"github.com/mscykler/storefront/internal/domain"
	"github.com/mscykler/storefront/internal/orders"
	"github.com/mscykler/storefront/internal/payment"
)

// in-memory cart store shared by repo and cache mocks

type memCartRepo struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[string]*domain.Cart)}
}

func (r *memCartRepo) GetCart(_ context.Context, sessionID string) (*domain.Cart, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	c, ok := r.carts[sessionID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	return c, nil
}

func (r *memCartRepo) UpsertCart(_ context.Context, c *domain.Cart) error {
	r.m.Lock()
	defer r.m.Unlock()
	r.carts[c.SessionID] = c
	return nil
}

func (r *memCartRepo) DeleteCart(_ context.Context, sessionID string) error {
	r.m.Lock()
	defer r.m.Unlock()
	delete(r.carts, sessionID)
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.Cart, error) { return nil, cart.ErrCacheMiss }
func (noopCache) Set(context.Context, string, *domain.Cart) error   { return nil }
func (noopCache) Delete(context.Context, string) error              { return nil }

// fixed-inventory catalog backend

type memCatalogRepo struct {
	products map[domain.ProductType]map[int64]*domain.Product
	nextID   int64
	err      error
}

func newMemCatalogRepo() *memCatalogRepo {
	return &memCatalogRepo{
		products: map[domain.ProductType]map[int64]*domain.Product{
			domain.ProductTypeBike: {},
			domain.ProductTypePart: {},
		},
		nextID: 1,
	}
}

func (r *memCatalogRepo) add(typ domain.ProductType, p *domain.Product) *domain.Product {
	if p.ID == 0 {
		p.ID = r.nextID
		r.nextID++
	}
	r.products[typ][p.ID] = p
	return p
}

func (r *memCatalogRepo) ListProducts(_ context.Context, typ domain.ProductType, category string, _ catalog.Sort) ([]*domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*domain.Product
	for _, p := range r.products[typ] {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memCatalogRepo) GetProduct(_ context.Context, typ domain.ProductType, id int64) (*domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.products[typ][id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (r *memCatalogRepo) GetRelated(_ context.Context, typ domain.ProductType, category string, excludeID int64, limit int) ([]*domain.Product, error) {
	var out []*domain.Product
	for _, p := range r.products[typ] {
		if p.Category == category && p.ID != excludeID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memCatalogRepo) SearchByName(_ context.Context, typ domain.ProductType, _ string) ([]*domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*domain.Product
	for _, p := range r.products[typ] {
		out = append(out, p)
	}
	return out, nil
}

func (r *memCatalogRepo) ListCategories(_ context.Context, typ domain.ProductType) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range r.products[typ] {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out, nil
}

func (r *memCatalogRepo) CreateProduct(_ context.Context, typ domain.ProductType, p *domain.Product) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.add(typ, p).ID, nil
}

func (r *memCatalogRepo) UpdateProduct(_ context.Context, typ domain.ProductType, p *domain.Product) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.products[typ][p.ID]; !ok {
		return catalog.ErrProductNotFound
	}
	r.products[typ][p.ID] = p
	return nil
}

func (r *memCatalogRepo) DeleteProduct(_ context.Context, typ domain.ProductType, id int64) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.products[typ][id]; !ok {
		return catalog.ErrProductNotFound
	}
	delete(r.products[typ], id)
	return nil
}

func (r *memCatalogRepo) Close() error { return nil }

// orders backend keyed by provider session id

type memOrdersRepo struct {
	m         sync.RWMutex
	bySession map[string]*domain.Order
	createErr error
}

func newMemOrdersRepo() *memOrdersRepo {
	return &memOrdersRepo{bySession: make(map[string]*domain.Order)}
}

func (r *memOrdersRepo) CreateOrder(_ context.Context, order *domain.Order) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.bySession[order.ProviderSessionID]; ok {
		return orders.ErrDuplicateSession
	}
	r.bySession[order.ProviderSessionID] = order
	return nil
}

func (r *memOrdersRepo) GetOrderBySessionID(_ context.Context, providerSessionID string) (*domain.Order, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	o, ok := r.bySession[providerSessionID]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return o, nil
}

func (r *memOrdersRepo) CompleteOrder(_ context.Context, id uuid.UUID) error {
	r.m.Lock()
	defer r.m.Unlock()
	for _, o := range r.bySession {
		if o.ID == id {
			o.Status = domain.OrderStatusCompleted
			return nil
		}
	}
	return nil
}

func (r *memOrdersRepo) GetUnprocessedEvents(context.Context, int) ([]*orders.OutboxEvent, error) {
	return nil, nil
}

func (r *memOrdersRepo) MarkEventAsProcessed(context.Context, int64) error { return nil }

func (r *memOrdersRepo) Close() error { return nil }

type stubPayments struct {
	session *payment.Session
	err     error
}

func (s *stubPayments) CreateSession(_ context.Context, _ string, _ []payment.LineItem) (*payment.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

// withSession stamps a cart session id onto the request context the way
// SessionMiddleware would.
func withSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, "session_id", sessionID)
}
