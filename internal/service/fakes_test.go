package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"upgrade-service/internal/models"
	"upgrade-service/internal/store"

	"github.com/stretchr/testify/mock"
)

type memCatalogStore struct {
	mu          sync.Mutex
	rows        map[int64]models.UpgradeOption
	listCalls   int
	upsertCalls int
	afterList   func()
}

func newMemCatalogStore(rows ...models.UpgradeOption) *memCatalogStore {
	s := &memCatalogStore{rows: map[int64]models.UpgradeOption{}}
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	return s
}

func (s *memCatalogStore) ListUpgradeOptions(ctx context.Context) ([]models.UpgradeOption, error) {
	s.mu.Lock()
	s.listCalls++
	out := make([]models.UpgradeOption, 0, len(s.rows))
	for _, r := range s.rows {
		if r.Active {
			out = append(out, r)
		}
	}
	hook := s.afterList
	s.afterList = nil
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (s *memCatalogStore) UpsertUpgradeOptions(ctx context.Context, options []models.UpgradeOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	for _, o := range options {
		s.rows[o.ID] = o
	}
	return nil
}

func (s *memCatalogStore) DeactivateUpgradeOption(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Active = false
	s.rows[id] = r
	return nil
}

type memCatalogCache struct {
	rows        []models.UpgradeOption
	cached      bool
	version     int64
	invalidated int
}

func (c *memCatalogCache) GetCatalog(ctx context.Context) ([]models.UpgradeOption, bool, error) {
	return c.rows, c.cached, nil
}

func (c *memCatalogCache) CatalogVersion(ctx context.Context) (int64, error) {
	return c.version, nil
}

func (c *memCatalogCache) SetCatalog(ctx context.Context, version int64, rows []models.UpgradeOption) (bool, error) {
	if version != c.version {
		return false, nil
	}
	c.rows = rows
	c.cached = true
	return true, nil
}

func (c *memCatalogCache) InvalidateCatalog(ctx context.Context) error {
	c.rows = nil
	c.cached = false
	c.version++
	c.invalidated++
	return nil
}

type memProductStore struct {
	products map[int64]*models.Product
}

func (s *memProductStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memProductStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memProductStore) SetPriceOverrides(ctx context.Context, productID int64, overrides models.PriceOverrides) error {
	p, ok := s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	p.PriceOverrides = overrides
	return nil
}

type memOrderStore struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*models.Order
	items  map[int64][]models.OrderItem
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: map[int64]*models.Order{}, items: map[int64][]models.OrderItem{}}
}

func (s *memOrderStore) CreateOrderWithItem(ctx context.Context, order *models.Order, item *models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	order.ID = s.nextID
	order.CreatedAt = time.Now()
	item.OrderID = order.ID
	item.ID = s.nextID

	cp := *order
	s.orders[order.ID] = &cp
	s.items[order.ID] = append(s.items[order.ID], *item)
	return nil
}

func (s *memOrderStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memOrderStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memOrderStore) GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.SessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memOrderStore) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[orderID], nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.ConfigurationSession
	locks    map[string]bool
	saveErr  error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[string]models.ConfigurationSession{}, locks: map[string]bool{}}
}

func (s *memSessionStore) SaveSession(ctx context.Context, session *models.ConfigurationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *memSessionStore) GetSession(ctx context.Context, id string) (*models.ConfigurationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *memSessionStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memSessionStore) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] {
		return false, nil
	}
	s.locks[key] = true
	return true, nil
}

func (s *memSessionStore) ReleaseLock(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCatalogUpdated(ctx context.Context, event *models.CatalogUpdatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) PublishConfigurationFinalized(ctx context.Context, event *models.ConfigurationFinalizedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// catalogRows is a small storefront catalog: two DDR4 RAM upgrades, one
// RAM upgrade gated to 10th gen and newer, one too small to offer, and two
// storage upgrades.
func catalogRows() []models.UpgradeOption {
	return []models.UpgradeOption{
		{ID: 1, Kind: "ram", Size: "16GB", Label: "16GB DDR4", Price: 4000, Applicability: "ddr4", Active: true},
		{ID: 2, Kind: "ram", Size: "32GB", Label: "32GB DDR4", Price: 9000, Applicability: "ddr4", Active: true},
		{ID: 3, Kind: "ram", Size: "8GB", Label: "8GB", Price: 2000, Applicability: "all", Active: true},
		{ID: 4, Kind: "ram", Size: "64GB", Label: "64GB DDR4", Price: 20000, Applicability: "all", GenMin: intPtr(10), Active: true},
		{ID: 10, Kind: "ssd", Size: "512GB", Label: "512GB", Price: 3000, Applicability: "laptop", Active: true},
		{ID: 11, Kind: "ssd", Size: "1TB", Label: "1TB", Price: 6500, Applicability: "all", Active: true},
	}
}

func laptopProduct() *models.Product {
	return &models.Product{
		ID:             7,
		Name:           "ThinkPad T480",
		Kind:           "laptop",
		RAM:            "8GB DDR4",
		Storage:        "256GB SSD",
		Processor:      "Intel Core i5 8th Gen",
		Price:          40000,
		PriceOverrides: models.PriceOverrides{"ram-2": 8500},
	}
}

type fixture struct {
	products  *memProductStore
	catalog   *memCatalogStore
	cache     *memCatalogCache
	orders    *memOrderStore
	sessions  *memSessionStore
	publisher *mockPublisher

	catalogSvc *CatalogService
	configSvc  *ConfiguratorService
}

func newFixture() *fixture {
	f := &fixture{
		products:  &memProductStore{products: map[int64]*models.Product{7: laptopProduct()}},
		catalog:   newMemCatalogStore(catalogRows()...),
		cache:     &memCatalogCache{},
		orders:    newMemOrderStore(),
		sessions:  newMemSessionStore(),
		publisher: &mockPublisher{},
	}
	f.catalogSvc = NewCatalogService(f.catalog, f.cache, f.publisher)
	f.configSvc = NewConfiguratorService(f.products, f.catalogSvc, f.sessions, f.orders, f.publisher, "SSD")
	return f
}
