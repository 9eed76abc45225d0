package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.NewStore(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedProduct(t *testing.T, s *store.Store, name string, stock ...int) *models.Product {
	t.Helper()
	ctx := context.Background()

	p := &models.Product{
		Name:      name,
		BasePrice: decimal.RequireFromString("50"),
		Season:    models.DefaultSeason,
		Gender:    models.DefaultGender,
		IsActive:  true,
	}
	require.NoError(t, s.CreateProduct(ctx, p))

	variants := make([]models.ProductVariant, len(stock))
	for i, qty := range stock {
		variants[i] = models.ProductVariant{Size: fmt.Sprintf("S%d", i), Color: "black", Quantity: qty}
	}
	require.NoError(t, s.ReplaceVariants(ctx, p.ID, variants))
	p.Variants = variants
	return p
}

func seedCustomer(t *testing.T, s *store.Store, name string, points int) *models.Customer {
	t.Helper()

	c := &models.Customer{Name: name, LoyaltyPoints: points, TotalSpent: decimal.Zero}
	require.NoError(t, s.CreateCustomer(context.Background(), c))
	return c
}

func variantStock(t *testing.T, s *store.Store, id int64) int {
	t.Helper()

	v, err := s.GetVariantForUpdate(context.Background(), id)
	require.NoError(t, err)
	return v.Quantity
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func int64Ptr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

type fakeCache struct {
	mu          sync.Mutex
	products    map[int64]*models.Product
	active      []models.Product
	hasActive   bool
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{products: make(map[int64]*models.Product)}
}

func (c *fakeCache) GetProduct(_ context.Context, id int64) (*models.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	return p, ok
}

func (c *fakeCache) SetProduct(_ context.Context, product *models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[product.ID] = product
}

func (c *fakeCache) GetActiveProducts(context.Context) ([]models.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.hasActive
}

func (c *fakeCache) SetActiveProducts(_ context.Context, products []models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active, c.hasActive = products, true
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.products, id)
	}
	c.active, c.hasActive = nil, false
	c.invalidated = append(c.invalidated, ids...)
}

type fakePublisher struct {
	mu        sync.Mutex
	sales     []*models.SaleCompletedEvent
	products  []*models.ProductChangedEvent
	customers []*models.CustomerChangedEvent
	err       error
}

func (p *fakePublisher) PublishSaleCompleted(_ context.Context, e *models.SaleCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sales = append(p.sales, e)
	return p.err
}

func (p *fakePublisher) PublishProductChanged(_ context.Context, e *models.ProductChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.products = append(p.products, e)
	return p.err
}

func (p *fakePublisher) PublishCustomerChanged(_ context.Context, e *models.CustomerChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customers = append(p.customers, e)
	return p.err
}

// fixedReceipts hands out numbers from a list, repeating the last one
type fixedReceipts struct {
	mu      sync.Mutex
	numbers []string
	next    int
}

func (r *fixedReceipts) NextReceiptNumber(context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.numbers[r.next]
	if r.next < len(r.numbers)-1 {
		r.next++
	}
	return n
}

// receiptFunc adapts a function to ReceiptNumberer
type receiptFunc func(ctx context.Context) string

func (f receiptFunc) NextReceiptNumber(ctx context.Context) string {
	return f(ctx)
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
	ttls map[string]time.Duration
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *memoryIdempotency) ClaimIdempotencyKey(_ context.Context, key string, ttl time.Duration) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.keys[key]; ok {
		return false, v, nil
	}
	m.keys[key] = "pending"
	m.ttls[key] = ttl
	return true, "", nil
}

func (m *memoryIdempotency) CompleteIdempotencyKey(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memoryIdempotency) ttl(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

func (m *memoryIdempotency) ReleaseIdempotencyKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	delete(m.ttls, key)
	return nil
}
