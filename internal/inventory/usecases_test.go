package inventory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"gitub.com/matheusmosca/ecommerce-order-engine/pkg/cache"
	"gitub.com/matheusmosca/ecommerce-order-engine/pkg/storage"
)

// memoryCache é um cache em memória para os testes
type memoryCache struct {
	entries map[string][]byte
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) error {
	data, ok := c.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	c.sets++
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

// MockProductRepository simula a persistência de produtos
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetProductForUpdate(ctx context.Context, tx storage.Tx, productID string) (*Product, error) {
	args := m.Called(ctx, tx, productID)
	if p, ok := args.Get(0).(*Product); ok && p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) ReserveStock(ctx context.Context, tx storage.Tx, productID string, quantity int) error {
	args := m.Called(ctx, tx, productID, quantity)
	return args.Error(0)
}

func (m *MockProductRepository) RestoreStock(ctx context.Context, tx storage.Tx, productID string, quantity int) (bool, error) {
	args := m.Called(ctx, tx, productID, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) GetProduct(ctx context.Context, productID string) (*Product, error) {
	args := m.Called(ctx, productID)
	if p, ok := args.Get(0).(*Product); ok && p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProductRepository) ListProducts(ctx context.Context) ([]Product, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]Product); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestHasStock(t *testing.T) {
	p := &Product{StockQuantity: 3}

	assert.True(t, p.HasStock(3))
	assert.True(t, p.HasStock(1))
	assert.False(t, p.HasStock(4))
}

func TestGetProduct_CacheAside(t *testing.T) {
	// Arrange
	repo := new(MockProductRepository)
	c := newMemoryCache()
	uc := NewProductUseCase(repo, c)
	ctx := context.Background()

	stored := &Product{
		ID:            "prod-1",
		Name:          "Keyboard",
		Price:         decimal.RequireFromString("120.00"),
		StockQuantity: 50,
		IsAvailable:   true,
	}
	repo.On("GetProduct", ctx, "prod-1").Return(stored, nil).Once()

	// Act: primeira leitura vai ao banco, segunda vem do cache
	first, err := uc.GetProduct(ctx, "prod-1")
	assert.NoError(t, err)
	second, err := uc.GetProduct(ctx, "prod-1")
	assert.NoError(t, err)

	// Assert
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Price.Equal(stored.Price))
	assert.Equal(t, 1, c.sets)
	repo.AssertNumberOfCalls(t, "GetProduct", 1)
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := new(MockProductRepository)
	uc := NewProductUseCase(repo, newMemoryCache())
	ctx := context.Background()

	repo.On("GetProduct", ctx, "ghost").Return(nil, ErrProductNotFound)

	p, err := uc.GetProduct(ctx, "ghost")

	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestInvalidateProduct_EvictsEntry(t *testing.T) {
	repo := new(MockProductRepository)
	c := newMemoryCache()
	uc := NewProductUseCase(repo, c)
	ctx := context.Background()

	stored := &Product{ID: "prod-1", Name: "Keyboard", Price: decimal.Zero}
	repo.On("GetProduct", ctx, "prod-1").Return(stored, nil)

	_, err := uc.GetProduct(ctx, "prod-1")
	assert.NoError(t, err)
	assert.Contains(t, c.entries, "product:prod-1")

	// Act
	uc.InvalidateProduct(ctx, "prod-1")

	// Assert: próxima leitura volta ao banco
	assert.NotContains(t, c.entries, "product:prod-1")
	_, err = uc.GetProduct(ctx, "prod-1")
	assert.NoError(t, err)
	repo.AssertNumberOfCalls(t, "GetProduct", 2)
}

func TestNewPostgresProductRepository(t *testing.T) {
	repo := NewPostgresProductRepository(nil)

	assert.NotNil(t, repo)
	assert.IsType(t, &PostgresProductRepository{}, repo)
}
