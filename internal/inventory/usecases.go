package inventory

import (
	"context"
	"errors"
	"log"
	"time"

	"gitub.com/matheusmosca/ecommerce-order-engine/pkg/cache"
)

const productCacheTTL = 5 * time.Minute

func productCacheKey(productID string) string {
	return "product:" + productID
}

// ProductUseCase encapsula o caminho de leitura de produtos com cache
type ProductUseCase struct {
	repository Repository
	cache      cache.Cache
}

func NewProductUseCase(repository Repository, c cache.Cache) *ProductUseCase {
	return &ProductUseCase{
		repository: repository,
		cache:      c,
	}
}

// GetProduct busca um produto, consultando o cache antes do banco.
// O cache serve apenas DTOs de leitura; a decisão de reserva de estoque
// nunca passa por aqui.
func (uc *ProductUseCase) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var cached Product
	err := uc.cache.Get(ctx, productCacheKey(productID), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Printf("⚠️ Cache read failed for %s: %v", productID, err)
	}

	product, err := uc.repository.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := uc.cache.Set(ctx, productCacheKey(productID), product, productCacheTTL); err != nil {
		log.Printf("⚠️ Cache write failed for %s: %v", productID, err)
	}
	return product, nil
}

// ListProducts lista o catálogo direto do banco
func (uc *ProductUseCase) ListProducts(ctx context.Context) ([]Product, error) {
	return uc.repository.ListProducts(ctx)
}

// InvalidateProduct remove a entrada do cache após mutações de estoque
func (uc *ProductUseCase) InvalidateProduct(ctx context.Context, productID string) {
	if err := uc.cache.Invalidate(ctx, productCacheKey(productID)); err != nil {
		log.Printf("⚠️ Cache invalidation failed for %s: %v", productID, err)
	}
}
