package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

const activeProductsKey = "products:active"

// ProductCache keeps product reads in Redis. Every failure is treated as a
// miss; the database stays the source of truth.
type ProductCache struct {
	client *Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewProductCache creates a product cache with the given TTL
func NewProductCache(client *Client, ttl time.Duration) *ProductCache {
	return &ProductCache{
		client: client,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

// GetProduct returns a cached product with its variants
func (pc *ProductCache) GetProduct(ctx context.Context, id int64) (*models.Product, bool) {
	var product models.Product
	if !pc.load(ctx, productKey(id), &product) {
		return nil, false
	}
	return &product, true
}

// SetProduct caches a product with its variants
func (pc *ProductCache) SetProduct(ctx context.Context, product *models.Product) {
	pc.store(ctx, productKey(product.ID), product)
}

// GetActiveProducts returns the cached active catalog
func (pc *ProductCache) GetActiveProducts(ctx context.Context) ([]models.Product, bool) {
	var products []models.Product
	if !pc.load(ctx, activeProductsKey, &products) {
		return nil, false
	}
	return products, true
}

// SetActiveProducts caches the active catalog
func (pc *ProductCache) SetActiveProducts(ctx context.Context, products []models.Product) {
	pc.store(ctx, activeProductsKey, products)
}

// Invalidate drops the given products and the active catalog listing
func (pc *ProductCache) Invalidate(ctx context.Context, productIDs ...int64) {
	keys := make([]string, 0, len(productIDs)+1)
	keys = append(keys, activeProductsKey)
	for _, id := range productIDs {
		keys = append(keys, productKey(id))
	}

	if err := pc.client.Delete(ctx, keys...); err != nil {
		pc.logger.Warn("Failed to invalidate product cache",
			zap.Int64s("product_ids", productIDs),
			zap.Error(err))
	}
}

func (pc *ProductCache) load(ctx context.Context, key string, dest interface{}) bool {
	data, err := pc.client.GetBytes(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, ErrCacheMiss):
		util.CacheRequestsTotal.WithLabelValues("miss").Inc()
		return false
	default:
		util.CacheRequestsTotal.WithLabelValues("error").Inc()
		pc.logger.Warn("Redis error, continuing with DB", zap.String("key", key), zap.Error(err))
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		util.CacheRequestsTotal.WithLabelValues("error").Inc()
		pc.logger.Warn("Failed to unmarshal cached value", zap.String("key", key), zap.Error(err))
		return false
	}

	util.CacheRequestsTotal.WithLabelValues("hit").Inc()
	return true
}

func (pc *ProductCache) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		pc.logger.Warn("Failed to marshal value for cache", zap.String("key", key), zap.Error(err))
		return
	}

	if err := pc.client.SetBytes(ctx, key, data, pc.ttl); err != nil {
		pc.logger.Warn("Failed to cache value", zap.String("key", key), zap.Error(err))
	}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}
