package redisclient

import (
	"context"
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

// unreachableClient points at a port nothing listens on
func unreachableClient(t *testing.T) *Client {
	t.Helper()

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })
	return NewFromRedis(rdb)
}

func TestProductCacheDegradesToMiss(t *testing.T) {
	cache := NewProductCache(unreachableClient(t), time.Minute)
	ctx := context.Background()

	cache.SetProduct(ctx, &models.Product{ID: 1, Name: "Tote"})
	cache.SetActiveProducts(ctx, []models.Product{{ID: 1}})

	_, ok := cache.GetProduct(ctx, 1)
	assert.False(t, ok)

	_, ok = cache.GetActiveProducts(ctx)
	assert.False(t, ok)

	cache.Invalidate(ctx, 1, 2)
}

func TestReceiptGeneratorFallsBackWhenRedisDown(t *testing.T) {
	g := NewReceiptGenerator(unreachableClient(t))

	receipt := g.NextReceiptNumber(context.Background())
	assert.Regexp(t, `^REC-\d{13}-[0-9A-F]{6}$`, receipt)
}

func TestIdempotencyClaimFailsWhenRedisDown(t *testing.T) {
	c := unreachableClient(t)

	claimed, _, err := c.ClaimIdempotencyKey(context.Background(), "k", time.Minute)
	assert.Error(t, err)
	assert.False(t, claimed)
}
