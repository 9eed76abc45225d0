package service

import (
	"context"
	"time"

	"pos-service/internal/models"
)

// ProductCache is a read-through cache for catalog reads
type ProductCache interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, bool)
	SetProduct(ctx context.Context, product *models.Product)
	GetActiveProducts(ctx context.Context) ([]models.Product, bool)
	SetActiveProducts(ctx context.Context, products []models.Product)
	Invalidate(ctx context.Context, productIDs ...int64)
}

// EventPublisher publishes domain events after commits
type EventPublisher interface {
	PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error
	PublishProductChanged(ctx context.Context, event *models.ProductChangedEvent) error
	PublishCustomerChanged(ctx context.Context, event *models.CustomerChangedEvent) error
}

// ReceiptNumberer issues receipt numbers
type ReceiptNumberer interface {
	NextReceiptNumber(ctx context.Context) string
}

// IdempotencyStore remembers which sale a client supplied key produced
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (claimed bool, existing string, err error)
	CompleteIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

type noopCache struct{}

func (noopCache) GetProduct(context.Context, int64) (*models.Product, bool) { return nil, false }
func (noopCache) SetProduct(context.Context, *models.Product) {}
func (noopCache) GetActiveProducts(context.Context) ([]models.Product, bool) { return nil, false }
func (noopCache) SetActiveProducts(context.Context, []models.Product) {}
func (noopCache) Invalidate(context.Context, ...int64) {}

type noopPublisher struct{}

func (noopPublisher) PublishSaleCompleted(context.Context, *models.SaleCompletedEvent) error {
	return nil
}

func (noopPublisher) PublishProductChanged(context.Context, *models.ProductChangedEvent) error {
	return nil
}

func (noopPublisher) PublishCustomerChanged(context.Context, *models.CustomerChangedEvent) error {
	return nil
}
