package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CatalogService handles product and variant management
type CatalogService struct {
	store  *store.Store
	cache  ProductCache
	events EventPublisher
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. cache and events may be
// nil to run without Redis or Kafka.
func NewCatalogService(store *store.Store, cache ProductCache, events EventPublisher) *CatalogService {
	if cache == nil {
		cache = noopCache{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &CatalogService{
		store:  store,
		cache:  cache,
		events: events,
		logger: util.GetLogger(),
	}
}

// VariantInput describes a variant supplied with a product write
type VariantInput struct {
	Size          string          `json:"size" validate:"required,max=64"`
	Color         string          `json:"color" validate:"required,max=64"`
	SKU           *string         `json:"sku"`
	Quantity      int             `json:"quantity" validate:"min=0"`
	PriceModifier decimal.Decimal `json:"priceModifier"`
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description"`
	BasePrice   *decimal.Decimal `json:"basePrice" validate:"required"`
	Category    string           `json:"category"`
	Season      string           `json:"season"`
	Gender      string           `json:"gender"`
	Barcode     *string          `json:"barcode"`
	IsActive    *bool            `json:"isActive"`
	Variants    []VariantInput   `json:"variants"`
}

// UpdateProductRequest carries the fields to change; nil fields are kept.
// A non-nil Variants replaces the whole variant set.
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description"`
	BasePrice   *decimal.Decimal `json:"basePrice"`
	Category    *string          `json:"category"`
	Season      *string          `json:"season"`
	Gender      *string          `json:"gender"`
	Barcode     *string          `json:"barcode"`
	IsActive    *bool            `json:"isActive"`
	Variants    *[]VariantInput  `json:"variants"`
}

// ListProducts returns active products with their variants
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	if products, ok := s.cache.GetActiveProducts(ctx); ok {
		return products, nil
	}

	products, err := s.store.GetActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if err := s.store.AttachVariants(ctx, products); err != nil {
		return nil, err
	}

	s.cache.SetActiveProducts(ctx, products)
	return products, nil
}

// GetProduct returns a product with its variants. Soft-deleted products
// are still returned.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct", attribute.Int64("product.id", id))
	defer span.End()

	if product, ok := s.cache.GetProduct(ctx, id); ok {
		return product, nil
	}

	product, err := s.loadProduct(ctx, s.store.Queries, id)
	if err != nil {
		return nil, err
	}

	s.cache.SetProduct(ctx, product)
	return product, nil
}

// SearchProducts matches active products on name, description or barcode
func (s *CatalogService) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.SearchProducts")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationErrorf("search query is required")
	}

	products, err := s.store.SearchActiveProducts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	if err := s.store.AttachVariants(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct creates a product and, when given, its variants in one transaction
func (s *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := checkAmount("basePrice", *req.BasePrice); err != nil {
		return nil, err
	}
	variants, err := buildVariants(req.Variants)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		BasePrice:   *req.BasePrice,
		Category:    req.Category,
		Season:      defaultString(req.Season, models.DefaultSeason),
		Gender:      defaultString(req.Gender, models.DefaultGender),
		Barcode:     normalizeOptional(req.Barcode),
		IsActive:    req.IsActive == nil || *req.IsActive,
	}

	err = s.store.WithTx(ctx, func(q *store.Queries) error {
		if err := q.CreateProduct(ctx, product); err != nil {
			return err
		}
		if len(variants) > 0 {
			return q.ReplaceVariants(ctx, product.ID, variants)
		}
		return nil
	})
	if err != nil {
		return nil, catalogWriteError(err)
	}

	product.Variants = variants
	if product.Variants == nil {
		product.Variants = []models.ProductVariant{}
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.Int("variants", len(product.Variants)))
	s.afterWrite(ctx, product.ID, models.ChangeActionCreated)
	return product, nil
}

// UpdateProduct applies a partial update; supplied variants replace the
// existing set in the same transaction
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *UpdateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct", attribute.Int64("product.id", id))
	defer span.End()

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.BasePrice != nil {
		if err := checkAmount("basePrice", *req.BasePrice); err != nil {
			return nil, err
		}
	}

	var variants []models.ProductVariant
	if req.Variants != nil {
		var err error
		if variants, err = buildVariants(*req.Variants); err != nil {
			return nil, err
		}
	}

	var product *models.Product
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		p, err := q.GetProductByID(ctx, id)
		if err != nil {
			return err
		}
		applyProductUpdate(p, req)

		if err := q.UpdateProduct(ctx, p); err != nil {
			return err
		}
		if req.Variants != nil {
			if err := q.ReplaceVariants(ctx, id, variants); err != nil {
				return err
			}
		}

		product, err = s.loadProduct(ctx, q, id)
		return err
	})
	if err != nil {
		return nil, catalogWriteError(err)
	}

	s.logger.Info("Product updated",
		zap.Int64("product_id", id),
		zap.Bool("variants_replaced", req.Variants != nil))
	s.afterWrite(ctx, id, models.ChangeActionUpdated)
	return product, nil
}

// DeleteProduct soft-deletes a product by clearing its active flag
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct", attribute.Int64("product.id", id))
	defer span.End()

	if err := s.store.SetProductActive(ctx, id, false); err != nil {
		return catalogWriteError(err)
	}

	s.logger.Info("Product deactivated", zap.Int64("product_id", id))
	s.afterWrite(ctx, id, models.ChangeActionDeactivated)
	return nil
}

func (s *CatalogService) loadProduct(ctx context.Context, q *store.Queries, id int64) (*models.Product, error) {
	product, err := q.GetProductByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	products := []models.Product{*product}
	if err := q.AttachVariants(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (s *CatalogService) afterWrite(ctx context.Context, productID int64, action string) {
	s.cache.Invalidate(ctx, productID)

	event := &models.ProductChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeProductChanged,
			Timestamp: time.Now(),
		},
		ProductID: productID,
		Action:    action,
	}
	if err := s.events.PublishProductChanged(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(models.EventTypeProductChanged).Inc()
		s.logger.Error("Failed to publish ProductChanged event", zap.Error(err))
	}
}

func applyProductUpdate(p *models.Product, req *UpdateProductRequest) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.BasePrice != nil {
		p.BasePrice = *req.BasePrice
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Season != nil {
		p.Season = defaultString(*req.Season, models.DefaultSeason)
	}
	if req.Gender != nil {
		p.Gender = defaultString(*req.Gender, models.DefaultGender)
	}
	if req.Barcode != nil {
		p.Barcode = normalizeOptional(req.Barcode)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
}

func buildVariants(inputs []VariantInput) ([]models.ProductVariant, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	variants := make([]models.ProductVariant, 0, len(inputs))
	for i := range inputs {
		in := inputs[i]
		if err := validateStruct(&in); err != nil {
			return nil, validationErrorf("variant %d: %s", i+1, err.Error())
		}
		if err := checkCents(fmt.Sprintf("variant %d: priceModifier", i+1), in.PriceModifier); err != nil {
			return nil, err
		}
		variants = append(variants, models.ProductVariant{
			Size:          strings.TrimSpace(in.Size),
			Color:         strings.TrimSpace(in.Color),
			SKU:           normalizeOptional(in.SKU),
			Quantity:      in.Quantity,
			PriceModifier: in.PriceModifier,
		})
	}
	return variants, nil
}

// catalogWriteError maps store errors of catalog writes onto service errors
func catalogWriteError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrDuplicate):
		return validationErrorf("barcode or SKU already exists")
	case IsRejection(err):
		return err
	default:
		return fmt.Errorf("catalog write failed: %w", err)
	}
}

func defaultString(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// normalizeOptional turns blank optional identifiers into NULLs so unique
// constraints only apply to real values
func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
