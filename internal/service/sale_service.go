package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/redisclient"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultIdempotencyTTL is how long a processed idempotency key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// idempotencyClaimTTL bounds how long an in-flight claim blocks retries if
// the process dies before settling it
const idempotencyClaimTTL = time.Minute

// SaleService processes checkouts: stock, totals, loyalty and the sale record
// are committed together or not at all
type SaleService struct {
	store          *store.Store
	cache          ProductCache
	events         EventPublisher
	receipts       ReceiptNumberer
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewSaleService creates a new sale service. cache, events and idempotency
// may be nil; a nil receipts falls back to locally generated numbers.
func NewSaleService(
	store *store.Store,
	cache ProductCache,
	events EventPublisher,
	receipts ReceiptNumberer,
	idempotency IdempotencyStore,
	idempotencyTTL time.Duration,
) *SaleService {
	if cache == nil {
		cache = noopCache{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	if receipts == nil {
		receipts = redisclient.NewReceiptGenerator(nil)
	}
	if idempotencyTTL <= 0 {
		idempotencyTTL = DefaultIdempotencyTTL
	}
	return &SaleService{
		store:          store,
		cache:          cache,
		events:         events,
		receipts:       receipts,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
		logger:         util.GetLogger(),
	}
}

// SaleItemRequest is one cart line
type SaleItemRequest struct {
	ProductID   int64           `json:"productId" validate:"required"`
	VariantID   *int64          `json:"variantId"`
	ProductName string          `json:"productName"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	Quantity    int             `json:"quantity" validate:"min=1,max=100000"`
	Price       decimal.Decimal `json:"price"`
}

// ProcessSaleRequest represents a checkout submitted by the register
type ProcessSaleRequest struct {
	Items          []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod  string            `json:"paymentMethod" validate:"required"`
	AmountPaid     decimal.Decimal   `json:"amountPaid"`
	CustomerID     *int64            `json:"customerId"`
	IdempotencyKey string            `json:"-"`
}

// SaleResult is the outcome of a processed sale
type SaleResult struct {
	Sale *models.Sale
	// Replayed is set when the sale was committed by an earlier request
	// carrying the same idempotency key
	Replayed bool
}

// ProcessSale validates the cart, moves stock, applies the loyalty discount,
// updates the customer account and records the sale in one transaction
func (s *SaleService) ProcessSale(ctx context.Context, req *ProcessSaleRequest) (result *SaleResult, err error) {
	ctx, span := util.StartSpan(ctx, "SaleService.ProcessSale",
		attribute.Int("sale.items", len(req.Items)),
		attribute.String("sale.payment_method", req.PaymentMethod))
	defer func() { util.EndSpan(span, err) }()

	start := time.Now()
	defer func() {
		util.SaleProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	if err := validateSaleRequest(req); err != nil {
		util.SalesRejectedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		claimed, existing, claimErr := s.idempotency.ClaimIdempotencyKey(ctx, req.IdempotencyKey, idempotencyClaimTTL)
		switch {
		case claimErr != nil:
			s.logger.Warn("Idempotency store unavailable, processing without it",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Error(claimErr))
		case !claimed:
			return s.replay(ctx, req.IdempotencyKey, existing)
		default:
			defer func() {
				s.settleIdempotencyKey(ctx, req.IdempotencyKey, result, err)
			}()
		}
	}

	sale, err := s.commitSale(ctx, req)
	if err != nil {
		util.SalesRejectedTotal.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}

	s.afterCommit(ctx, sale)

	s.logger.Info("Sale completed",
		zap.Int64("sale_id", sale.ID),
		zap.String("receipt_number", sale.ReceiptNumber),
		zap.String("final_amount", sale.FinalAmount.StringFixed(2)),
		zap.Int("points_earned", sale.PointsEarned))

	return &SaleResult{Sale: sale}, nil
}

func (s *SaleService) commitSale(ctx context.Context, req *ProcessSaleRequest) (*models.Sale, error) {
	saleDate := time.Now().UTC()
	sale := &models.Sale{
		PaymentMethod: req.PaymentMethod,
		AmountPaid:    req.AmountPaid,
		CustomerID:    req.CustomerID,
		SaleDate:      saleDate,
		DiscountRate:  decimal.Zero,
	}

	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		requested, variants, err := s.checkStock(ctx, q, req.Items)
		if err != nil {
			return err
		}

		for _, id := range sortedIDs(requested) {
			if err := q.DecrementVariantStock(ctx, id, requested[id]); err != nil {
				if errors.Is(err, store.ErrInsufficientStock) {
					return &InsufficientStockError{
						ProductName: lineName(req.Items, id),
						VariantID:   id,
						Available:   variants[id].Quantity,
						Requested:   requested[id],
					}
				}
				return fmt.Errorf("failed to decrement stock for variant %d: %w", id, err)
			}
		}

		items, total, err := s.buildItems(ctx, q, req.Items, variants)
		if err != nil {
			return err
		}
		sale.Items = items
		sale.TotalAmount = total

		if req.CustomerID != nil {
			customer, err := q.GetCustomerForUpdate(ctx, *req.CustomerID)
			if errors.Is(err, store.ErrNotFound) {
				return validationErrorf("customer %d not found", *req.CustomerID)
			}
			if err != nil {
				return fmt.Errorf("failed to load customer: %w", err)
			}

			sale.DiscountRate = DiscountRate(customer.LoyaltyPoints)
			sale.DiscountAmount, sale.FinalAmount = ApplyDiscount(total, sale.DiscountRate)
			sale.PointsEarned = PointsEarned(sale.FinalAmount)

			err = q.ApplyPurchase(ctx, customer.ID,
				customer.TotalSpent.Add(sale.FinalAmount),
				customer.LoyaltyPoints+sale.PointsEarned,
				saleDate)
			if err != nil {
				return fmt.Errorf("failed to update customer: %w", err)
			}
		} else {
			sale.DiscountAmount, sale.FinalAmount = ApplyDiscount(total, decimal.Zero)
		}

		sale.Change = req.AmountPaid.Sub(sale.FinalAmount)
		if sale.Change.IsNegative() {
			sale.Change = decimal.Zero
		}

		sale.ReceiptNumber = s.receipts.NextReceiptNumber(ctx)
		return q.CreateSale(ctx, sale)
	})
	if err != nil {
		if IsRejection(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to process sale: %w", err)
	}
	return sale, nil
}

// checkStock locks every referenced variant in id order and verifies the
// combined requested quantity per variant before anything is written
func (s *SaleService) checkStock(ctx context.Context, q *store.Queries, items []SaleItemRequest) (map[int64]int, map[int64]*models.ProductVariant, error) {
	ids := make(map[int64]int)
	for _, item := range items {
		if item.VariantID != nil {
			ids[*item.VariantID] = 0
		}
	}

	variants := make(map[int64]*models.ProductVariant, len(ids))
	for _, id := range sortedIDs(ids) {
		variant, err := q.GetVariantForUpdate(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, &VariantNotFoundError{ProductName: lineName(items, id), VariantID: id}
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load variant %d: %w", id, err)
		}
		variants[id] = variant
	}

	// The remaining stock is compared before each line is added so the
	// running total can never exceed what is on hand.
	requested := make(map[int64]int, len(ids))
	for _, item := range items {
		if item.VariantID == nil {
			continue
		}
		id := *item.VariantID
		variant := variants[id]
		if item.Quantity > variant.Quantity-requested[id] {
			return nil, nil, &InsufficientStockError{
				ProductName: item.ProductName,
				VariantID:   id,
				Available:   variant.Quantity,
				Requested:   addQuantity(requested[id], item.Quantity),
			}
		}
		requested[id] += item.Quantity
	}

	return requested, variants, nil
}

// buildItems snapshots each cart line and sums the pre-discount total.
// Missing names, sizes and colors are filled from the catalog.
func (s *SaleService) buildItems(ctx context.Context, q *store.Queries, lines []SaleItemRequest, variants map[int64]*models.ProductVariant) ([]models.SaleItem, decimal.Decimal, error) {
	items := make([]models.SaleItem, 0, len(lines))
	total := decimal.Zero
	names := make(map[int64]string)

	for _, line := range lines {
		item := models.SaleItem{
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			ProductName: strings.TrimSpace(line.ProductName),
			Size:        line.Size,
			Color:       line.Color,
			Quantity:    line.Quantity,
			UnitPrice:   line.Price,
			TotalPrice:  line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		}

		if line.VariantID != nil {
			variant := variants[*line.VariantID]
			if variant.ProductID != line.ProductID {
				return nil, decimal.Zero, validationErrorf("variant %d does not belong to product %d",
					variant.ID, line.ProductID)
			}
			if item.Size == "" {
				item.Size = variant.Size
			}
			if item.Color == "" {
				item.Color = variant.Color
			}
		}

		if item.ProductName == "" {
			name, ok := names[line.ProductID]
			if !ok {
				product, err := q.GetProductByID(ctx, line.ProductID)
				if errors.Is(err, store.ErrNotFound) {
					return nil, decimal.Zero, validationErrorf("product %d not found", line.ProductID)
				}
				if err != nil {
					return nil, decimal.Zero, fmt.Errorf("failed to load product: %w", err)
				}
				name = product.Name
				names[line.ProductID] = name
			}
			item.ProductName = name
		}

		total = total.Add(item.TotalPrice)
		items = append(items, item)
	}

	return items, total, nil
}

func (s *SaleService) afterCommit(ctx context.Context, sale *models.Sale) {
	productIDs := make([]int64, 0, len(sale.Items))
	soldItems := make([]models.SoldItemData, 0, len(sale.Items))
	units := 0
	for _, item := range sale.Items {
		productIDs = append(productIDs, item.ProductID)
		soldItems = append(soldItems, models.SoldItemData{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
		units += item.Quantity
	}
	s.cache.Invalidate(ctx, productIDs...)

	util.SalesCompletedTotal.WithLabelValues(sale.PaymentMethod).Inc()
	util.SaleAmount.Observe(sale.FinalAmount.InexactFloat64())
	util.UnitsSoldTotal.Add(float64(units))
	if sale.PointsEarned > 0 {
		util.LoyaltyPointsAwardedTotal.Add(float64(sale.PointsEarned))
	}

	event := &models.SaleCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleCompleted,
			Timestamp: time.Now(),
		},
		SaleID:        sale.ID,
		ReceiptNumber: sale.ReceiptNumber,
		CustomerID:    sale.CustomerID,
		FinalAmount:   sale.FinalAmount.StringFixed(2),
		PointsEarned:  sale.PointsEarned,
		Items:         soldItems,
	}
	if err := s.events.PublishSaleCompleted(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(models.EventTypeSaleCompleted).Inc()
		s.logger.Error("Failed to publish SaleCompleted event", zap.Error(err))
	}
}

// replay answers a repeated idempotency key with the sale it produced
func (s *SaleService) replay(ctx context.Context, key, existing string) (*SaleResult, error) {
	saleID, err := strconv.ParseInt(existing, 10, 64)
	if err != nil {
		return nil, validationErrorf("a sale with this idempotency key is already being processed")
	}

	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale for idempotency key: %w", err)
	}

	s.logger.Info("Duplicate sale request detected",
		zap.String("idempotency_key", key),
		zap.Int64("sale_id", sale.ID))
	return &SaleResult{Sale: sale, Replayed: true}, nil
}

func (s *SaleService) settleIdempotencyKey(ctx context.Context, key string, result *SaleResult, err error) {
	if err != nil || result == nil {
		if relErr := s.idempotency.ReleaseIdempotencyKey(ctx, key); relErr != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(relErr))
		}
		return
	}

	value := strconv.FormatInt(result.Sale.ID, 10)
	if cErr := s.idempotency.CompleteIdempotencyKey(ctx, key, value, s.idempotencyTTL); cErr != nil {
		s.logger.Warn("Failed to record idempotency key", zap.String("idempotency_key", key), zap.Error(cErr))
	}
}

// GetSale retrieves a sale with its items
func (s *SaleService) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.GetSale", attribute.Int64("sale.id", id))
	defer span.End()

	sale, err := s.store.GetSaleByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}

// GetSaleByReceipt retrieves a sale by its receipt number
func (s *SaleService) GetSaleByReceipt(ctx context.Context, receipt string) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.GetSaleByReceipt", attribute.String("sale.receipt", receipt))
	defer span.End()

	sale, err := s.store.GetSaleByReceipt(ctx, strings.TrimSpace(receipt))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}

func validateSaleRequest(req *ProcessSaleRequest) error {
	if len(req.Items) == 0 {
		return validationErrorf("cart is empty")
	}
	if err := validateStruct(req); err != nil {
		return err
	}
	if !models.IsValidPaymentMethod(req.PaymentMethod) {
		return validationErrorf("invalid payment method: %s", req.PaymentMethod)
	}
	if err := checkAmount("amountPaid", req.AmountPaid); err != nil {
		return err
	}
	for i, item := range req.Items {
		if err := checkAmount(fmt.Sprintf("item %d: price", i+1), item.Price); err != nil {
			return err
		}
	}
	return nil
}

func rejectionReason(err error) string {
	var (
		ise *InsufficientStockError
		vnf *VariantNotFoundError
		ve  *ValidationError
	)
	switch {
	case errors.As(err, &ise):
		return "insufficient_stock"
	case errors.As(err, &vnf):
		return "variant_not_found"
	case errors.As(err, &ve):
		return "invalid_request"
	default:
		return "internal_error"
	}
}

func sortedIDs(m map[int64]int) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// addQuantity adds b to a, saturating at math.MaxInt
func addQuantity(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

// lineName returns the product name of the first cart line for variantID
func lineName(items []SaleItemRequest, variantID int64) string {
	for _, item := range items {
		if item.VariantID != nil && *item.VariantID == variantID {
			return item.ProductName
		}
	}
	return ""
}
