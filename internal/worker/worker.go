package worker

import (
	"context"
	"fmt"
	"strconv"

	"pos-service/internal/broker"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// DefaultLowStockThreshold is the remaining quantity at or below which a
// variant is reported as running low
const DefaultLowStockThreshold = 5

// VariantReader loads current variant stock
type VariantReader interface {
	GetVariantsByIDs(ctx context.Context, ids []int64) ([]models.ProductVariant, error)
}

// StockAlertWorker watches completed sales and flags variants whose
// remaining stock dropped to the alert threshold
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	variants     VariantReader
	threshold    int
	logger       *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(consumer *broker.Consumer, variants VariantReader, threshold int) *StockAlertWorker {
	if threshold < 0 {
		threshold = DefaultLowStockThreshold
	}

	w := &StockAlertWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		variants:     variants,
		threshold:    threshold,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnSaleCompleted(w.HandleSaleCompleted)
	return w
}

// Start consumes events until ctx is cancelled
func (w *StockAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock alert worker", zap.Int("threshold", w.threshold))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	w.logger.Info("Stopping stock alert worker")
	return w.consumer.Close()
}

// HandleSaleCompleted re-reads the stock of every variant in the sale
func (w *StockAlertWorker) HandleSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error {
	_, err := w.checkStock(ctx, event)
	return err
}

// checkStock updates the low stock gauge for the sold variants and returns
// the ones at or below the threshold
func (w *StockAlertWorker) checkStock(ctx context.Context, event *models.SaleCompletedEvent) ([]models.ProductVariant, error) {
	seen := make(map[int64]bool, len(event.Items))
	ids := make([]int64, 0, len(event.Items))
	for _, item := range event.Items {
		if item.VariantID == nil || seen[*item.VariantID] {
			continue
		}
		seen[*item.VariantID] = true
		ids = append(ids, *item.VariantID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	variants, err := w.variants.GetVariantsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load variants for sale %d: %w", event.SaleID, err)
	}

	var low []models.ProductVariant
	for _, v := range variants {
		label := strconv.FormatInt(v.ID, 10)
		if v.Quantity > w.threshold {
			util.VariantStockLow.DeleteLabelValues(label)
			continue
		}

		util.VariantStockLow.WithLabelValues(label).Set(float64(v.Quantity))
		w.logger.Warn("Variant stock low",
			zap.Int64("variant_id", v.ID),
			zap.Int64("product_id", v.ProductID),
			zap.String("size", v.Size),
			zap.String("color", v.Color),
			zap.Int("quantity", v.Quantity),
			zap.String("receipt_number", event.ReceiptNumber))
		low = append(low, v)
	}
	return low, nil
}
