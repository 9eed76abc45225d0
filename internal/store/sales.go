package store

import (
	"context"
	"fmt"

	"pos-service/internal/models"
)

const saleColumns = `id, receipt_number, total_amount, discount_rate, discount_amount, final_amount, payment_method,
	amount_paid, change_amount, points_earned, customer_id, sale_date`

const saleItemColumns = `id, sale_id, product_id, variant_id, product_name, size, color, quantity, unit_price, total_price`

// CreateSale inserts a sale header and its items
func (q *Queries) CreateSale(ctx context.Context, sale *models.Sale) error {
	err := q.get(ctx, &sale.ID, `
		INSERT INTO sales (receipt_number, total_amount, discount_rate, discount_amount, final_amount, payment_method,
		                   amount_paid, change_amount, points_earned, customer_id, sale_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		sale.ReceiptNumber, sale.TotalAmount, sale.DiscountRate, sale.DiscountAmount, sale.FinalAmount, sale.PaymentMethod,
		sale.AmountPaid, sale.Change, sale.PointsEarned, sale.CustomerID, sale.SaleDate)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		if err := q.CreateSaleItem(ctx, item); err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
	}
	return nil
}

// CreateSaleItem inserts a sale item
func (q *Queries) CreateSaleItem(ctx context.Context, item *models.SaleItem) error {
	return q.get(ctx, &item.ID, `
		INSERT INTO sale_items (sale_id, product_id, variant_id, product_name, size, color, quantity, unit_price, total_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		item.SaleID, item.ProductID, item.VariantID, item.ProductName, item.Size, item.Color,
		item.Quantity, item.UnitPrice, item.TotalPrice)
}

// GetSaleByID retrieves a sale with its items
func (q *Queries) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	if err := q.get(ctx, &sale, "SELECT "+saleColumns+" FROM sales WHERE id = ?", id); err != nil {
		return nil, err
	}
	return q.withItems(ctx, &sale)
}

// GetSaleByReceipt retrieves a sale with its items by receipt number
func (q *Queries) GetSaleByReceipt(ctx context.Context, receipt string) (*models.Sale, error) {
	var sale models.Sale
	if err := q.get(ctx, &sale, "SELECT "+saleColumns+" FROM sales WHERE receipt_number = ?", receipt); err != nil {
		return nil, err
	}
	return q.withItems(ctx, &sale)
}

// CountSales returns the number of committed sales
func (q *Queries) CountSales(ctx context.Context) (int, error) {
	var n int
	err := q.get(ctx, &n, "SELECT COUNT(*) FROM sales")
	return n, err
}

func (q *Queries) withItems(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	items := []models.SaleItem{}
	if err := q.selectAll(ctx, &items,
		"SELECT "+saleItemColumns+" FROM sale_items WHERE sale_id = ? ORDER BY id", sale.ID); err != nil {
		return nil, fmt.Errorf("failed to load sale items: %w", err)
	}
	sale.Items = items
	return sale, nil
}
