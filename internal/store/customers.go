package store

import (
	"context"
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
)

const customerColumns = `id, name, phone, email, loyalty_points, total_spent, last_purchase_date, notes, created_at, updated_at`

// CreateCustomer inserts a customer and sets its ID and timestamps
func (q *Queries) CreateCustomer(ctx context.Context, c *models.Customer) error {
	ts := now()
	c.CreatedAt, c.UpdatedAt = ts, ts

	return q.get(ctx, &c.ID, `
		INSERT INTO customers (name, phone, email, loyalty_points, total_spent, last_purchase_date, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		c.Name, c.Phone, c.Email, c.LoyaltyPoints, c.TotalSpent, c.LastPurchaseDate, c.Notes, c.CreatedAt, c.UpdatedAt)
}

// GetCustomerByID retrieves a customer by ID
func (q *Queries) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	if err := q.get(ctx, &customer, "SELECT "+customerColumns+" FROM customers WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomerForUpdate retrieves a customer and locks the row on Postgres
func (q *Queries) GetCustomerForUpdate(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := q.get(ctx, &customer, "SELECT "+customerColumns+" FROM customers WHERE id = ?"+q.lockClause(), id)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomers retrieves all customers, newest first
func (q *Queries) GetCustomers(ctx context.Context) ([]models.Customer, error) {
	customers := []models.Customer{}
	err := q.selectAll(ctx, &customers, "SELECT "+customerColumns+" FROM customers ORDER BY created_at DESC, id DESC")
	return customers, err
}

// SearchCustomers matches customers whose name, phone or email contains query
func (q *Queries) SearchCustomers(ctx context.Context, query string) ([]models.Customer, error) {
	pattern := likePattern(query)
	customers := []models.Customer{}
	err := q.selectAll(ctx, &customers, `
		SELECT `+customerColumns+` FROM customers
		WHERE LOWER(name) LIKE ? ESCAPE '\'
		   OR LOWER(phone) LIKE ? ESCAPE '\'
		   OR LOWER(email) LIKE ? ESCAPE '\'
		ORDER BY name ASC`,
		pattern, pattern, pattern)
	return customers, err
}

// UpdateCustomer writes all mutable customer fields
func (q *Queries) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	c.UpdatedAt = now()

	res, err := q.exec(ctx, `
		UPDATE customers
		SET name = ?, phone = ?, email = ?, loyalty_points = ?, total_spent = ?,
		    last_purchase_date = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Phone, c.Email, c.LoyaltyPoints, c.TotalSpent,
		c.LastPurchaseDate, c.Notes, c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// DeleteCustomer removes a customer; past sales keep their rows with the
// customer reference cleared
func (q *Queries) DeleteCustomer(ctx context.Context, id int64) error {
	res, err := q.exec(ctx, "DELETE FROM customers WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// SetLoyaltyPoints overwrites a customer's point balance
func (q *Queries) SetLoyaltyPoints(ctx context.Context, id int64, points int) error {
	res, err := q.exec(ctx,
		"UPDATE customers SET loyalty_points = ?, updated_at = ? WHERE id = ?", points, now(), id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// ApplyPurchase records a purchase on the customer account
func (q *Queries) ApplyPurchase(ctx context.Context, id int64, totalSpent decimal.Decimal, loyaltyPoints int, purchasedAt time.Time) error {
	res, err := q.exec(ctx, `
		UPDATE customers
		SET total_spent = ?, loyalty_points = ?, last_purchase_date = ?, updated_at = ?
		WHERE id = ?`,
		totalSpent, loyaltyPoints, purchasedAt, now(), id)
	if err != nil {
		return err
	}
	return expectRow(res)
}
