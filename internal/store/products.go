package store

import (
	"context"
	"fmt"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const productColumns = `id, name, description, base_price, category, season, gender, barcode, is_active, created_at, updated_at`

const variantColumns = `id, product_id, size, color, sku, quantity, price_modifier, created_at, updated_at`

// CreateProduct inserts a product and sets its ID and timestamps
func (q *Queries) CreateProduct(ctx context.Context, p *models.Product) error {
	ts := now()
	p.CreatedAt, p.UpdatedAt = ts, ts

	query := `
		INSERT INTO products (name, description, base_price, category, season, gender, barcode, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	return q.get(ctx, &p.ID, query,
		p.Name, p.Description, p.BasePrice, p.Category, p.Season, p.Gender, p.Barcode, p.IsActive, p.CreatedAt, p.UpdatedAt)
}

// GetProductByID retrieves a product by ID regardless of its active flag
func (q *Queries) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := q.get(ctx, &product, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetActiveProducts retrieves all active products
func (q *Queries) GetActiveProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := q.selectAll(ctx, &products,
		"SELECT "+productColumns+" FROM products WHERE is_active = ? ORDER BY id", true)
	return products, err
}

// SearchActiveProducts matches active products whose name, description or
// barcode contains query, ignoring case
func (q *Queries) SearchActiveProducts(ctx context.Context, query string) ([]models.Product, error) {
	pattern := likePattern(query)
	products := []models.Product{}
	err := q.selectAll(ctx, &products, `
		SELECT `+productColumns+` FROM products
		WHERE is_active = ?
		  AND (LOWER(name) LIKE ? ESCAPE '\'
		    OR LOWER(description) LIKE ? ESCAPE '\'
		    OR LOWER(COALESCE(barcode, '')) LIKE ? ESCAPE '\')
		ORDER BY name`,
		true, pattern, pattern, pattern)
	return products, err
}

// UpdateProduct writes all mutable product fields
func (q *Queries) UpdateProduct(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = now()

	res, err := q.exec(ctx, `
		UPDATE products
		SET name = ?, description = ?, base_price = ?, category = ?, season = ?, gender = ?,
		    barcode = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.BasePrice, p.Category, p.Season, p.Gender,
		p.Barcode, p.IsActive, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// SetProductActive flips the soft-delete flag
func (q *Queries) SetProductActive(ctx context.Context, id int64, active bool) error {
	res, err := q.exec(ctx,
		"UPDATE products SET is_active = ?, updated_at = ? WHERE id = ?", active, now(), id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// ReplaceVariants deletes the product's variants and inserts the given set.
// Callers run it inside WithTx so the swap is atomic.
func (q *Queries) ReplaceVariants(ctx context.Context, productID int64, variants []models.ProductVariant) error {
	if _, err := q.exec(ctx, "DELETE FROM product_variants WHERE product_id = ?", productID); err != nil {
		return fmt.Errorf("failed to delete variants: %w", err)
	}

	for i := range variants {
		v := &variants[i]
		v.ProductID = productID
		if err := q.CreateVariant(ctx, v); err != nil {
			return fmt.Errorf("failed to insert variant %s/%s: %w", v.Size, v.Color, err)
		}
	}
	return nil
}

// CreateVariant inserts a variant and sets its ID and timestamps
func (q *Queries) CreateVariant(ctx context.Context, v *models.ProductVariant) error {
	ts := now()
	v.CreatedAt, v.UpdatedAt = ts, ts

	return q.get(ctx, &v.ID, `
		INSERT INTO product_variants (product_id, size, color, sku, quantity, price_modifier, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		v.ProductID, v.Size, v.Color, v.SKU, v.Quantity, v.PriceModifier, v.CreatedAt, v.UpdatedAt)
}

// GetVariantsByProductIDs loads variants for the given products, grouped by product ID
func (q *Queries) GetVariantsByProductIDs(ctx context.Context, productIDs []int64) (map[int64][]models.ProductVariant, error) {
	grouped := make(map[int64][]models.ProductVariant, len(productIDs))
	if len(productIDs) == 0 {
		return grouped, nil
	}

	query, args, err := sqlx.In(
		"SELECT "+variantColumns+" FROM product_variants WHERE product_id IN (?) ORDER BY id", productIDs)
	if err != nil {
		return nil, err
	}

	var variants []models.ProductVariant
	if err := q.selectAll(ctx, &variants, query, args...); err != nil {
		return nil, err
	}

	for _, v := range variants {
		grouped[v.ProductID] = append(grouped[v.ProductID], v)
	}
	return grouped, nil
}

// AttachVariants fills the Variants field of every product
func (q *Queries) AttachVariants(ctx context.Context, products []models.Product) error {
	ids := make([]int64, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}

	grouped, err := q.GetVariantsByProductIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load variants: %w", err)
	}

	for i := range products {
		products[i].Variants = grouped[products[i].ID]
		if products[i].Variants == nil {
			products[i].Variants = []models.ProductVariant{}
		}
	}
	return nil
}

// GetVariantForUpdate retrieves a variant and, on Postgres, locks its row
// until the surrounding transaction ends
func (q *Queries) GetVariantForUpdate(ctx context.Context, id int64) (*models.ProductVariant, error) {
	var v models.ProductVariant
	err := q.get(ctx, &v, "SELECT "+variantColumns+" FROM product_variants WHERE id = ?"+q.lockClause(), id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVariantsByIDs retrieves variants by ID
func (q *Queries) GetVariantsByIDs(ctx context.Context, ids []int64) ([]models.ProductVariant, error) {
	if len(ids) == 0 {
		return []models.ProductVariant{}, nil
	}

	query, args, err := sqlx.In("SELECT "+variantColumns+" FROM product_variants WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}

	var variants []models.ProductVariant
	err = q.selectAll(ctx, &variants, query, args...)
	return variants, err
}

// DecrementVariantStock removes quantity units from a variant. The update
// only applies while enough stock remains, so stock never goes negative;
// ErrInsufficientStock is returned otherwise.
func (q *Queries) DecrementVariantStock(ctx context.Context, variantID int64, quantity int) error {
	res, err := q.exec(ctx, `
		UPDATE product_variants
		SET quantity = quantity - ?, updated_at = ?
		WHERE id = ? AND quantity >= ?`,
		quantity, now(), variantID, quantity)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}
