package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func strPtr(s string) *string { return &s }

func seedProduct(t *testing.T, s *Store, name, barcode string, stock ...int) *models.Product {
	t.Helper()
	ctx := context.Background()

	p := &models.Product{
		Name:      name,
		BasePrice: decimal.RequireFromString("49.99"),
		Season:    models.DefaultSeason,
		Gender:    models.DefaultGender,
		Barcode:   strPtr(barcode),
		IsActive:  true,
	}
	require.NoError(t, s.CreateProduct(ctx, p))

	variants := make([]models.ProductVariant, len(stock))
	for i, qty := range stock {
		variants[i] = models.ProductVariant{Size: "M", Color: "white", Quantity: qty}
	}
	require.NoError(t, s.ReplaceVariants(ctx, p.ID, variants))
	p.Variants = variants
	return p
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestProductLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, s, "Cotton T-Shirt", "TSHIRT001", 25, 30)
	assert.NotZero(t, p.ID)

	got, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cotton T-Shirt", got.Name)
	assert.True(t, got.BasePrice.Equal(decimal.RequireFromString("49.99")))
	assert.True(t, got.IsActive)

	active, err := s.GetActiveProducts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, s.AttachVariants(ctx, active))
	assert.Len(t, active[0].Variants, 2)

	require.NoError(t, s.SetProductActive(ctx, p.ID, false))

	active, err = s.GetActiveProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err = s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestGetProductByIDNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetProductByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateBarcode(t *testing.T) {
	s := setupTestStore(t)
	seedProduct(t, s, "Jeans", "JEANS001")

	dup := &models.Product{Name: "Other", BasePrice: decimal.NewFromInt(1), Barcode: strPtr("JEANS001"), IsActive: true}
	err := s.CreateProduct(context.Background(), dup)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestSearchActiveProducts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	seedProduct(t, s, "Relaxed Jeans", "JEANS001")
	seedProduct(t, s, "Leather Jacket", "JACKET001")
	hidden := seedProduct(t, s, "Old Jeans", "JEANS002")
	require.NoError(t, s.SetProductActive(ctx, hidden.ID, false))

	found, err := s.SearchActiveProducts(ctx, "jEaNs")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Relaxed Jeans", found[0].Name)

	found, err = s.SearchActiveProducts(ctx, "jacket001")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = s.SearchActiveProducts(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestReplaceVariants(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, s, "Dress", "DRESS001", 5, 6, 7)

	err := s.WithTx(ctx, func(q *Queries) error {
		return q.ReplaceVariants(ctx, p.ID, []models.ProductVariant{
			{Size: "S", Color: "red", Quantity: 1, PriceModifier: decimal.RequireFromString("-2.50")},
		})
	})
	require.NoError(t, err)

	grouped, err := s.GetVariantsByProductIDs(ctx, []int64{p.ID})
	require.NoError(t, err)
	require.Len(t, grouped[p.ID], 1)
	assert.Equal(t, "S", grouped[p.ID][0].Size)
	assert.True(t, grouped[p.ID][0].PriceModifier.Equal(decimal.RequireFromString("-2.5")))
}

func TestDecrementVariantStock(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, s, "Socks", "SOCKS001", 3)
	variantID := p.Variants[0].ID

	require.NoError(t, s.DecrementVariantStock(ctx, variantID, 2))

	err := s.DecrementVariantStock(ctx, variantID, 2)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	v, err := s.GetVariantForUpdate(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Quantity)
}

func TestWithTxRollsBack(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, s, "Hat", "HAT001", 10)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(q *Queries) error {
		if err := q.DecrementVariantStock(ctx, p.Variants[0].ID, 4); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	v, err := s.GetVariantForUpdate(ctx, p.Variants[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 10, v.Quantity)
}

func TestCustomerLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c := &models.Customer{Name: "Ahmed", Phone: "0512345678", Email: "ahmed@example.com", LoyaltyPoints: 150}
	require.NoError(t, s.CreateCustomer(ctx, c))
	require.NoError(t, s.CreateCustomer(ctx, &models.Customer{Name: "Fatima", Phone: "0554321000"}))

	found, err := s.SearchCustomers(ctx, "EXAMPLE.com")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, c.ID, found[0].ID)

	found, err = s.SearchCustomers(ctx, "055")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Fatima", found[0].Name)

	purchasedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.ApplyPurchase(ctx, c.ID, decimal.RequireFromString("95.00"), 159, purchasedAt))

	got, err := s.GetCustomerByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 159, got.LoyaltyPoints)
	assert.True(t, got.TotalSpent.Equal(decimal.NewFromInt(95)))
	require.NotNil(t, got.LastPurchaseDate)
	assert.True(t, got.LastPurchaseDate.Equal(purchasedAt))

	require.NoError(t, s.DeleteCustomer(ctx, c.ID))
	_, err = s.GetCustomerByID(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteCustomer(ctx, c.ID), ErrNotFound)
}

func TestCreateSaleWithItems(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, s, "Scarf", "SCARF001", 4)
	variantID := p.Variants[0].ID

	sale := &models.Sale{
		ReceiptNumber: "REC-20261017-000001",
		TotalAmount:   decimal.RequireFromString("99.98"),
		FinalAmount:   decimal.RequireFromString("99.98"),
		PaymentMethod: models.PaymentMethodCash,
		AmountPaid:    decimal.NewFromInt(100),
		Change:        decimal.RequireFromString("0.02"),
		SaleDate:      time.Now().UTC(),
		Items: []models.SaleItem{{
			ProductID:   p.ID,
			VariantID:   &variantID,
			ProductName: p.Name,
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("49.99"),
			TotalPrice:  decimal.RequireFromString("99.98"),
		}},
	}
	require.NoError(t, s.CreateSale(ctx, sale))

	got, err := s.GetSaleByReceipt(ctx, "REC-20261017-000001")
	require.NoError(t, err)
	assert.Equal(t, sale.ID, got.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, variantID, *got.Items[0].VariantID)
	assert.True(t, got.Items[0].TotalPrice.Equal(decimal.RequireFromString("99.98")))

	dup := *sale
	dup.Items = nil
	assert.ErrorIs(t, s.CreateSale(ctx, &dup), ErrDuplicate)
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_OFF"))
}
