package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money is exchanged with the POS front end as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a catalog item; stock lives on its variants
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	BasePrice   decimal.Decimal `db:"base_price" json:"basePrice"`
	Category    string          `db:"category" json:"category"`
	Season      string          `db:"season" json:"season"`
	Gender      string          `db:"gender" json:"gender"`
	Barcode     *string         `db:"barcode" json:"barcode"`
	IsActive    bool            `db:"is_active" json:"isActive"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`

	Variants []ProductVariant `db:"-" json:"variants"`
}

// ProductVariant is a size/color instance of a product with its own stock
type ProductVariant struct {
	ID            int64           `db:"id" json:"id"`
	ProductID     int64           `db:"product_id" json:"productId"`
	Size          string          `db:"size" json:"size"`
	Color         string          `db:"color" json:"color"`
	SKU           *string         `db:"sku" json:"sku"`
	Quantity      int             `db:"quantity" json:"quantity"`
	PriceModifier decimal.Decimal `db:"price_modifier" json:"priceModifier"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// EffectivePrice returns the unit price of the variant for the given base price
func (v ProductVariant) EffectivePrice(basePrice decimal.Decimal) decimal.Decimal {
	return basePrice.Add(v.PriceModifier)
}

// Customer represents a loyalty account
type Customer struct {
	ID               int64           `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Phone            string          `db:"phone" json:"phone"`
	Email            string          `db:"email" json:"email"`
	LoyaltyPoints    int             `db:"loyalty_points" json:"loyaltyPoints"`
	TotalSpent       decimal.Decimal `db:"total_spent" json:"totalSpent"`
	LastPurchaseDate *time.Time      `db:"last_purchase_date" json:"lastPurchaseDate"`
	Notes            string          `db:"notes" json:"notes"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
}

// Sale is a committed checkout. TotalAmount is the sum of the item totals,
// FinalAmount is what was charged after the loyalty discount.
type Sale struct {
	ID             int64           `db:"id" json:"id"`
	ReceiptNumber  string          `db:"receipt_number" json:"receiptNumber"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"totalAmount"`
	DiscountRate   decimal.Decimal `db:"discount_rate" json:"discountRate"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discountAmount"`
	FinalAmount    decimal.Decimal `db:"final_amount" json:"finalAmount"`
	PaymentMethod  string          `db:"payment_method" json:"paymentMethod"`
	AmountPaid     decimal.Decimal `db:"amount_paid" json:"amountPaid"`
	Change         decimal.Decimal `db:"change_amount" json:"change"`
	PointsEarned   int             `db:"points_earned" json:"pointsEarned"`
	CustomerID     *int64          `db:"customer_id" json:"customerId"`
	SaleDate       time.Time       `db:"sale_date" json:"saleDate"`

	Items []SaleItem `db:"-" json:"items"`
}

// SaleItem is a line of a sale with a snapshot of the product at sale time
type SaleItem struct {
	ID          int64           `db:"id" json:"id"`
	SaleID      int64           `db:"sale_id" json:"saleId"`
	ProductID   int64           `db:"product_id" json:"productId"`
	VariantID   *int64          `db:"variant_id" json:"variantId"`
	ProductName string          `db:"product_name" json:"productName"`
	Size        string          `db:"size" json:"size"`
	Color       string          `db:"color" json:"color"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unitPrice"`
	TotalPrice  decimal.Decimal `db:"total_price" json:"totalPrice"`
}

// Payment methods
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodSTCPay   = "stc-pay"
	PaymentMethodApplePay = "apple-pay"
)

// IsValidPaymentMethod reports whether m is an accepted payment method
func IsValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodSTCPay, PaymentMethodApplePay:
		return true
	}
	return false
}

// Loyalty adjustment operations
const (
	LoyaltyOperationAdd      = "add"
	LoyaltyOperationSubtract = "subtract"
	LoyaltyOperationSet      = "set"
)

// Product defaults
const (
	DefaultSeason = "all"
	DefaultGender = "unisex"
)
