package service

import "github.com/shopspring/decimal"

// Loyalty tiers by point balance
const (
	PremiumTierPoints = 200
	ActiveTierPoints  = 100

	TierPremium = "premium"
	TierActive  = "active"
	TierRegular = "regular"
)

var (
	premiumDiscount = decimal.RequireFromString("0.05")
	activeDiscount  = decimal.RequireFromString("0.02")

	pointValue = decimal.NewFromInt(10)
)

// LoyaltyTier names the tier for a point balance
func LoyaltyTier(points int) string {
	switch {
	case points >= PremiumTierPoints:
		return TierPremium
	case points >= ActiveTierPoints:
		return TierActive
	default:
		return TierRegular
	}
}

// DiscountRate returns the fraction taken off a purchase for a point balance
func DiscountRate(points int) decimal.Decimal {
	switch LoyaltyTier(points) {
	case TierPremium:
		return premiumDiscount
	case TierActive:
		return activeDiscount
	default:
		return decimal.Zero
	}
}

// ApplyDiscount splits total into the discount, rounded to cents, and the
// chargeable remainder
func ApplyDiscount(total, rate decimal.Decimal) (discount, final decimal.Decimal) {
	discount = total.Mul(rate).Round(2)
	return discount, total.Sub(discount)
}

// PointsEarned awards one point per full 10 currency units of final spend
func PointsEarned(final decimal.Decimal) int {
	if !final.IsPositive() {
		return 0
	}
	return int(final.Div(pointValue).Floor().IntPart())
}
