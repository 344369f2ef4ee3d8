package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// MaxCommissionPlaces is the precision a payout row stores the rate at.
const MaxCommissionPlaces = 4

// ValidCommissionRate reports whether 0 <= rate < 1 with at most four decimal places.
func ValidCommissionRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThan(one) && rate.Equal(rate.Truncate(MaxCommissionPlaces))
}

// ComputeSettlement splits total into the platform commission, rounded to cents, and the
// farmer share, which takes the remainder so the two always add back up to total.
func ComputeSettlement(total, rate decimal.Decimal) (Settlement, error) {
	if !ValidCommissionRate(rate) {
		return Settlement{}, fmt.Errorf("%w: commission rate %s out of range", ErrValidation, rate)
	}
	if total.IsNegative() {
		return Settlement{}, fmt.Errorf("%w: negative order total", ErrValidation)
	}

	commission := total.Mul(rate).Round(2)
	return Settlement{
		TotalAmount:        total,
		CommissionRate:     rate,
		PlatformCommission: commission,
		FarmerShare:        total.Sub(commission),
	}, nil
}
