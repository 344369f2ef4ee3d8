package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payout is the ledger entry written when an order is settled. One per order.
type Payout struct {
	ID             uint            `json:"id"`
	OrderID        uint            `json:"orderId"`
	FarmerID       uint            `json:"farmerId"`
	Amount         decimal.Decimal `json:"amount"`
	Commission     decimal.Decimal `json:"commission"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type Earnings struct {
	FarmerID uint            `json:"farmerId"`
	Total    decimal.Decimal `json:"total"`
	Payouts  []*Payout       `json:"payouts"`
}
