package payment

import (
	"context"
	"database/sql"
	"errors"

	"farmlink-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Repository reads the payout ledger. Rows are inserted by the order settlement
// transaction.
type Repository interface {
	GetByOrder(ctx context.Context, orderID uint) (*Payout, error)
	ListByFarmer(ctx context.Context, farmerID uint) ([]*Payout, error)
	TotalForFarmer(ctx context.Context, farmerID uint) (decimal.Decimal, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const payoutColumns = `id, order_id, farmer_id, amount, commission, commission_rate, created_at`

func scanPayout(row interface{ Scan(...any) error }) (*Payout, error) {
	var p Payout
	err := row.Scan(&p.ID, &p.OrderID, &p.FarmerID, &p.Amount, &p.Commission, &p.CommissionRate, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByOrder(ctx context.Context, orderID uint) (*Payout, error) {
	p, err := scanPayout(r.db.QueryRowContext(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE order_id = $1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPayoutNotFound
	}
	return p, err
}

func (r *repository) ListByFarmer(ctx context.Context, farmerID uint) ([]*Payout, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListByFarmer"),
		zap.Uint("farmer_id", farmerID),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+payoutColumns+`
		FROM payouts
		WHERE farmer_id = $1
		ORDER BY created_at DESC, id DESC
	`, farmerID)
	if err != nil {
		log.Error("failed to query payouts", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	payouts := []*Payout{}
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			log.Error("failed to scan payout", zap.Error(err))
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

func (r *repository) TotalForFarmer(ctx context.Context, farmerID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payouts WHERE farmer_id = $1`, farmerID).Scan(&total)
	return total, err
}
