package payment

import (
	"context"
	"fmt"

	"farmlink-be/internal/order"
)

type Service interface {
	// Earnings returns a farmer's payouts, newest first, and their sum.
	Earnings(ctx context.Context, actor order.Actor, farmerID uint) (*Earnings, error)
	GetByOrder(ctx context.Context, actor order.Actor, orderID uint) (*Payout, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func canView(actor order.Actor, farmerID uint) bool {
	return actor.Role == order.RoleAdmin || (actor.Role == order.RoleFarmer && actor.ID == farmerID)
}

func (s *service) Earnings(ctx context.Context, actor order.Actor, farmerID uint) (*Earnings, error) {
	if !canView(actor, farmerID) {
		return nil, fmt.Errorf("%w: payouts of farmer %d", order.ErrForbidden, farmerID)
	}

	payouts, err := s.repo.ListByFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.TotalForFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	return &Earnings{FarmerID: farmerID, Total: total, Payouts: payouts}, nil
}

func (s *service) GetByOrder(ctx context.Context, actor order.Actor, orderID uint) (*Payout, error) {
	p, err := s.repo.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, p.FarmerID) {
		return nil, fmt.Errorf("%w: payout of order %d", order.ErrForbidden, orderID)
	}
	return p, nil
}
