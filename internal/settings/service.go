package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmlink-be/internal/logger"
	"farmlink-be/internal/order"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	// CommissionRate returns the stored rate, or the configured default when none is
	// stored or the stored value is unusable.
	CommissionRate(ctx context.Context) (decimal.Decimal, error)
	SetCommissionRate(ctx context.Context, actor order.Actor, rate decimal.Decimal) error
}

type service struct {
	repo        Repository
	defaultRate decimal.Decimal
}

func NewService(repo Repository, defaultRate decimal.Decimal) Service {
	return &service{repo: repo, defaultRate: defaultRate}
}

func (s *service) CommissionRate(ctx context.Context) (decimal.Decimal, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CommissionRate"),
	)

	raw, err := s.repo.Get(ctx, keyCommissionRate)
	if errors.Is(err, ErrSettingNotFound) {
		return s.defaultRate, nil
	}
	if err != nil {
		log.Error("failed to read commission rate", zap.Error(err))
		return decimal.Zero, err
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil || !order.ValidCommissionRate(rate) {
		log.Warn("stored commission rate is invalid, using default",
			zap.String("stored", raw),
			zap.String("default", s.defaultRate.String()),
		)
		return s.defaultRate, nil
	}
	return rate, nil
}

func (s *service) SetCommissionRate(ctx context.Context, actor order.Actor, rate decimal.Decimal) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SetCommissionRate"),
		zap.Uint("actor_id", actor.ID),
	)

	if actor.Role != order.RoleAdmin {
		return fmt.Errorf("%w: admin only", order.ErrForbidden)
	}
	if !order.ValidCommissionRate(rate) {
		return fmt.Errorf("%w: commission rate must be in [0, 1) with at most %d decimal places",
			order.ErrValidation, order.MaxCommissionPlaces)
	}

	if err := s.repo.Set(ctx, keyCommissionRate, rate.String(), actor.ID, time.Now().UTC()); err != nil {
		log.Error("failed to store commission rate", zap.Error(err))
		return err
	}

	log.Info("commission rate updated", zap.String("rate", rate.String()))
	return nil
}
