package product

import (
	"context"
	"fmt"

	"farmlink-be/internal/logger"

	"go.uber.org/zap"
)

// LowStockThreshold is the stock level below which a product counts as low.
const LowStockThreshold = 10

type Service interface {
	Get(ctx context.Context, id uint) (*Product, error)
	// Inventory lists a farmer's products. Only the farmer and admins may read it.
	Inventory(ctx context.Context, viewer Viewer, farmerID uint) ([]*Product, error)
	Stats(ctx context.Context, viewer Viewer, farmerID uint) (*InventoryStats, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, id uint) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Inventory(ctx context.Context, viewer Viewer, farmerID uint) ([]*Product, error) {
	if !viewer.Admin && (!viewer.Farmer || viewer.ID != farmerID) {
		logger.FromCtx(ctx).Warn("inventory read denied",
			zap.String("layer", "service"),
			zap.String("method", "Inventory"),
			zap.Uint("viewer_id", viewer.ID),
			zap.Uint("farmer_id", farmerID),
		)
		return nil, fmt.Errorf("%w: farmer %d", ErrForbidden, farmerID)
	}

	products, err := s.repo.ListByFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []*Product{}
	}
	return products, nil
}

func (s *service) Stats(ctx context.Context, viewer Viewer, farmerID uint) (*InventoryStats, error) {
	products, err := s.Inventory(ctx, viewer, farmerID)
	if err != nil {
		return nil, err
	}

	st := &InventoryStats{FarmerID: farmerID, TotalProducts: len(products)}
	for _, p := range products {
		if p.Stock < LowStockThreshold {
			st.LowStockCount++
		}
	}
	return st, nil
}
