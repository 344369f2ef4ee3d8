package product

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, id uint) (*Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

func (m *MockRepository) ListByFarmer(ctx context.Context, farmerID uint) ([]*Product, error) {
	args := m.Called(ctx, farmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Product), args.Error(1)
}

func (m *MockRepository) UpdateRating(ctx context.Context, productID uint, average float64, total int) error {
	return m.Called(ctx, productID, average, total).Error(0)
}

func inventory() []*Product {
	return []*Product{
		{ID: 5, FarmerID: 20, Name: "Tomatoes", Price: decimal.RequireFromString("45.50"), Stock: 120},
		{ID: 6, FarmerID: 20, Name: "Okra", Price: decimal.RequireFromString("30.00"), Stock: 9},
		{ID: 7, FarmerID: 20, Name: "Squash", Price: decimal.RequireFromString("25.00"), Stock: 0},
	}
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo)

	repo.On("GetByID", ctx, uint(5)).Return(inventory()[0], nil)
	repo.On("GetByID", ctx, uint(99)).Return(nil, ErrProductNotFound)

	p, err := svc.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Tomatoes", p.Name)

	_, err = svc.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrProductNotFound)
	repo.AssertExpectations(t)
}

func TestService_Inventory(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		viewer  Viewer
		wantErr error
	}{
		{"owner", Viewer{ID: 20, Farmer: true}, nil},
		{"admin", Viewer{ID: 1, Admin: true}, nil},
		{"other farmer", Viewer{ID: 21, Farmer: true}, ErrForbidden},
		{"retailer with same id", Viewer{ID: 20}, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := NewService(repo)
			if tt.wantErr == nil {
				repo.On("ListByFarmer", ctx, uint(20)).Return(inventory(), nil)
			}

			list, err := svc.Inventory(ctx, tt.viewer, 20)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "ListByFarmer", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Len(t, list, 3)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_InventoryEmpty(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("ListByFarmer", ctx, uint(20)).Return(nil, nil)

	list, err := NewService(repo).Inventory(ctx, Viewer{ID: 20, Farmer: true}, 20)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("ListByFarmer", ctx, uint(20)).Return(inventory(), nil)

	st, err := NewService(repo).Stats(ctx, Viewer{ID: 20, Farmer: true}, 20)
	require.NoError(t, err)
	assert.Equal(t, &InventoryStats{FarmerID: 20, TotalProducts: 3, LowStockCount: 2}, st)

	_, err = NewService(repo).Stats(ctx, Viewer{ID: 10, Farmer: true}, 20)
	assert.ErrorIs(t, err, ErrForbidden)
}
