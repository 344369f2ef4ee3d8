package product

import (
	"context"
	"database/sql"
	"errors"

	"farmlink-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id uint) (*Product, error)
	ListByFarmer(ctx context.Context, farmerID uint) ([]*Product, error)
	UpdateRating(ctx context.Context, productID uint, average float64, total int) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `
	id, farmer_id, name, description, category, unit,
	price, stock, image_url, average_rating, total_reviews`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.FarmerID, &p.Name, &p.Description, &p.Category, &p.Unit,
		&p.Price, &p.Stock, &p.ImageURL, &p.AverageRating, &p.TotalReviews,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (r *repository) ListByFarmer(ctx context.Context, farmerID uint) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+productColumns+` FROM products WHERE farmer_id = $1 ORDER BY id`,
		farmerID,
	)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query products",
			zap.String("layer", "repository"),
			zap.Uint("farmer_id", farmerID),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (r *repository) UpdateRating(ctx context.Context, productID uint, average float64, total int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET average_rating = $1, total_reviews = $2 WHERE id = $3`,
		average, total, productID,
	)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
