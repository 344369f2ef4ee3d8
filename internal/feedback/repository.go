package feedback

import (
	"context"
	"database/sql"
	"time"

	"farmlink-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	// Upsert stores one review per (order, product). It reports whether a new row was created.
	Upsert(ctx context.Context, f *Feedback, now time.Time) (bool, error)
	ListByProduct(ctx context.Context, productID uint) ([]*Feedback, error)
	Summarize(ctx context.Context, productID uint) (Summary, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Upsert(ctx context.Context, f *Feedback, now time.Time) (bool, error) {
	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO feedback (order_id, product_id, retailer_id, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (order_id, product_id) DO UPDATE
		SET rating = EXCLUDED.rating,
		    comment = EXCLUDED.comment,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`, f.OrderID, f.ProductID, f.RetailerID, f.Rating, f.Comment, now).
		Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt, &created)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to upsert feedback",
			zap.String("layer", "repository"),
			zap.Uint("order_id", f.OrderID),
			zap.Uint("product_id", f.ProductID),
			zap.Error(err),
		)
		return false, err
	}
	return created, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uint) ([]*Feedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, retailer_id, rating, comment, created_at, updated_at
		FROM feedback
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Feedback{}
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.OrderID, &f.ProductID, &f.RetailerID, &f.Rating, &f.Comment, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &f)
	}
	return list, rows.Err()
}

func (r *repository) Summarize(ctx context.Context, productID uint) (Summary, error) {
	var s Summary
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM feedback
		WHERE product_id = $1
	`, productID).Scan(&s.Average, &s.Count)
	return s, err
}
