package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"farmlink-be/internal/logger"
	"farmlink-be/internal/product"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// MutateFunc changes a locked order in memory. Returning an error aborts the write.
type MutateFunc func(o *Order) (*Settlement, error)

type Repository interface {
	Create(ctx context.Context, in PlaceOrderInput, now time.Time) (*Order, error)
	GetByID(ctx context.Context, id uint) (*Order, error)
	ListByRetailer(ctx context.Context, retailerID uint) ([]*Order, error)
	ListByFarmer(ctx context.Context, farmerID uint) ([]*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)

	// Update loads the order under a row lock, applies fn and persists the result,
	// together with the payout when fn returns a settlement, in one transaction.
	Update(ctx context.Context, id uint, fn MutateFunc) (*Order, *Settlement, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const orderColumns = `
	id, retailer_id, farmer_id, total_amount, order_date,
	shipping_address, contact_number, status, pickup_address,
	delivery_code, delivery_code_used_at, payment_ref, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.RetailerID, &o.FarmerID, &o.TotalAmount, &o.OrderDate,
		&o.ShippingAddress, &o.ContactNumber, &o.Status, &o.PickupAddress,
		&o.DeliveryCode, &o.DeliveryCodeUsedAt, &o.PaymentRef, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func toInt64s(ids []uint) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func (r *repository) Create(ctx context.Context, in PlaceOrderInput, now time.Time) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.Uint("retailer_id", in.RetailerID),
		zap.Int("item_count", len(in.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	// 1. Lock the product rows so stock checks and decrements see a stable value
	products, err := lockProducts(ctx, tx, in.productIDs())
	if err != nil {
		log.Error("failed to lock products", zap.Error(err))
		return nil, err
	}

	// 2. Validate ownership and stock, snapshot prices
	o, err := assemble(in, products, now)
	if err != nil {
		log.Warn("order rejected", zap.Error(err))
		return nil, err
	}

	// 3. Deduct stock
	for _, item := range o.Items {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1
			WHERE id = $2 AND stock >= $1
		`, item.Quantity, item.ProductID)
		if err != nil {
			log.Error("failed to deduct stock", zap.Uint("product_id", item.ProductID), zap.Error(err))
			return nil, err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return nil, fmt.Errorf("%w for product %d", ErrInsufficientStock, item.ProductID)
		}
	}

	// 4. Insert order
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			retailer_id, farmer_id, total_amount, order_date,
			shipping_address, contact_number, status, payment_ref, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`,
		o.RetailerID,
		o.FarmerID,
		o.TotalAmount,
		o.OrderDate,
		o.ShippingAddress,
		o.ContactNumber,
		o.Status,
		o.PaymentRef,
		o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return nil, err
	}

	// 5. Insert line items
	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, product_name, quantity, unit_price
			) VALUES ($1,$2,$3,$4,$5)
		`, o.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice)
		if err != nil {
			log.Error("failed to insert order item", zap.Uint("product_id", item.ProductID), zap.Error(err))
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order", zap.Error(err))
		return nil, err
	}
	committed = true

	log.Info("order created",
		zap.Uint("order_id", o.ID),
		zap.Uint("farmer_id", o.FarmerID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	return o, nil
}

func lockProducts(ctx context.Context, tx *sql.Tx, ids []uint) (map[uint]*product.Product, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, farmer_id, name, price, stock
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, pq.Array(toInt64s(ids)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[uint]*product.Product, len(ids))
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.FarmerID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		products[p.ID] = &p
	}
	return products, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := attachItems(ctx, r.db, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) ListByRetailer(ctx context.Context, retailerID uint) ([]*Order, error) {
	return r.list(ctx, "ListByRetailer", ` WHERE retailer_id = $1`, retailerID)
}

func (r *repository) ListByFarmer(ctx context.Context, farmerID uint) ([]*Order, error) {
	return r.list(ctx, "ListByFarmer", ` WHERE farmer_id = $1`, farmerID)
}

func (r *repository) ListAll(ctx context.Context) ([]*Order, error) {
	return r.list(ctx, "ListAll", "")
}

func (r *repository) list(ctx context.Context, method, where string, args ...any) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", method),
	)

	rows, err := r.db.QueryContext(ctx,
		`SELECT`+orderColumns+` FROM orders`+where+` ORDER BY order_date DESC, id DESC`,
		args...,
	)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, err
	}
	rows.Close()

	if err := attachItems(ctx, r.db, orders); err != nil {
		log.Error("failed to load order items", zap.Error(err))
		return nil, err
	}

	log.Debug("orders loaded", zap.Int("count", len(orders)))
	return orders, nil
}

// attachItems loads the line items of all given orders with a single query.
func attachItems(ctx context.Context, q querier, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uint, len(orders))
	byID := make(map[uint]*Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []Item{}
	}

	rows, err := q.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, pq.Array(toInt64s(ids)))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uint
			item    Item
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var (
			s Status
			n int64
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *repository) Update(ctx context.Context, id uint, fn MutateFunc) (*Order, *Settlement, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Update"),
		zap.Uint("order_id", id),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	o, err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrOrderNotFound
	}
	if err != nil {
		log.Error("failed to lock order", zap.Error(err))
		return nil, nil, err
	}
	if err := attachItems(ctx, tx, []*Order{o}); err != nil {
		return nil, nil, err
	}

	from := o.Status
	settlement, err := fn(o)
	if err != nil {
		return nil, nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET
			status = $1,
			pickup_address = $2,
			delivery_code = $3,
			delivery_code_used_at = $4,
			updated_at = $5
		WHERE id = $6
		  AND status = $7
	`,
		o.Status,
		o.PickupAddress,
		o.DeliveryCode,
		o.DeliveryCodeUsedAt,
		o.UpdatedAt,
		o.ID,
		from,
	)
	if err != nil {
		log.Error("failed to update order", zap.Error(err))
		return nil, nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, nil, ErrConflict
	}

	if settlement != nil {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO payouts (
				order_id, farmer_id, amount, commission, commission_rate, created_at
			) VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (order_id) DO NOTHING
		`,
			settlement.OrderID,
			settlement.FarmerID,
			settlement.FarmerShare,
			settlement.PlatformCommission,
			settlement.CommissionRate,
			settlement.SettledAt,
		)
		if err != nil {
			log.Error("failed to record payout", zap.Error(err))
			return nil, nil, err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return nil, nil, ErrAlreadySettled
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transition", zap.Error(err))
		return nil, nil, err
	}
	committed = true

	return o, settlement, nil
}
