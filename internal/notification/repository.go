package notification

import (
	"context"
	"database/sql"
)

type Repository interface {
	Create(ctx context.Context, m Message) (*Notification, error)
	ListForUser(ctx context.Context, userID uint, includeAdmin bool) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, m Message) (*Notification, error) {
	n := &Notification{
		UserID:  m.UserID,
		Title:   m.Title,
		Message: m.Message,
		Type:    m.Type,
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, title, message, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_read, created_at
	`, m.UserID, m.Title, m.Message, m.Type).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uint, includeAdmin bool) ([]*Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, message, type, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		   OR ($2 AND user_id IS NULL)
		ORDER BY created_at DESC, id DESC
		LIMIT 100
	`, userID, includeAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

func (r *repository) MarkRead(ctx context.Context, userID, id uint) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
