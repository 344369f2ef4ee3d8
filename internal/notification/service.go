package notification

import (
	"context"
	"fmt"

	"farmlink-be/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentWrites = 4

type Service interface {
	Notify(ctx context.Context, m Message) (*Notification, error)
	// NotifyMany stores every message, writing up to four at a time. The first failure
	// is returned after all writes have finished.
	NotifyMany(ctx context.Context, msgs ...Message) error
	ListForUser(ctx context.Context, userID uint, isAdmin bool) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id uint) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Notify(ctx context.Context, m Message) (*Notification, error) {
	if m.UserID == nil && m.Type != TypeAdmin {
		return nil, fmt.Errorf("notification %q has no recipient", m.Title)
	}
	return s.repo.Create(ctx, m)
}

func (s *service) NotifyMany(ctx context.Context, msgs ...Message) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "NotifyMany"),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentWrites)

	for _, m := range msgs {
		g.Go(func() error {
			if _, err := s.Notify(gctx, m); err != nil {
				log.Error("failed to store notification",
					zap.String("title", m.Title),
					zap.String("type", string(m.Type)),
					zap.Error(err),
				)
				return fmt.Errorf("notify %q: %w", m.Title, err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *service) ListForUser(ctx context.Context, userID uint, isAdmin bool) ([]*Notification, error) {
	return s.repo.ListForUser(ctx, userID, isAdmin)
}

func (s *service) MarkRead(ctx context.Context, userID, id uint) error {
	return s.repo.MarkRead(ctx, userID, id)
}
