package feedback

import (
	"context"
	"fmt"
	"time"

	"farmlink-be/internal/logger"
	"farmlink-be/internal/notification"
	"farmlink-be/internal/order"

	"go.uber.org/zap"
)

type Service interface {
	// Submit creates or replaces the actor's review of one product of a completed
	// order, then refreshes the product's rating. It reports whether the review is new.
	Submit(ctx context.Context, actor order.Actor, in SubmitInput) (*Feedback, bool, error)
	ListByProduct(ctx context.Context, productID uint) ([]*Feedback, error)
}

type OrderReader interface {
	GetByID(ctx context.Context, id uint) (*order.Order, error)
}

type RatingUpdater interface {
	UpdateRating(ctx context.Context, productID uint, average float64, total int) error
}

type Notifier interface {
	Notify(ctx context.Context, m notification.Message) (*notification.Notification, error)
}

type service struct {
	repo     Repository
	orders   OrderReader
	products RatingUpdater
	notifier Notifier
}

func NewService(repo Repository, orders OrderReader, products RatingUpdater, notifier Notifier) Service {
	return &service{repo: repo, orders: orders, products: products, notifier: notifier}
}

func (s *service) Submit(ctx context.Context, actor order.Actor, in SubmitInput) (*Feedback, bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Submit"),
		zap.Uint("order_id", in.OrderID),
		zap.Uint("product_id", in.ProductID),
	)

	if in.Rating < 1 || in.Rating > 5 {
		return nil, false, ErrInvalidRating
	}

	o, err := s.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, false, err
	}
	if actor.Role != order.RoleRetailer || o.RetailerID != actor.ID {
		return nil, false, fmt.Errorf("%w: only the ordering retailer can review order %d", order.ErrForbidden, o.ID)
	}
	if o.Status != order.StatusCompleted {
		return nil, false, ErrOrderNotCompleted
	}
	if !o.HasProduct(in.ProductID) {
		return nil, false, fmt.Errorf("%w: product %d is not part of order %d", order.ErrValidation, in.ProductID, o.ID)
	}

	f := &Feedback{
		OrderID:    o.ID,
		ProductID:  in.ProductID,
		RetailerID: actor.ID,
		Rating:     in.Rating,
		Comment:    in.Comment,
	}
	created, err := s.repo.Upsert(ctx, f, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}

	sum, err := s.repo.Summarize(ctx, in.ProductID)
	if err != nil {
		log.Error("failed to summarize ratings", zap.Error(err))
		return nil, false, err
	}
	if err := s.products.UpdateRating(ctx, in.ProductID, sum.Average, sum.Count); err != nil {
		log.Error("failed to update product rating", zap.Error(err))
		return nil, false, err
	}

	log.Info("feedback stored",
		zap.Bool("created", created),
		zap.Int("rating", in.Rating),
		zap.Float64("average", sum.Average),
	)

	if s.notifier != nil {
		msg := notification.To(o.FarmerID, notification.TypeFeedback, "New Feedback",
			fmt.Sprintf("A retailer rated a product from order #%d %d/5.", o.ID, in.Rating))
		if _, err := s.notifier.Notify(ctx, msg); err != nil {
			log.Error("failed to notify farmer", zap.Error(err))
		}
	}

	return f, created, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uint) ([]*Feedback, error) {
	if productID == 0 {
		return nil, fmt.Errorf("%w: product id is required", order.ErrValidation)
	}
	return s.repo.ListByProduct(ctx, productID)
}
