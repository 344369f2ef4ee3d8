package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmlink-be/internal/cache"
	"farmlink-be/internal/logger"
	"farmlink-be/internal/metrics"
	"farmlink-be/internal/notification"
	"farmlink-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	PlaceOrder(ctx context.Context, actor Actor, in PlaceOrderInput) (*Order, error)
	Transition(ctx context.Context, req TransitionRequest) (*Order, error)
	// Settle moves a DELIVERED order to COMPLETED and returns the recorded payout split.
	Settle(ctx context.Context, actor Actor, orderID uint) (*Settlement, error)

	Get(ctx context.Context, actor Actor, id uint) (*Order, error)
	ListByRetailer(ctx context.Context, actor Actor, retailerID uint) ([]*Order, error)
	ListByFarmer(ctx context.Context, actor Actor, farmerID uint) ([]*Order, error)
	ListAll(ctx context.Context, actor Actor) ([]*Order, error)
	Stats(ctx context.Context, actor Actor) (*Stats, error)
}

// CommissionSource supplies the platform commission rate at settlement time.
type CommissionSource interface {
	CommissionRate(ctx context.Context) (decimal.Decimal, error)
}

type Notifier interface {
	NotifyMany(ctx context.Context, msgs ...notification.Message) error
}

type ServiceConfig struct {
	CodeLength int
	Cache      *cache.Store
	CacheTTL   time.Duration
	Metrics    *metrics.Registry
}

type service struct {
	repo       Repository
	commission CommissionSource
	notifier   Notifier
	cfg        ServiceConfig
	now        func() time.Time
}

func NewService(repo Repository, commission CommissionSource, notifier Notifier, cfg ServiceConfig) Service {
	if cfg.CodeLength <= 0 || cfg.CodeLength > utils.MaxCodeDigits {
		cfg.CodeLength = 4
	}
	return &service{
		repo:       repo,
		commission: commission,
		notifier:   notifier,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) PlaceOrder(ctx context.Context, actor Actor, in PlaceOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.Uint("actor_id", actor.ID),
		zap.Int("item_count", len(in.Items)),
	)

	if actor.Role != RoleRetailer {
		log.Warn("non-retailer attempted to place order", zap.String("role", string(actor.Role)))
		return nil, fmt.Errorf("%w: only retailers place orders", ErrForbidden)
	}
	in.RetailerID = actor.ID

	if err := validatePlacement(in); err != nil {
		log.Warn("invalid order input", zap.Error(err))
		return nil, err
	}

	o, err := s.repo.Create(ctx, in, s.now())
	if err != nil {
		log.Warn("failed to place order", zap.Error(err))
		return nil, err
	}

	s.cfg.Metrics.Inc("orders.placed")
	s.invalidate(ctx, o)

	log.Info("order placed",
		zap.Uint("order_id", o.ID),
		zap.Uint("farmer_id", o.FarmerID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)

	s.notify(ctx, o.ID,
		notification.To(o.FarmerID, notification.TypeOrder, "New Order Received",
			fmt.Sprintf("You have a new order #%d worth %s.", o.ID, o.TotalAmount.StringFixed(2))),
		notification.ToAdmins("New Order Placed",
			fmt.Sprintf("Order #%d was placed by retailer %d.", o.ID, o.RetailerID)),
	)

	return o, nil
}

func (s *service) Transition(ctx context.Context, req TransitionRequest) (*Order, error) {
	o, _, err := s.transition(ctx, req)
	if err != nil {
		return nil, err
	}
	return redact(o, req.Actor), nil
}

func (s *service) Settle(ctx context.Context, actor Actor, orderID uint) (*Settlement, error) {
	_, settlement, err := s.transition(ctx, TransitionRequest{
		OrderID: orderID,
		Actor:   actor,
		Target:  StatusCompleted,
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *service) transition(ctx context.Context, req TransitionRequest) (*Order, *Settlement, error) {
	timer := metrics.StartTimer()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Transition"),
		zap.Uint("order_id", req.OrderID),
		zap.Uint("actor_id", req.Actor.ID),
		zap.String("actor_role", string(req.Actor.Role)),
		zap.String("target", string(req.Target)),
	)

	if !req.Target.Valid() {
		s.cfg.Metrics.Inc("transition.rejected")
		return nil, nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.Target)
	}

	env := applyEnv{
		now: s.now(),
		newCode: func() (string, error) {
			return utils.GenerateNumericCode(s.cfg.CodeLength)
		},
	}
	if req.Target == StatusCompleted {
		rate, err := s.commission.CommissionRate(ctx)
		if err != nil {
			log.Error("failed to read commission rate", zap.Error(err))
			return nil, nil, err
		}
		env.commissionRate = rate
	}

	var from Status
	o, settlement, err := s.repo.Update(ctx, req.OrderID, func(o *Order) (*Settlement, error) {
		from = o.Status
		return apply(o, req, env)
	})
	if err != nil {
		s.cfg.Metrics.Inc("transition.rejected")
		if errors.Is(err, ErrInvalidCode) {
			s.cfg.Metrics.Inc("delivery_code.mismatch")
			log.Warn("delivery code mismatch")
		} else {
			log.Warn("transition rejected", zap.String("from", string(from)), zap.Error(err))
		}
		return nil, nil, err
	}

	s.cfg.Metrics.Inc("transition." + string(o.Status))
	if settlement != nil {
		s.cfg.Metrics.Inc("settlement.completed")
	}
	s.invalidate(ctx, o)

	log.Info("order transitioned",
		zap.String("from", string(from)),
		zap.String("to", string(o.Status)),
		zap.Duration("duration", timer.Duration()),
	)

	if msgs := transitionMessages(o, req.Actor, settlement); len(msgs) > 0 {
		s.notify(ctx, o.ID, msgs...)
	}

	return o, settlement, nil
}

// transitionMessages builds the notifications for an order that has just entered its
// current status.
func transitionMessages(o *Order, actor Actor, settlement *Settlement) []notification.Message {
	switch o.Status {
	case StatusAccepted:
		return []notification.Message{notification.To(o.RetailerID, notification.TypeOrder,
			"Order Accepted", fmt.Sprintf("Order #%d was accepted by the farmer.", o.ID))}

	case StatusOutForDelivery:
		code := ""
		if o.DeliveryCode != nil {
			code = *o.DeliveryCode
		}
		return []notification.Message{notification.To(o.RetailerID, notification.TypeOrder,
			"Order Out for Delivery",
			fmt.Sprintf("Order #%d is out for delivery. Give the driver code %s on arrival.", o.ID, code))}

	case StatusDelivered:
		return []notification.Message{notification.To(o.FarmerID, notification.TypeOrder,
			"Order Delivered", fmt.Sprintf("Order #%d was delivered to the retailer.", o.ID))}

	case StatusCompleted:
		if settlement == nil {
			return nil
		}
		return []notification.Message{notification.To(o.FarmerID, notification.TypePayout,
			"Payout Processed",
			fmt.Sprintf("Order #%d is complete. %s has been credited to you.", o.ID, settlement.FarmerShare.StringFixed(2)))}

	case StatusCancelled, StatusRejected:
		recipient := o.FarmerID
		if actor.Role == RoleFarmer {
			recipient = o.RetailerID
		}
		title := "Order Cancelled"
		if o.Status == StatusRejected {
			title = "Order Rejected"
		}
		return []notification.Message{notification.To(recipient, notification.TypeOrder,
			title, fmt.Sprintf("Order #%d was %s by the %s.", o.ID, strings.ToLower(string(o.Status)), strings.ToLower(string(actor.Role))))}
	}
	return nil
}

// notify delivers msgs after the write has committed. Failures are logged only.
func (s *service) notify(ctx context.Context, orderID uint, msgs ...notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyMany(ctx, msgs...); err != nil {
		logger.FromCtx(ctx).Error("failed to send order notifications",
			zap.String("layer", "service"),
			zap.Uint("order_id", orderID),
			zap.Error(err),
		)
	}
}

func (s *service) Get(ctx context.Context, actor Actor, id uint) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.owns(actor) {
		return nil, fmt.Errorf("%w: order %d", ErrForbidden, id)
	}
	return redact(o, actor), nil
}

func (s *service) ListByRetailer(ctx context.Context, actor Actor, retailerID uint) ([]*Order, error) {
	if actor.Role != RoleAdmin && (actor.Role != RoleRetailer || actor.ID != retailerID) {
		return nil, fmt.Errorf("%w: orders of retailer %d", ErrForbidden, retailerID)
	}
	return s.cachedList(ctx, actor, retailerKey(retailerID), func() ([]*Order, error) {
		return s.repo.ListByRetailer(ctx, retailerID)
	})
}

func (s *service) ListByFarmer(ctx context.Context, actor Actor, farmerID uint) ([]*Order, error) {
	if actor.Role != RoleAdmin && (actor.Role != RoleFarmer || actor.ID != farmerID) {
		return nil, fmt.Errorf("%w: orders of farmer %d", ErrForbidden, farmerID)
	}
	return s.cachedList(ctx, actor, farmerKey(farmerID), func() ([]*Order, error) {
		return s.repo.ListByFarmer(ctx, farmerID)
	})
}

func (s *service) ListAll(ctx context.Context, actor Actor) ([]*Order, error) {
	if actor.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: admin only", ErrForbidden)
	}
	return s.cachedList(ctx, actor, allKey, func() ([]*Order, error) {
		return s.repo.ListAll(ctx)
	})
}

func (s *service) Stats(ctx context.Context, actor Actor) (*Stats, error) {
	if actor.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: admin only", ErrForbidden)
	}

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		ByStatus: make(map[Status]int64, len(Statuses)),
		Counters: s.cfg.Metrics.Snapshot(),
	}
	for _, status := range Statuses {
		st.ByStatus[status] = counts[status]
		st.TotalOrders += counts[status]
	}
	return st, nil
}

const allKey = "orders:all"

func retailerKey(id uint) string { return fmt.Sprintf("orders:retailer:%d", id) }
func farmerKey(id uint) string   { return fmt.Sprintf("orders:farmer:%d", id) }

// cachedList serves a list from the cache when possible. The cache holds the
// unredacted rows, so redaction happens per caller on every read.
func (s *service) cachedList(ctx context.Context, actor Actor, key string, load func() ([]*Order, error)) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("cache_key", key),
	)

	var orders []*Order
	hit, err := s.cfg.Cache.GetJSON(ctx, key, &orders)
	if err != nil {
		log.Warn("order cache read failed", zap.Error(err))
	}

	if !hit {
		gen, genErr := s.cfg.Cache.Generation(ctx, key)
		if genErr != nil {
			log.Warn("order cache generation read failed", zap.Error(genErr))
		}

		orders, err = load()
		if err != nil {
			return nil, err
		}

		// A write committed during load bumps the generation and the stale rows are dropped.
		if genErr == nil {
			if _, err := s.cfg.Cache.SetJSONAt(ctx, key, gen, orders, s.cfg.CacheTTL); err != nil {
				log.Warn("order cache write failed", zap.Error(err))
			}
		}
	}

	out := make([]*Order, len(orders))
	for i, o := range orders {
		out[i] = redact(o, actor)
	}
	return out, nil
}

func (s *service) invalidate(ctx context.Context, o *Order) {
	err := s.cfg.Cache.Invalidate(ctx, retailerKey(o.RetailerID), farmerKey(o.FarmerID), allKey)
	if err != nil {
		logger.FromCtx(ctx).Warn("order cache invalidation failed",
			zap.Uint("order_id", o.ID),
			zap.Error(err),
		)
	}
}

// redact hides the delivery code from everyone except the order's retailer.
func redact(o *Order, actor Actor) *Order {
	if o.DeliveryCode == nil || (actor.Role == RoleRetailer && actor.ID == o.RetailerID) {
		return o
	}
	c := o.clone()
	c.DeliveryCode = nil
	return c
}
