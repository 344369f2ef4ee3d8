// Package transport binds the order engine and its supporting services to a JSON
// HTTP API.
package transport

import (
	"context"
	"net/http"
	"time"

	"farmlink-be/internal/feedback"
	"farmlink-be/internal/notification"
	"farmlink-be/internal/order"
	"farmlink-be/internal/payment"
	"farmlink-be/internal/product"
	"farmlink-be/internal/settings"
	"farmlink-be/internal/utils"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Services struct {
	Orders        order.Service
	Products      product.Service
	Feedback      feedback.Service
	Payouts       payment.Service
	Notifications notification.Service
	Settings      settings.Service
	DB            Pinger
}

// Handler serves the HTTP API.
type Handler struct {
	svc            Services
	requestTimeout time.Duration
}

// New returns a Handler. It panics if the order service is nil. A non-positive
// requestTimeout falls back to five seconds.
func New(svc Services, requestTimeout time.Duration) *Handler {
	if svc.Orders == nil {
		panic("transport.New: nil order service")
	}
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second
	}
	return &Handler{svc: svc, requestTimeout: requestTimeout}
}

type apiFunc func(w http.ResponseWriter, r *http.Request, actor order.Actor) error

// authed runs fn with a request deadline and the authenticated actor, and renders
// any returned error.
func (h *Handler) authed(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, r, errUnauthenticated)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		if err := fn(w, r.WithContext(ctx), actor); err != nil {
			writeError(w, r, err)
		}
	}
}

func pathID(r *http.Request, name string) (uint, error) {
	id, err := utils.ParseID(r.PathValue(name))
	if err != nil {
		return 0, errInvalidID(name)
	}
	return id, nil
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	o, err := h.svc.Orders.PlaceOrder(r.Context(), actor, req.toInput())
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusCreated, o)
	return nil
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	o, err := h.svc.Orders.Get(r.Context(), actor, id)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, o)
	return nil
}

func (h *Handler) listRetailerOrders(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	id, err := pathID(r, "retailerId")
	if err != nil {
		return err
	}

	orders, err := h.svc.Orders.ListByRetailer(r.Context(), actor, id)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, orders)
	return nil
}

func (h *Handler) listFarmerOrders(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	id, err := pathID(r, "farmerId")
	if err != nil {
		return err
	}

	orders, err := h.svc.Orders.ListByFarmer(r.Context(), actor, id)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, orders)
	return nil
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	orders, err := h.svc.Orders.ListAll(r.Context(), actor)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, orders)
	return nil
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	target, err := parseStatus(req.Status)
	if err != nil {
		return err
	}
	expected, err := parseStatus(req.ExpectedFrom)
	if err != nil {
		return err
	}

	o, err := h.svc.Orders.Transition(r.Context(), order.TransitionRequest{
		OrderID: id,
		Actor:   actor,
		Target:  target,
		Extra: order.Extra{
			PickupAddress: req.PickupAddress,
			DeliveryCode:  req.DeliveryCode,
			ExpectedFrom:  expected,
		},
	})
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, o)
	return nil
}

func (h *Handler) verifyDelivery(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	var req verifyDeliveryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	o, err := h.svc.Orders.Transition(r.Context(), order.TransitionRequest{
		OrderID: id,
		Actor:   actor,
		Target:  order.StatusDelivered,
		Extra:   order.Extra{DeliveryCode: req.DeliveryCode, ExpectedFrom: order.StatusOutForDelivery},
	})
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, o)
	return nil
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	s, err := h.svc.Orders.Settle(r.Context(), actor, id)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, s)
	return nil
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	st, err := h.svc.Orders.Stats(r.Context(), actor)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, st)
	return nil
}

func viewer(actor order.Actor) product.Viewer {
	return product.Viewer{
		ID:     actor.ID,
		Admin:  actor.Role == order.RoleAdmin,
		Farmer: actor.Role == order.RoleFarmer,
	}
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request, _ order.Actor) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	p, err := h.svc.Products.Get(r.Context(), id)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, p)
	return nil
}

func (h *Handler) farmerInventory(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	id, err := pathID(r, "farmerId")
	if err != nil {
		return err
	}

	list, err := h.svc.Products.Inventory(r.Context(), viewer(actor), id)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, list)
	return nil
}

func (h *Handler) farmerInventoryStats(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	id, err := pathID(r, "farmerId")
	if err != nil {
		return err
	}

	st, err := h.svc.Products.Stats(r.Context(), viewer(actor), id)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, st)
	return nil
}

type commissionResponse struct {
	CommissionRate string `json:"commissionRate"`
}

func (h *Handler) getCommission(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	if actor.Role != order.RoleAdmin {
		return order.ErrForbidden
	}
	rate, err := h.svc.Settings.CommissionRate(r.Context())
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, commissionResponse{CommissionRate: rate.String()})
	return nil
}

func (h *Handler) setCommission(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	var req commissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := h.svc.Settings.SetCommissionRate(r.Context(), actor, *req.Rate); err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, commissionResponse{CommissionRate: req.Rate.String()})
	return nil
}

func (h *Handler) farmerPayouts(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	id, err := pathID(r, "farmerId")
	if err != nil {
		return err
	}

	e, err := h.svc.Payouts.Earnings(r.Context(), actor, id)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, e)
	return nil
}

func (h *Handler) orderPayout(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	p, err := h.svc.Payouts.GetByOrder(r.Context(), actor, id)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, p)
	return nil
}

func (h *Handler) submitFeedback(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	f, created, err := h.svc.Feedback.Submit(r.Context(), actor, feedback.SubmitInput{
		OrderID:   req.OrderID,
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	utils.WriteJSON(w, status, f)
	return nil
}

func (h *Handler) productFeedback(w http.ResponseWriter, r *http.Request, _ order.Actor) error {
	id, err := pathID(r, "productId")
	if err != nil {
		return err
	}

	list, err := h.svc.Feedback.ListByProduct(r.Context(), id)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, list)
	return nil
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	list, err := h.svc.Notifications.ListForUser(r.Context(), actor.ID, actor.Role == order.RoleAdmin)
	if err != nil {
		return err
	}
	utils.WriteJSON(w, http.StatusOK, list)
	return nil
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request, actor order.Actor) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	if err := h.svc.Notifications.MarkRead(r.Context(), actor.ID, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.svc.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.svc.DB.PingContext(ctx); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
