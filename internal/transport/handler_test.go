package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"farmlink-be/internal/feedback"
	"farmlink-be/internal/notification"
	"farmlink-be/internal/order"
	"farmlink-be/internal/payment"
	"farmlink-be/internal/product"
	"farmlink-be/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stubs ---

type stubOrders struct {
	order      *order.Order
	settlement *order.Settlement
	err        error

	lastReq   order.TransitionRequest
	lastPlace order.PlaceOrderInput
	lastActor order.Actor
}

func (s *stubOrders) PlaceOrder(_ context.Context, a order.Actor, in order.PlaceOrderInput) (*order.Order, error) {
	s.lastActor, s.lastPlace = a, in
	return s.order, s.err
}

func (s *stubOrders) Transition(_ context.Context, req order.TransitionRequest) (*order.Order, error) {
	s.lastReq = req
	return s.order, s.err
}

func (s *stubOrders) Settle(_ context.Context, a order.Actor, id uint) (*order.Settlement, error) {
	s.lastActor = a
	s.lastReq = order.TransitionRequest{OrderID: id, Actor: a, Target: order.StatusCompleted}
	return s.settlement, s.err
}

func (s *stubOrders) Get(_ context.Context, a order.Actor, id uint) (*order.Order, error) {
	s.lastActor = a
	s.lastReq.OrderID = id
	return s.order, s.err
}

func (s *stubOrders) ListByRetailer(_ context.Context, a order.Actor, _ uint) ([]*order.Order, error) {
	s.lastActor = a
	return []*order.Order{s.order}, s.err
}

func (s *stubOrders) ListByFarmer(_ context.Context, a order.Actor, _ uint) ([]*order.Order, error) {
	s.lastActor = a
	return []*order.Order{s.order}, s.err
}

func (s *stubOrders) ListAll(_ context.Context, a order.Actor) ([]*order.Order, error) {
	s.lastActor = a
	return []*order.Order{s.order}, s.err
}

func (s *stubOrders) Stats(_ context.Context, _ order.Actor) (*order.Stats, error) {
	return &order.Stats{TotalOrders: 3, ByStatus: map[order.Status]int64{order.StatusPending: 3}}, s.err
}

type stubProducts struct {
	lastViewer product.Viewer
}

func (s *stubProducts) allowed(v product.Viewer, farmerID uint) error {
	s.lastViewer = v
	if !v.Admin && (!v.Farmer || v.ID != farmerID) {
		return product.ErrForbidden
	}
	return nil
}

func (s *stubProducts) Get(_ context.Context, id uint) (*product.Product, error) {
	if id != 5 {
		return nil, product.ErrProductNotFound
	}
	return &product.Product{ID: 5, FarmerID: 20, Name: "Tomatoes", Stock: 120}, nil
}

func (s *stubProducts) Inventory(_ context.Context, v product.Viewer, farmerID uint) ([]*product.Product, error) {
	if err := s.allowed(v, farmerID); err != nil {
		return nil, err
	}
	return []*product.Product{{ID: 5, FarmerID: farmerID, Stock: 120}, {ID: 6, FarmerID: farmerID, Stock: 3}}, nil
}

func (s *stubProducts) Stats(_ context.Context, v product.Viewer, farmerID uint) (*product.InventoryStats, error) {
	if err := s.allowed(v, farmerID); err != nil {
		return nil, err
	}
	return &product.InventoryStats{FarmerID: farmerID, TotalProducts: 2, LowStockCount: 1}, nil
}

type stubFeedback struct {
	created bool
	err     error
	last    feedback.SubmitInput
}

func (s *stubFeedback) Submit(_ context.Context, _ order.Actor, in feedback.SubmitInput) (*feedback.Feedback, bool, error) {
	s.last = in
	if s.err != nil {
		return nil, false, s.err
	}
	return &feedback.Feedback{ID: 1, OrderID: in.OrderID, ProductID: in.ProductID, Rating: in.Rating}, s.created, nil
}

func (s *stubFeedback) ListByProduct(_ context.Context, _ uint) ([]*feedback.Feedback, error) {
	return []*feedback.Feedback{{ID: 1}}, s.err
}

type stubPayouts struct{ err error }

func (s *stubPayouts) Earnings(_ context.Context, _ order.Actor, farmerID uint) (*payment.Earnings, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &payment.Earnings{FarmerID: farmerID, Total: decimal.RequireFromString("900.00")}, nil
}

func (s *stubPayouts) GetByOrder(_ context.Context, _ order.Actor, orderID uint) (*payment.Payout, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &payment.Payout{OrderID: orderID}, nil
}

type stubNotifications struct {
	err      error
	isAdmin  bool
	markedID uint
}

func (s *stubNotifications) Notify(context.Context, notification.Message) (*notification.Notification, error) {
	return nil, nil
}

func (s *stubNotifications) NotifyMany(context.Context, ...notification.Message) error { return nil }

func (s *stubNotifications) ListForUser(_ context.Context, _ uint, isAdmin bool) ([]*notification.Notification, error) {
	s.isAdmin = isAdmin
	return []*notification.Notification{}, s.err
}

func (s *stubNotifications) MarkRead(_ context.Context, _ uint, id uint) error {
	s.markedID = id
	return s.err
}

type stubSettings struct {
	rate decimal.Decimal
	err  error
	sets int
}

func (s *stubSettings) CommissionRate(context.Context) (decimal.Decimal, error) {
	return s.rate, s.err
}

func (s *stubSettings) SetCommissionRate(_ context.Context, actor order.Actor, rate decimal.Decimal) error {
	if s.err != nil {
		return s.err
	}
	if actor.Role != order.RoleAdmin {
		return order.ErrForbidden
	}
	s.rate = rate
	s.sets++
	return nil
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

// --- helpers ---

type env struct {
	orders   *stubOrders
	products *stubProducts
	feedback *stubFeedback
	payouts  *stubPayouts
	notes    *stubNotifications
	settings *stubSettings
	mux      http.Handler
}

func newEnv() *env {
	e := &env{
		orders:   &stubOrders{order: &order.Order{ID: 1, Status: order.StatusPending}},
		products: &stubProducts{},
		feedback: &stubFeedback{},
		payouts:  &stubPayouts{},
		notes:    &stubNotifications{},
		settings: &stubSettings{rate: decimal.RequireFromString("0.10")},
	}
	e.mux = New(Services{
		Orders:        e.orders,
		Products:      e.products,
		Feedback:      e.feedback,
		Payouts:       e.payouts,
		Notifications: e.notes,
		Settings:      e.settings,
		DB:            stubPinger{},
	}, time.Second).Routes()
	return e
}

var (
	admin    = &order.Actor{ID: 1, Role: order.RoleAdmin}
	retailer = &order.Actor{ID: 10, Role: order.RoleRetailer}
	farmer   = &order.Actor{ID: 20, Role: order.RoleFarmer}
)

func (e *env) do(method, path, body string, actor *order.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if actor != nil {
		req = req.WithContext(utils.SetUserContext(req.Context(), actor.ID, "", string(actor.Role)))
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorBody {
	t.Helper()
	var body struct {
		Error utils.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error
}

// --- tests ---

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err    error
		kind   string
		status int
	}{
		{order.ErrOrderNotFound, "not_found", http.StatusNotFound},
		{fmt.Errorf("%w: 5", order.ErrProductNotFound), "not_found", http.StatusNotFound},
		{product.ErrProductNotFound, "not_found", http.StatusNotFound},
		{payment.ErrPayoutNotFound, "not_found", http.StatusNotFound},
		{notification.ErrNotificationNotFound, "not_found", http.StatusNotFound},
		{order.ErrAlreadySettled, "already_settled", http.StatusConflict},
		{fmt.Errorf("%w: PENDING -> DELIVERED", order.ErrInvalidTransition), "invalid_transition", http.StatusConflict},
		{order.ErrConflict, "conflict", http.StatusConflict},
		{feedback.ErrOrderNotCompleted, "order_not_completed", http.StatusConflict},
		{order.ErrInvalidCode, "invalid_code", http.StatusUnprocessableEntity},
		{order.ErrInsufficientStock, "validation_error", http.StatusBadRequest},
		{feedback.ErrInvalidRating, "validation_error", http.StatusBadRequest},
		{order.ErrForbidden, "forbidden", http.StatusForbidden},
		{product.ErrForbidden, "forbidden", http.StatusForbidden},
		{errUnauthenticated, "unauthorized", http.StatusUnauthorized},
		{context.DeadlineExceeded, "timeout", http.StatusGatewayTimeout},
		{errors.New("boom"), "internal", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.kind, errorKind(tt.err))
			assert.Equal(t, tt.status, httpStatus(tt.err))
		})
	}
	assert.Equal(t, http.StatusOK, httpStatus(nil))
}

func TestUnauthenticated(t *testing.T) {
	e := newEnv()
	w := e.do(http.MethodGet, "/api/orders/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorBody(t, w).Kind)
}

func TestHealthz(t *testing.T) {
	e := newEnv()
	w := e.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	down := New(Services{Orders: &stubOrders{}, DB: stubPinger{err: errors.New("refused")}}, 0).Routes()
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPlaceOrder(t *testing.T) {
	body := `{"items":[{"productId":5,"quantity":3}],"shippingAddress":"12 Market Road","contactNumber":"09171234567","paymentRef":"pay_1"}`

	t.Run("Created", func(t *testing.T) {
		e := newEnv()
		w := e.do(http.MethodPost, "/api/orders", body, retailer)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, *retailer, e.orders.lastActor)
		require.Len(t, e.orders.lastPlace.Items, 1)
		assert.Equal(t, order.ItemInput{ProductID: 5, Quantity: 3}, e.orders.lastPlace.Items[0])
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		e := newEnv()
		bad := strings.Replace(body, "09171234567", "123", 1)
		w := e.do(http.MethodPost, "/api/orders", bad, retailer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		eb := errorBody(t, w)
		assert.Equal(t, "validation_error", eb.Kind)
		assert.Contains(t, eb.Message, "contactNumber failed min")
	})

	t.Run("EmptyItems", func(t *testing.T) {
		e := newEnv()
		w := e.do(http.MethodPost, "/api/orders",
			`{"items":[],"shippingAddress":"a","contactNumber":"09171234567","paymentRef":"p"}`, retailer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UnknownField", func(t *testing.T) {
		e := newEnv()
		w := e.do(http.MethodPost, "/api/orders", strings.Replace(body, "{", `{"total":1,`, 1), retailer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InsufficientStock", func(t *testing.T) {
		e := newEnv()
		e.orders.err = fmt.Errorf("%w for Tomatoes", order.ErrInsufficientStock)
		w := e.do(http.MethodPost, "/api/orders", body, retailer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_error", errorBody(t, w).Kind)
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("Accept", func(t *testing.T) {
		e := newEnv()
		w := e.do(http.MethodPut, "/api/orders/7/status",
			`{"status":"accepted","pickupAddress":"Farm 7","expectedFrom":"PENDING"}`, farmer)
		assert.Equal(t, http.StatusOK, w.Code)

		got := e.orders.lastReq
		assert.Equal(t, uint(7), got.OrderID)
		assert.Equal(t, order.StatusAccepted, got.Target)
		assert.Equal(t, "Farm 7", got.Extra.PickupAddress)
		assert.Equal(t, order.StatusPending, got.Extra.ExpectedFrom)
		assert.Equal(t, *farmer, got.Actor)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		e := newEnv()
		w := e.do(http.MethodPut, "/api/orders/7/status", `{"status":"SHIPPED"}`, farmer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_error", errorBody(t, w).Kind)
	})

	t.Run("BadID", func(t *testing.T) {
		e := newEnv()
		w := e.do(http.MethodPut, "/api/orders/abc/status", `{"status":"PROCESSING"}`, farmer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("NonNumericCodeReachesEngine", func(t *testing.T) {
		e := newEnv()
		e.orders.err = order.ErrInvalidCode
		w := e.do(http.MethodPut, "/api/orders/7/status", `{"status":"DELIVERED","deliveryCode":"abcd"}`, admin)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "invalid_code", errorBody(t, w).Kind)
		assert.Equal(t, "abcd", e.orders.lastReq.Extra.DeliveryCode)
	})

	t.Run("IllegalTransition", func(t *testing.T) {
		e := newEnv()
		e.orders.err = fmt.Errorf("%w: PENDING -> DELIVERED", order.ErrInvalidTransition)
		w := e.do(http.MethodPut, "/api/orders/7/status", `{"status":"DELIVERED","deliveryCode":"1234"}`, admin)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "invalid_transition", errorBody(t, w).Kind)
	})
}

func TestVerifyDelivery(t *testing.T) {
	e := newEnv()
	w := e.do(http.MethodPut, "/api/admin/orders/3/verify-delivery", `{"deliveryCode":"0427"}`, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.StatusDelivered, e.orders.lastReq.Target)
	assert.Equal(t, "0427", e.orders.lastReq.Extra.DeliveryCode)
	assert.Equal(t, order.StatusOutForDelivery, e.orders.lastReq.Extra.ExpectedFrom)

	e.orders.err = order.ErrInvalidCode
	w = e.do(http.MethodPut, "/api/admin/orders/3/verify-delivery", `{"deliveryCode":"9999"}`, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid_code", errorBody(t, w).Kind)

	w = e.do(http.MethodPut, "/api/admin/orders/3/verify-delivery", `{}`, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettle(t *testing.T) {
	e := newEnv()
	e.orders.settlement = &order.Settlement{
		OrderID:            3,
		FarmerShare:        decimal.RequireFromString("900.00"),
		PlatformCommission: decimal.RequireFromString("100.00"),
	}

	w := e.do(http.MethodPost, "/api/admin/orders/3/settle", "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	var s order.Settlement
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, "900.00", s.FarmerShare.StringFixed(2))

	e.orders.err = order.ErrAlreadySettled
	w = e.do(http.MethodPost, "/api/admin/orders/3/settle", "", admin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_settled", errorBody(t, w).Kind)
}

func TestReads(t *testing.T) {
	e := newEnv()

	for _, path := range []string{
		"/api/orders/1",
		"/api/orders/retailer/10",
		"/api/orders/farmer/20",
		"/api/admin/orders",
		"/api/admin/stats",
		"/api/payouts/farmer/20",
		"/api/payouts/order/1",
		"/api/feedback/product/5",
		"/api/notifications",
		"/api/admin/settings/commission",
		"/api/products/5",
		"/api/products/farmer/20",
		"/api/products/farmer/20/stats",
	} {
		w := e.do(http.MethodGet, path, "", admin)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"), path)
	}
	assert.True(t, e.notes.isAdmin)

	e.orders.err = order.ErrForbidden
	w := e.do(http.MethodGet, "/api/orders/retailer/10", "", farmer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	e.orders.err = errors.New("db exploded")
	w = e.do(http.MethodGet, "/api/orders/1", "", admin)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", errorBody(t, w).Message)
}

func TestCommission(t *testing.T) {
	e := newEnv()

	w := e.do(http.MethodPut, "/api/admin/settings/commission", `{"rate":"0.12"}`, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"commissionRate":"0.12"}`, w.Body.String())

	w = e.do(http.MethodPut, "/api/admin/settings/commission", `{"rate":0.2}`, farmer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodGet, "/api/admin/settings/commission", "", farmer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	for _, body := range []string{`{}`, `{"rate":null}`} {
		w = e.do(http.MethodPut, "/api/admin/settings/commission", body, admin)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "validation_error", errorBody(t, w).Kind, body)
	}
	assert.Equal(t, 1, e.settings.sets)
	assert.Equal(t, "0.12", e.settings.rate.String())
}

func TestProducts(t *testing.T) {
	e := newEnv()

	w := e.do(http.MethodGet, "/api/products/farmer/20", "", farmer)
	require.Equal(t, http.StatusOK, w.Code)
	var list []product.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)
	assert.Equal(t, product.Viewer{ID: 20, Farmer: true}, e.products.lastViewer)

	w = e.do(http.MethodGet, "/api/products/farmer/20/stats", "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"farmerId":20,"totalProducts":2,"lowStockCount":1}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/products/farmer/20", "", retailer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", errorBody(t, w).Kind)

	w = e.do(http.MethodGet, "/api/products/99", "", retailer)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodGet, "/api/products/farmer/x", "", admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedback(t *testing.T) {
	e := newEnv()
	body := `{"orderId":1,"productId":5,"rating":4,"comment":"fresh"}`

	e.feedback.created = true
	w := e.do(http.MethodPost, "/api/feedback", body, retailer)
	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, e.feedback.last.Comment)
	assert.Equal(t, "fresh", *e.feedback.last.Comment)

	e.feedback.created = false
	w = e.do(http.MethodPost, "/api/feedback", body, retailer)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, "/api/feedback", `{"orderId":1,"productId":5,"rating":9}`, retailer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	e.feedback.err = feedback.ErrOrderNotCompleted
	w = e.do(http.MethodPost, "/api/feedback", body, retailer)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "order_not_completed", errorBody(t, w).Kind)
}

func TestMarkNotificationRead(t *testing.T) {
	e := newEnv()
	w := e.do(http.MethodPut, "/api/notifications/4/read", "", farmer)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, uint(4), e.notes.markedID)

	e.notes.err = notification.ErrNotificationNotFound
	w = e.do(http.MethodPut, "/api/notifications/4/read", "", farmer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActorFrom(t *testing.T) {
	_, ok := ActorFrom(context.Background())
	assert.False(t, ok)

	ctx := utils.SetUserContext(context.Background(), 5, "a@example.com", utils.RoleRetailer)
	a, ok := ActorFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, order.Actor{ID: 5, Role: order.RoleRetailer}, a)
}
