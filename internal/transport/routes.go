package transport

import "net/http"

// Routes registers every endpoint on a new ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.healthz)

	mux.HandleFunc("POST /api/orders", h.authed(h.placeOrder))
	mux.HandleFunc("GET /api/orders/{id}", h.authed(h.getOrder))
	mux.HandleFunc("GET /api/orders/retailer/{retailerId}", h.authed(h.listRetailerOrders))
	mux.HandleFunc("GET /api/orders/farmer/{farmerId}", h.authed(h.listFarmerOrders))
	mux.HandleFunc("PUT /api/orders/{id}/status", h.authed(h.updateStatus))

	mux.HandleFunc("GET /api/admin/orders", h.authed(h.listAllOrders))
	mux.HandleFunc("PUT /api/admin/orders/{id}/verify-delivery", h.authed(h.verifyDelivery))
	mux.HandleFunc("POST /api/admin/orders/{id}/settle", h.authed(h.settle))
	mux.HandleFunc("GET /api/admin/stats", h.authed(h.stats))
	mux.HandleFunc("GET /api/admin/settings/commission", h.authed(h.getCommission))
	mux.HandleFunc("PUT /api/admin/settings/commission", h.authed(h.setCommission))

	mux.HandleFunc("GET /api/products/{id}", h.authed(h.getProduct))
	mux.HandleFunc("GET /api/products/farmer/{farmerId}", h.authed(h.farmerInventory))
	mux.HandleFunc("GET /api/products/farmer/{farmerId}/stats", h.authed(h.farmerInventoryStats))

	mux.HandleFunc("GET /api/payouts/farmer/{farmerId}", h.authed(h.farmerPayouts))
	mux.HandleFunc("GET /api/payouts/order/{id}", h.authed(h.orderPayout))

	mux.HandleFunc("POST /api/feedback", h.authed(h.submitFeedback))
	mux.HandleFunc("GET /api/feedback/product/{productId}", h.authed(h.productFeedback))

	mux.HandleFunc("GET /api/notifications", h.authed(h.listNotifications))
	mux.HandleFunc("PUT /api/notifications/{id}/read", h.authed(h.markNotificationRead))

	return mux
}
