package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"farmlink-be/internal/feedback"
	"farmlink-be/internal/logger"
	"farmlink-be/internal/notification"
	"farmlink-be/internal/order"
	"farmlink-be/internal/payment"
	"farmlink-be/internal/product"
	"farmlink-be/internal/utils"

	"go.uber.org/zap"
)

var errUnauthenticated = errors.New("authentication required")

// kindToStatus maps error classification kinds to HTTP status codes.
var kindToStatus = map[string]int{
	"not_found":           http.StatusNotFound,
	"already_settled":     http.StatusConflict,
	"invalid_transition":  http.StatusConflict,
	"conflict":            http.StatusConflict,
	"order_not_completed": http.StatusConflict,
	"invalid_code":        http.StatusUnprocessableEntity,
	"validation_error":    http.StatusBadRequest,
	"forbidden":           http.StatusForbidden,
	"unauthorized":        http.StatusUnauthorized,
	"timeout":             http.StatusGatewayTimeout,
	"canceled":            http.StatusRequestTimeout,
}

// errorKind classifies err. Refinements are checked before the errors they wrap.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, order.ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, order.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, order.ErrConflict):
		return "conflict"
	case errors.Is(err, feedback.ErrOrderNotCompleted):
		return "order_not_completed"
	case errors.Is(err, order.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, order.ErrValidation):
		return "validation_error"
	case errors.Is(err, order.ErrForbidden), errors.Is(err, product.ErrForbidden):
		return "forbidden"
	case errors.Is(err, errUnauthenticated):
		return "unauthorized"
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrProductNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, payment.ErrPayoutNotFound),
		errors.Is(err, notification.ErrNotificationNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

func httpStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := kindToStatus[errorKind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error":{"kind","message"}}. Internal errors are logged
// and their text is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, status := errorKind(err), httpStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("layer", "transport"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal error"
	}
	utils.WriteJSONError(w, kind, msg, status)
}

func errInvalidID(name string) error {
	return fmt.Errorf("%w: invalid %s", order.ErrValidation, name)
}
