package transport

import (
	"context"

	"farmlink-be/internal/order"
	"farmlink-be/internal/utils"
)

// ActorFrom builds the engine actor from the identity the auth middleware stored
// on the context. It reports false for anonymous requests.
func ActorFrom(ctx context.Context) (order.Actor, bool) {
	id, ok := utils.GetUserIDFromContext(ctx)
	if !ok || id == 0 {
		return order.Actor{}, false
	}
	return order.Actor{ID: id, Role: order.Role(utils.GetUserRoleFromContext(ctx))}, true
}
