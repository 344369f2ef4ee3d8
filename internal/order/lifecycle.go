package order

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// edge describes who may move an order along one arc of the lifecycle.
type edge struct {
	actors []Role
}

// transitions is the complete adjacency table. Anything absent is illegal.
var transitions = map[Status]map[Status]edge{
	StatusPending: {
		StatusAccepted:  {actors: []Role{RoleFarmer}},
		StatusCancelled: {actors: []Role{RoleFarmer, RoleRetailer}},
		StatusRejected:  {actors: []Role{RoleFarmer, RoleRetailer}},
	},
	StatusAccepted: {
		StatusProcessing: {actors: []Role{RoleFarmer}},
	},
	StatusProcessing: {
		StatusReadyForPickup: {actors: []Role{RoleFarmer}},
	},
	StatusReadyForPickup: {
		StatusInTransit: {actors: []Role{RoleAdmin}},
	},
	StatusInTransit: {
		StatusOutForDelivery: {actors: []Role{RoleAdmin}},
	},
	StatusOutForDelivery: {
		StatusDelivered: {actors: []Role{RoleAdmin}},
	},
	StatusDelivered: {
		StatusCompleted: {actors: []Role{RoleAdmin}},
	},
}

// CanTransition reports whether to is adjacent to from.
func CanTransition(from, to Status) bool {
	_, ok := transitions[from][to]
	return ok
}

// NextStatuses returns the statuses reachable from s in one step by role.
func NextStatuses(s Status, role Role) []Status {
	var out []Status
	for _, to := range Statuses {
		e, ok := transitions[s][to]
		if ok && e.allows(role) {
			out = append(out, to)
		}
	}
	return out
}

func (e edge) allows(role Role) bool {
	for _, r := range e.actors {
		if r == role {
			return true
		}
	}
	return false
}

// owns reports whether the actor is the party the order belongs to for its role.
// Admins act on every order.
func (o *Order) owns(actor Actor) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleFarmer:
		return o.FarmerID == actor.ID
	case RoleRetailer:
		return o.RetailerID == actor.ID
	}
	return false
}

// applyEnv is everything a transition needs besides the order itself.
type applyEnv struct {
	now            time.Time
	newCode        func() (string, error)
	commissionRate decimal.Decimal
}

// apply validates req against o and mutates o in place. It returns a settlement only
// for DELIVERED -> COMPLETED. On error o is left untouched.
func apply(o *Order, req TransitionRequest, env applyEnv) (*Settlement, error) {
	from, to := o.Status, req.Target

	if req.Extra.ExpectedFrom != "" && req.Extra.ExpectedFrom != from {
		return nil, fmt.Errorf("%w: order %d is %s, not %s", ErrInvalidTransition, o.ID, from, req.Extra.ExpectedFrom)
	}
	if from == StatusCompleted && to == StatusCompleted {
		return nil, ErrAlreadySettled
	}

	e, ok := transitions[from][to]
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if !e.allows(req.Actor.Role) || !o.owns(req.Actor) {
		return nil, fmt.Errorf("%w: %s %d may not move order %d to %s", ErrInvalidTransition, req.Actor.Role, req.Actor.ID, o.ID, to)
	}

	var (
		pickup     = o.PickupAddress
		code       = o.DeliveryCode
		codeUsedAt = o.DeliveryCodeUsedAt
		settlement *Settlement
	)

	switch to {
	case StatusAccepted:
		addr := strings.TrimSpace(req.Extra.PickupAddress)
		if addr == "" {
			return nil, fmt.Errorf("%w: pickup address is required", ErrValidation)
		}
		pickup = &addr

	case StatusOutForDelivery:
		if code == nil && codeUsedAt == nil {
			c, err := env.newCode()
			if err != nil {
				return nil, err
			}
			code = &c
		}

	case StatusDelivered:
		if codeUsedAt != nil {
			return nil, fmt.Errorf("%w: delivery code already used", ErrInvalidTransition)
		}
		if code == nil || !codeMatches(*code, req.Extra.DeliveryCode) {
			return nil, ErrInvalidCode
		}
		used := env.now
		code, codeUsedAt = nil, &used

	case StatusCompleted:
		s, err := ComputeSettlement(o.TotalAmount, env.commissionRate)
		if err != nil {
			return nil, err
		}
		s.OrderID, s.FarmerID, s.SettledAt = o.ID, o.FarmerID, env.now
		settlement = &s
	}

	o.Status = to
	o.PickupAddress = pickup
	o.DeliveryCode = code
	o.DeliveryCodeUsedAt = codeUsedAt
	o.UpdatedAt = env.now

	return settlement, nil
}

func codeMatches(stored, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
