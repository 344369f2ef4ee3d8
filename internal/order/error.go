package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidCode       = errors.New("invalid delivery code")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("order was modified concurrently")
	ErrForbidden         = errors.New("forbidden")

	// ErrAlreadySettled is a refinement of ErrInvalidTransition.
	ErrAlreadySettled = fmt.Errorf("%w: order already settled", ErrInvalidTransition)
	// ErrInsufficientStock is a refinement of ErrValidation.
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrValidation)
)
