package feedback

import (
	"errors"
	"fmt"

	"farmlink-be/internal/order"
)

var (
	ErrOrderNotCompleted = errors.New("order is not completed")
	ErrInvalidRating     = fmt.Errorf("%w: rating must be between 1 and 5", order.ErrValidation)
)
