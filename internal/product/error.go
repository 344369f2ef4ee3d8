package product

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrForbidden       = errors.New("inventory belongs to another farmer")
)
