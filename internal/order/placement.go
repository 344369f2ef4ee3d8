package order

import (
	"fmt"
	"strings"
	"time"

	"farmlink-be/internal/product"

	"github.com/shopspring/decimal"
)

func validatePlacement(in PlaceOrderInput) error {
	if in.RetailerID == 0 {
		return fmt.Errorf("%w: retailer is required", ErrValidation)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrValidation)
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return fmt.Errorf("%w: shipping address is required", ErrValidation)
	}
	if n := len(strings.TrimSpace(in.ContactNumber)); n < 10 || n > 15 {
		return fmt.Errorf("%w: contact number must be 10 to 15 characters", ErrValidation)
	}
	if strings.TrimSpace(in.PaymentRef) == "" {
		return fmt.Errorf("%w: payment reference is required", ErrValidation)
	}

	seen := make(map[uint]bool, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == 0 {
			return fmt.Errorf("%w: product id is required", ErrValidation)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: quantity for product %d must be at least 1", ErrValidation, it.ProductID)
		}
		if seen[it.ProductID] {
			return fmt.Errorf("%w: product %d listed twice", ErrValidation, it.ProductID)
		}
		seen[it.ProductID] = true
	}
	return nil
}

// productIDs returns the distinct product ids of the input, in input order.
func (in PlaceOrderInput) productIDs() []uint {
	ids := make([]uint, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

// assemble builds a PENDING order from locked product rows. Every product must exist,
// belong to the same farmer and have enough stock. Prices are snapshotted here.
func assemble(in PlaceOrderInput, products map[uint]*product.Product, now time.Time) (*Order, error) {
	o := &Order{
		RetailerID:      in.RetailerID,
		OrderDate:       now,
		UpdatedAt:       now,
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		ContactNumber:   strings.TrimSpace(in.ContactNumber),
		PaymentRef:      strings.TrimSpace(in.PaymentRef),
		Status:          StatusPending,
		TotalAmount:     decimal.Zero,
		Items:           make([]Item, 0, len(in.Items)),
	}

	for _, it := range in.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, it.ProductID)
		}

		if o.FarmerID == 0 {
			o.FarmerID = p.FarmerID
		} else if o.FarmerID != p.FarmerID {
			return nil, fmt.Errorf("%w: all items must come from one farmer", ErrValidation)
		}

		if p.Stock < it.Quantity {
			return nil, fmt.Errorf("%w for %s: %d available, %d requested", ErrInsufficientStock, p.Name, p.Stock, it.Quantity)
		}

		item := Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
		}
		o.Items = append(o.Items, item)
		o.TotalAmount = o.TotalAmount.Add(item.Subtotal())
	}

	if !o.TotalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: order total must be positive", ErrValidation)
	}

	return o, nil
}
