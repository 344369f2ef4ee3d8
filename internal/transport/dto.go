package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"farmlink-be/internal/order"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type placeOrderItem struct {
	ProductID uint `json:"productId" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,min=1"`
}

type placeOrderRequest struct {
	Items           []placeOrderItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string           `json:"shippingAddress" validate:"required,max=500"`
	ContactNumber   string           `json:"contactNumber" validate:"required,min=10,max=15"`
	PaymentRef      string           `json:"paymentRef" validate:"required,max=255"`
}

func (p placeOrderRequest) toInput() order.PlaceOrderInput {
	items := make([]order.ItemInput, len(p.Items))
	for i, it := range p.Items {
		items[i] = order.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return order.PlaceOrderInput{
		Items:           items,
		ShippingAddress: p.ShippingAddress,
		ContactNumber:   p.ContactNumber,
		PaymentRef:      p.PaymentRef,
	}
}

type statusRequest struct {
	Status        string `json:"status" validate:"required"`
	PickupAddress string `json:"pickupAddress" validate:"max=500"`
	DeliveryCode  string `json:"deliveryCode" validate:"max=18"`
	ExpectedFrom  string `json:"expectedFrom"`
}

type verifyDeliveryRequest struct {
	DeliveryCode string `json:"deliveryCode" validate:"required"`
}

type commissionRequest struct {
	Rate *decimal.Decimal `json:"rate" validate:"required"`
}

type feedbackRequest struct {
	OrderID   uint    `json:"orderId" validate:"required"`
	ProductID uint    `json:"productId" validate:"required"`
	Rating    int     `json:"rating" validate:"required,min=1,max=5"`
	Comment   *string `json:"comment" validate:"omitempty,max=1000"`
}

// decodeJSON reads exactly one JSON object into dst and validates its tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body", order.ErrValidation)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: invalid JSON body", order.ErrValidation)
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				_, field, _ := strings.Cut(fe.Namespace(), ".")
				fields[i] = fmt.Sprintf("%s failed %s", field, fe.Tag())
			}
			return fmt.Errorf("%w: %s", order.ErrValidation, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", order.ErrValidation, err)
	}
	return nil
}

// parseStatus accepts a status name in any case. Empty input yields "".
func parseStatus(raw string) (order.Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	s := order.Status(strings.ToUpper(raw))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", order.ErrValidation, raw)
	}
	return s, nil
}
