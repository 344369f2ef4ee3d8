package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending        Status = "PENDING"
	StatusAccepted       Status = "ACCEPTED"
	StatusProcessing     Status = "PROCESSING"
	StatusReadyForPickup Status = "READY_FOR_PICKUP"
	StatusInTransit      Status = "IN_TRANSIT"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
	StatusRejected       Status = "REJECTED"
)

// Statuses lists every status in lifecycle order, exits last.
var Statuses = []Status{
	StatusPending,
	StatusAccepted,
	StatusProcessing,
	StatusReadyForPickup,
	StatusInTransit,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCompleted,
	StatusCancelled,
	StatusRejected,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

type Role string

const (
	RoleFarmer   Role = "FARMER"
	RoleRetailer Role = "RETAILER"
	RoleAdmin    Role = "ADMIN"
)

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	ID   uint
	Role Role
}

type Order struct {
	ID                 uint            `json:"id"`
	RetailerID         uint            `json:"retailerId"`
	FarmerID           uint            `json:"farmerId"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	OrderDate          time.Time       `json:"orderDate"`
	ShippingAddress    string          `json:"shippingAddress"`
	ContactNumber      string          `json:"contactNumber"`
	Status             Status          `json:"status"`
	PickupAddress      *string         `json:"pickupAddress"`
	DeliveryCode       *string         `json:"deliveryCode,omitempty"`
	DeliveryCodeUsedAt *time.Time      `json:"deliveryCodeUsedAt,omitempty"`
	PaymentRef         string          `json:"paymentRef"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	Items              []Item          `json:"items"`
}

type Item struct {
	ProductID   uint            `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HasProduct reports whether the order contains a line for productID.
func (o *Order) HasProduct(productID uint) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

func (o *Order) clone() *Order {
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	if o.PickupAddress != nil {
		v := *o.PickupAddress
		c.PickupAddress = &v
	}
	if o.DeliveryCode != nil {
		v := *o.DeliveryCode
		c.DeliveryCode = &v
	}
	if o.DeliveryCodeUsedAt != nil {
		v := *o.DeliveryCodeUsedAt
		c.DeliveryCodeUsedAt = &v
	}
	return &c
}

type Settlement struct {
	OrderID            uint            `json:"orderId"`
	FarmerID           uint            `json:"farmerId"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	CommissionRate     decimal.Decimal `json:"commissionRate"`
	FarmerShare        decimal.Decimal `json:"farmerShare"`
	PlatformCommission decimal.Decimal `json:"platformCommission"`
	SettledAt          time.Time       `json:"settledAt"`
}

type ItemInput struct {
	ProductID uint
	Quantity  int
}

type PlaceOrderInput struct {
	RetailerID      uint
	Items           []ItemInput
	ShippingAddress string
	ContactNumber   string
	PaymentRef      string
}

// Extra carries the transition-specific inputs.
type Extra struct {
	PickupAddress string
	DeliveryCode  string
	// ExpectedFrom, when set, must equal the stored status.
	ExpectedFrom Status
}

type TransitionRequest struct {
	OrderID uint
	Actor   Actor
	Target  Status
	Extra   Extra
}

type Stats struct {
	TotalOrders int64             `json:"totalOrders"`
	ByStatus    map[Status]int64  `json:"byStatus"`
	Counters    map[string]uint64 `json:"counters"`
}
