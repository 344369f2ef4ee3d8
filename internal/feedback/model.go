package feedback

import "time"

type Feedback struct {
	ID         uint      `json:"id"`
	OrderID    uint      `json:"orderId"`
	ProductID  uint      `json:"productId"`
	RetailerID uint      `json:"retailerId"`
	Rating     int       `json:"rating"`
	Comment    *string   `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type SubmitInput struct {
	OrderID   uint
	ProductID uint
	Rating    int
	Comment   *string
}

// Summary is the aggregate rating of one product.
type Summary struct {
	Average float64
	Count   int
}
