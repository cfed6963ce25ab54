package model

import "time"

// Payment methods recorded on tickets.  COUNTER marks tickets issued by
// staff when a reservation is approved; no gateway transaction exists for
// those.
const (
	PaymentMethodGateway = "GATEWAY"
	PaymentMethodCounter = "COUNTER"
)

// Ticket is created exactly once per successful booking (which may cover
// several seats) and is immutable afterwards except for the IsUsed
// redemption flag.  Payment identifiers are opaque strings handed to us
// by the external payment gateway.
type Ticket struct {
	ID            uint64    `json:"id"`             // tickets.id
	CustomerID    uint64    `json:"customer_id"`    // tickets.customer_id
	ShowID        uint64    `json:"show_id"`        // tickets.show_id
	PaymentMethod string    `json:"payment_method"` // tickets.payment_method
	TransactionID string    `json:"transaction_id"` // tickets.transaction_id
	Mobile        string    `json:"mobile"`         // tickets.mobile
	PaymentRef    string    `json:"payment_ref"`    // tickets.payment_ref
	BookingRef    string    `json:"booking_ref"`    // tickets.booking_ref
	BookedAt      time.Time `json:"booked_at"`      // tickets.booked_at
	IsUsed        bool      `json:"is_used"`        // tickets.is_used
}
