package domain

import "time"

type AuthStatus string

const (
	AuthApproved AuthStatus = "APPROVED"
	AuthDeclined AuthStatus = "DECLINED"
	// AuthPending means the gateway answers asynchronously through a payment result callback.
	AuthPending AuthStatus = "PENDING"
)

type AuthResult struct {
	BookingID string     `json:"booking_id"`
	Reference string     `json:"reference"`
	Status    AuthStatus `json:"status"`
	Message   string     `json:"message,omitempty"`
}

type PaymentOperation string

const (
	PaymentAuthorize PaymentOperation = "AUTHORIZE"
	PaymentCapture   PaymentOperation = "CAPTURE"
	PaymentRefund    PaymentOperation = "REFUND"
)

// PaymentResult is the gateway callback for an asynchronous operation.
type PaymentResult struct {
	BookingID string           `json:"booking_id"`
	Operation PaymentOperation `json:"operation"`
	Reference string           `json:"reference"`
	Approved  bool             `json:"approved"`
	Amount    Amount           `json:"amount"`
	Message   string           `json:"message,omitempty"`
}

// PaymentCommand is sent to an external gateway.
type PaymentCommand struct {
	ID        string           `json:"id"`
	BookingID string           `json:"booking_id"`
	Operation PaymentOperation `json:"operation"`
	Reference string           `json:"reference,omitempty"`
	Amount    Amount           `json:"amount"`
	Currency  string           `json:"currency"`
	IssuedAt  time.Time        `json:"issued_at"`
}

// PaymentRecord is one ledger line kept for auditing gateway traffic.
type PaymentRecord struct {
	ID        string           `json:"id"`
	BookingID string           `json:"booking_id"`
	Operation PaymentOperation `json:"operation"`
	Reference string           `json:"reference"`
	Amount    Amount           `json:"amount"`
	Currency  string           `json:"currency"`
	Approved  bool             `json:"approved"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
