package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCompleted OrderStatus = "COMPLETED"
)

// CheckoutForm holds the customer fields collected at checkout. All six are
// required; it is transient and only persisted as part of an order snapshot.
type CheckoutForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Postal  string `json:"postal"`
	City    string `json:"city"`
}

// Order is the snapshot taken when a payment session is created. It is keyed
// by the provider session id so the confirmation page can fetch it back.
type Order struct {
	ID                uuid.UUID    `json:"id"`
	ProviderSessionID string       `json:"provider_session_id"`
	CartSessionID     string       `json:"cart_session_id"`
	Items             []CartItem   `json:"items"`
	Customer          CheckoutForm `json:"customer"`
	TotalAmount       float64      `json:"total_amount"`
	Currency          string       `json:"currency"`
	Status            OrderStatus  `json:"status"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}
