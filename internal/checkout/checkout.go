package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mscykler/storefront/internal/domain"
	"github.com/mscykler/storefront/internal/payment"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// ValidationError lists the checkout form fields that were empty or
// whitespace-only.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// Validate flags each of the six required fields that is empty or
// whitespace-only and returns their names, in form order.
func Validate(form domain.CheckoutForm) []string {
	var invalid []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", form.Name},
		{"email", form.Email},
		{"phone", form.Phone},
		{"address", form.Address},
		{"postal", form.Postal},
		{"city", form.City},
	} {
		if strings.TrimSpace(f.value) == "" {
			invalid = append(invalid, f.name)
		}
	}
	return invalid
}

// ComputeTotal sums price × quantity over the items. Plain float arithmetic,
// no tax or shipping lines.
func ComputeTotal(items []domain.CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

type SessionCreator interface {
	CreateSession(ctx context.Context, origin string, items []payment.LineItem) (*payment.Session, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
}

type Service struct {
	payments SessionCreator
	orders   OrderStore
}

func NewService(payments SessionCreator, orders OrderStore) *Service {
	return &Service{payments: payments, orders: orders}
}

// Submit validates the request, creates a provider checkout session and
// persists an order snapshot keyed by the provider session id. Validation
// failures never reach the provider; provider failures leave no order behind,
// so there is nothing to roll back.
func (s *Service) Submit(ctx context.Context, cartSessionID string, items []domain.CartItem, customer *domain.CheckoutForm, origin string) (*payment.Session, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if customer != nil {
		if invalid := Validate(*customer); len(invalid) > 0 {
			return nil, &ValidationError{Fields: invalid}
		}
	}

	lineItems := make([]payment.LineItem, len(items))
	for i, item := range items {
		lineItems[i] = payment.LineItem{
			Name:       item.Name,
			UnitAmount: ToMinorUnit(item.Price),
			Quantity:   item.Quantity,
		}
	}

	session, err := s.payments.CreateSession(ctx, origin, lineItems)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &domain.Order{
		ID:                uuid.New(),
		ProviderSessionID: session.ID,
		CartSessionID:     cartSessionID,
		Items:             items,
		TotalAmount:       ComputeTotal(items),
		Currency:          payment.Currency,
		Status:            domain.OrderStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if customer != nil {
		order.Customer = *customer
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order snapshot: %w", err)
	}

	return session, nil
}

// ToMinorUnit converts a major-unit price to the smallest currency unit,
// rounding to the nearest integer.
func ToMinorUnit(price float64) int64 {
	return int64(math.Round(price * 100))
}
