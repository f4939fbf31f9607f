package cart

import (
	"context"
	"errors"

	"github.com/mscykler/storefront/internal/domain"
)

var (
	// ErrCartNotFound means no cart document exists for the session yet.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartCorrupt means a stored cart could not be decoded. Callers treat
	// this the same as an empty cart; it is never surfaced to the user.
	ErrCartCorrupt = errors.New("stored cart is corrupt")
)

type Repository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}
