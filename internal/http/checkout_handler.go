package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/mscykler/storefront/internal/cart"
	"github.com/mscykler/storefront/internal/checkout"
	"github.com/mscykler/storefront/internal/domain"
	"github.com/mscykler/storefront/internal/orders"
	"github.com/mscykler/storefront/internal/payment"
)

type CheckoutHandler struct {
	checkout *checkout.Service
	carts    *cart.Service
	orders   orders.RepoInterface
	origin   string
	timeout  time.Duration
}

// NewCheckoutHandler wires the payment-session endpoint. origin is the
// storefront base URL used for redirect targets when the request carries no
// Origin header.
func NewCheckoutHandler(checkoutSvc *checkout.Service, carts *cart.Service, ordersRepo orders.RepoInterface, origin string, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkoutSvc,
		carts:    carts,
		orders:   ordersRepo,
		origin:   origin,
		timeout:  timeout,
	}
}

// CheckoutItemDTO is the standardized request shape: earlier storefront
// revisions posted either "cart" or "items"; only "items" with "qty" is
// accepted now.
type CheckoutItemDTO struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

type CreateSessionRequestDTO struct {
	Items    []CheckoutItemDTO    `json:"items"`
	Customer *domain.CheckoutForm `json:"customer,omitempty"`
}

type CreateSessionResponse struct {
	URL string `json:"url"`
}

// CreateSession implements POST /api/create-checkout-session. Any other
// method gets 405 with an Allow header.
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateSessionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "empty_cart", "Cart is empty")
		return
	}

	items := make([]domain.CartItem, len(req.Items))
	for i, item := range req.Items {
		qty := item.Qty
		if qty < 1 {
			qty = 1
		}
		items[i] = domain.CartItem{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: qty,
		}
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = h.origin
	}

	session, err := h.checkout.Submit(ctx, getSessionID(r.Context()), items, req.Customer, origin)
	if err != nil {
		h.respondSubmitError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &CreateSessionResponse{URL: session.URL})
}

func (h *CheckoutHandler) respondSubmitError(w http.ResponseWriter, err error) {
	var validationErr *checkout.ValidationError
	var providerErr *payment.ProviderError

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "Cart is empty")
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  validationErr.Error(),
			Code:   "invalid_form",
			Fields: validationErr.Fields,
		})
	case errors.As(err, &providerErr):
		message := providerErr.Message
		if message == "" {
			message = "Server error when creating checkout session"
		}
		respondError(w, http.StatusInternalServerError, "provider_error", message)
	default:
		log.Printf("checkout submit error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Server error when creating checkout session")
	}
}

// OrderSuccess backs the confirmation page: it returns the snapshot for the
// provider session id, marks the order completed and clears the session's
// cart. The snapshot stays readable on refresh.
func (h *CheckoutHandler) OrderSuccess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "session_id parameter is required")
		return
	}

	order, err := h.orders.GetOrderBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no order for this session")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load order")
		return
	}

	if err := h.orders.CompleteOrder(ctx, order.ID); err != nil {
		log.Printf("failed to complete order %v: %v", order.ID, err)
	}

	if order.CartSessionID != "" {
		if err := h.carts.Clear(ctx, order.CartSessionID); err != nil {
			log.Printf("failed to clear cart for session %s: %v", order.CartSessionID, err)
		}
	}

	order.Status = domain.OrderStatusCompleted
	respondJSON(w, http.StatusOK, order)
}
