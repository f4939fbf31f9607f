package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mscykler/storefront/internal/cart"
	"github.com/mscykler/storefront/internal/catalog"
	"github.com/mscykler/storefront/internal/domain"
)

type CartHandler struct {
	carts   *cart.Service
	catalog *catalog.Service
	timeout time.Duration
}

func NewCartHandler(carts *cart.Service, catalogSvc *catalog.Service, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: catalogSvc,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductType string `json:"product_type"`
	ProductID   int64  `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing cart session")
		return
	}

	c, err := h.carts.GetCart(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// AddItem looks the product up in the catalog and merges a snapshot of it
// into the cart. Out-of-stock products are rejected here; the storefront UI
// only disables the button.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing cart session")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	typ, ok := parseProductType(req.ProductType)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_type", "product_type must be \"bike\" or \"part\"")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	p, err := h.catalog.Get(ctx, typ, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
		return
	}
	if !p.InStock() {
		respondError(w, http.StatusConflict, "out_of_stock", "product is out of stock")
		return
	}

	c, err := h.carts.AddItem(ctx, sessionID, p, typ)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update cart")
		return
	}

	respondJSON(w, http.StatusCreated, c)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing cart session")
		return
	}

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	// Quantities below 1 are clamped to 1, not rejected.
	c, err := h.carts.UpdateQuantity(ctx, sessionID, productID, req.Quantity)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update cart")
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing cart session")
		return
	}

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	c, err := h.carts.RemoveItem(ctx, sessionID, productID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update cart")
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing cart session")
		return
	}

	if err := h.carts.Clear(ctx, sessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to clear cart")
		return
	}

	respondJSON(w, http.StatusOK, &domain.Cart{SessionID: sessionID, Items: []domain.CartItem{}})
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}
