package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mscykler/storefront/internal/catalog"
	"github.com/mscykler/storefront/internal/domain"
)

// AdminHandler maps owner CRUD forms onto the catalog: a submit with an id is
// an update, without one a create.
type AdminHandler struct {
	svc     *catalog.Service
	timeout time.Duration
}

func NewAdminHandler(svc *catalog.Service, timeout time.Duration) *AdminHandler {
	return &AdminHandler{svc: svc, timeout: timeout}
}

type SaveProductRequestDTO struct {
	ID          int64             `json:"id,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	Stock       int               `json:"stock"`
	Category    string            `json:"category"`
	ImageURL    string            `json:"image_url"`
	Specs       map[string]string `json:"specs,omitempty"`
}

type SaveProductResponse struct {
	ID int64 `json:"id"`
}

func (h *AdminHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	typ, ok := typeParam(w, r)
	if !ok {
		return
	}

	var req SaveProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_name", "name is required")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}
	if req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "invalid_stock", "stock must not be negative")
		return
	}

	p := &domain.Product{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Specs:       req.Specs,
	}

	if req.ID > 0 {
		if err := h.svc.Update(ctx, typ, p); err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				respondError(w, http.StatusNotFound, "not_found", "product not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to update product")
			return
		}
		respondJSON(w, http.StatusOK, &SaveProductResponse{ID: req.ID})
		return
	}

	id, err := h.svc.Create(ctx, typ, p)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create product")
		return
	}
	respondJSON(w, http.StatusCreated, &SaveProductResponse{ID: id})
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	typ, ok := typeParam(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(ctx, typ, id); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func typeParam(w http.ResponseWriter, r *http.Request) (domain.ProductType, bool) {
	typ, ok := parseProductType(chi.URLParam(r, "product_type"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_type", "product type must be bikes or parts")
		return "", false
	}
	return typ, true
}
