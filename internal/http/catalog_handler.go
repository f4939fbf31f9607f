package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mscykler/storefront/internal/catalog"
	"github.com/mscykler/storefront/internal/domain"
)

type CatalogHandler struct {
	svc     *catalog.Service
	timeout time.Duration
}

func NewCatalogHandler(svc *catalog.Service, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{svc: svc, timeout: timeout}
}

type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

// ProductDetailResponse carries the stock flags the detail page renders.
type ProductDetailResponse struct {
	Product  *domain.Product `json:"product"`
	InStock  bool            `json:"in_stock"`
	LowStock bool            `json:"low_stock"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// SearchResponse echoes the client's seq parameter so search-as-you-type
// callers can discard responses that arrive out of order.
type SearchResponse struct {
	Seq     int64                  `json:"seq"`
	Query   string                 `json:"query"`
	Results []catalog.SearchResult `json:"results"`
}

// List serves /api/v1/bikes and /api/v1/parts with optional ?category= and
// ?sort= (price_asc, price_desc, newest, stock_desc).
func (h *CatalogHandler) List(typ domain.ProductType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		category := r.URL.Query().Get("category")
		sort := catalog.Sort(r.URL.Query().Get("sort"))

		products, err := h.svc.List(ctx, typ, category, sort)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to list products")
			return
		}
		if products == nil {
			products = []*domain.Product{}
		}

		respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
	}
}

func (h *CatalogHandler) Get(typ domain.ProductType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		id, ok := idParam(w, r)
		if !ok {
			return
		}

		p, err := h.svc.Get(ctx, typ, id)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				respondError(w, http.StatusNotFound, "not_found", "product not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
			return
		}

		respondJSON(w, http.StatusOK, &ProductDetailResponse{
			Product:  p,
			InStock:  p.InStock(),
			LowStock: p.LowStock(),
		})
	}
}

func (h *CatalogHandler) Related(typ domain.ProductType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		id, ok := idParam(w, r)
		if !ok {
			return
		}

		products, err := h.svc.Related(ctx, typ, id)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				respondError(w, http.StatusNotFound, "not_found", "product not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to load related products")
			return
		}
		if products == nil {
			products = []*domain.Product{}
		}

		respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
	}
}

func (h *CatalogHandler) Categories(typ domain.ProductType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		categories, err := h.svc.Categories(ctx, typ)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to list categories")
			return
		}
		if categories == nil {
			categories = []string{}
		}

		respondJSON(w, http.StatusOK, &CategoriesResponse{Categories: categories})
	}
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "missing_query", "q parameter is required")
		return
	}
	seq, _ := strconv.ParseInt(r.URL.Query().Get("seq"), 10, 64)

	results, err := h.svc.Search(ctx, query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "search failed")
		return
	}
	if results == nil {
		results = []catalog.SearchResult{}
	}

	respondJSON(w, http.StatusOK, &SearchResponse{Seq: seq, Query: query, Results: results})
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
