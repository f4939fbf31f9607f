package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mscykler/storefront/internal/catalog"
	"github.com/mscykler/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogFixture(t *testing.T) (http.Handler, *memCatalogRepo) {
	t.Helper()

	repo := newMemCatalogRepo()
	h := NewCatalogHandler(catalog.NewService(repo), 5*time.Second)

	r := chi.NewRouter()
	r.Get("/api/v1/search", h.Search)
	r.Route("/api/v1/bikes", func(r chi.Router) {
		r.Get("/", h.List(domain.ProductTypeBike))
		r.Get("/categories", h.Categories(domain.ProductTypeBike))
		r.Get("/{id}", h.Get(domain.ProductTypeBike))
		r.Get("/{id}/related", h.Related(domain.ProductTypeBike))
	})
	return r, repo
}

func doGet(handler http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestList_EmptyCatalogReturnsEmptyArray(t *testing.T) {
	handler, _ := newCatalogFixture(t)

	rec := doGet(handler, "/api/v1/bikes/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"products":[]`)
}

func TestList_ReturnsProducts(t *testing.T) {
	handler, repo := newCatalogFixture(t)
	repo.add(domain.ProductTypeBike, &domain.Product{ID: 1, Name: "City Bike", Price: 4999, Category: "city"})
	repo.add(domain.ProductTypeBike, &domain.Product{ID: 2, Name: "Gravel Bike", Price: 8999, Category: "gravel"})

	rec := doGet(handler, "/api/v1/bikes/")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProductsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 2)

	rec = doGet(handler, "/api/v1/bikes/?category=city")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 1)
	assert.Equal(t, "City Bike", resp.Products[0].Name)
}

func TestGet_DetailCarriesStockFlags(t *testing.T) {
	handler, repo := newCatalogFixture(t)
	repo.add(domain.ProductTypeBike, &domain.Product{ID: 1, Name: "Last One", Price: 100, Stock: 2})

	rec := doGet(handler, "/api/v1/bikes/1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProductDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Last One", resp.Product.Name)
	assert.True(t, resp.InStock)
	assert.True(t, resp.LowStock)
}

func TestGet_NotFoundAndBadID(t *testing.T) {
	handler, _ := newCatalogFixture(t)

	assert.Equal(t, http.StatusNotFound, doGet(handler, "/api/v1/bikes/99").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(handler, "/api/v1/bikes/abc").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(handler, "/api/v1/bikes/-1").Code)
}

func TestRelated_SameCategoryWithoutSelf(t *testing.T) {
	handler, repo := newCatalogFixture(t)
	repo.add(domain.ProductTypeBike, &domain.Product{ID: 1, Name: "A", Category: "road"})
	repo.add(domain.ProductTypeBike, &domain.Product{ID: 2, Name: "B", Category: "road"})
	repo.add(domain.ProductTypeBike, &domain.Product{ID: 3, Name: "C", Category: "mtb"})

	rec := doGet(handler, "/api/v1/bikes/1/related")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProductsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, int64(2), resp.Products[0].ID)
}

func TestCategories(t *testing.T) {
	handler, repo := newCatalogFixture(t)
	repo.add(domain.ProductTypeBike, &domain.Product{ID: 1, Category: "road"})
	repo.add(domain.ProductTypeBike, &domain.Product{ID: 2, Category: "road"})

	rec := doGet(handler, "/api/v1/bikes/categories")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CategoriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"road"}, resp.Categories)
}

func TestSearch_RequiresQuery(t *testing.T) {
	handler, _ := newCatalogFixture(t)

	rec := doGet(handler, "/api/v1/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "missing_query", resp.Code)
}

func TestSearch_EchoesSeqAndQuery(t *testing.T) {
	handler, repo := newCatalogFixture(t)
	repo.add(domain.ProductTypeBike, &domain.Product{ID: 1, Name: "City Bike"})
	repo.add(domain.ProductTypePart, &domain.Product{ID: 2, Name: "City Bell"})

	rec := doGet(handler, "/api/v1/search?q=city&seq=7")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.Seq)
	assert.Equal(t, "city", resp.Query)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, domain.ProductTypeBike, resp.Results[0].Type)
}

func TestSearch_NoMatchesReturnsEmptyResults(t *testing.T) {
	handler, _ := newCatalogFixture(t)

	rec := doGet(handler, "/api/v1/search?q=zz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}
