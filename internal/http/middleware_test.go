package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMiddleware_IssuesCookieForNewVisitor(t *testing.T) {
	var gotSession string
	handler := SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = getSessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotEmpty(t, gotSession)
	_, err := uuid.Parse(gotSession)
	assert.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.Equal(t, gotSession, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSessionMiddleware_ReusesExistingCookie(t *testing.T) {
	var gotSession string
	handler := SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = getSessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "existing-session"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "existing-session", gotSession)
	assert.Empty(t, rec.Result().Cookies(), "no new cookie when one already exists")
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-supplied")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-supplied", rec.Header().Get("X-Request-ID"))
}
