package router_test

import (
	"net/http"
	"testing"

	"github.com/printshop/backend/internal/interfaces/http/dto"
	"github.com/printshop/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewEngine_Routes(t *testing.T) {
	api := testutil.NewAPI(t, testutil.NewStack(t))

	want := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/api/v1/health"},
		{http.MethodGet, "/api/v1/system/info"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/orders/:id"},
		{http.MethodPost, "/api/v1/orders/:id/items"},
		{http.MethodPut, "/api/v1/orders/:id/items/:item_id"},
		{http.MethodDelete, "/api/v1/orders/:id/items/:item_id"},
		{http.MethodPost, "/api/v1/orders/:id/discount"},
		{http.MethodPost, "/api/v1/orders/:id/status"},
		{http.MethodGet, "/api/v1/orders/:id/jobs"},
		{http.MethodPost, "/api/v1/payments"},
		{http.MethodPost, "/api/v1/invoices"},
		{http.MethodPost, "/api/v1/invoices/mark-overdue"},
		{http.MethodGet, "/api/v1/invoices/:id"},
		{http.MethodPost, "/api/v1/invoices/:id/overrides"},
		{http.MethodPost, "/api/v1/invoices/:id/issue"},
		{http.MethodPost, "/api/v1/invoices/:id/dispute"},
		{http.MethodPost, "/api/v1/quotations"},
		{http.MethodGet, "/api/v1/quotations/:id"},
		{http.MethodPost, "/api/v1/quotations/:id/status"},
		{http.MethodPost, "/api/v1/quotations/:id/convert"},
		{http.MethodGet, "/api/v1/jobs/:id"},
		{http.MethodPost, "/api/v1/jobs/:id/assign"},
		{http.MethodPost, "/api/v1/jobs/:id/status"},
		{http.MethodPost, "/api/v1/jobs/:id/comments"},
		{http.MethodPost, "/api/v1/pricing/calculate"},
		{http.MethodPost, "/api/v1/approvals"},
		{http.MethodGet, "/api/v1/approvals/:id"},
		{http.MethodPost, "/api/v1/approvals/:id/resolve"},
		{http.MethodGet, "/api/v1/products"},
		{http.MethodGet, "/api/v1/customers"},
	}

	registered := make(map[string]bool)
	for _, route := range api.Engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, r := range want {
		assert.True(t, registered[r.method+" "+r.path], "missing route %s %s", r.method, r.path)
	}
	assert.Len(t, api.Engine.Routes(), len(want))
}

func TestNewEngine_Middleware(t *testing.T) {
	api := testutil.NewAPI(t, testutil.NewStack(t))

	t.Run("public endpoints skip authentication", func(t *testing.T) {
		for _, path := range []string{"/health", "/api/v1/health", "/api/v1/system/info"} {
			w := api.Do(t, http.MethodGet, path, nil, "")
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
	})

	t.Run("API routes require a bearer token", func(t *testing.T) {
		w := api.Do(t, http.MethodGet, "/api/v1/orders/1", nil, "")
		testutil.RequireStatus(t, w, http.StatusUnauthorized)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("security headers on every response", func(t *testing.T) {
		w := api.Do(t, http.MethodGet, "/health", nil, "")
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})

	t.Run("unknown route", func(t *testing.T) {
		w := api.Do(t, http.MethodGet, "/api/v1/nope", nil, "")
		testutil.RequireStatus(t, w, http.StatusNotFound)
		errInfo := testutil.DecodeError(t, w)
		assert.Equal(t, dto.ErrCodeRouteNotFound, errInfo.Code)
		assert.NotEmpty(t, errInfo.RequestID)
	})

	t.Run("overdue sweep is limited to operators", func(t *testing.T) {
		w := api.AsClerk(t, http.MethodPost, "/api/v1/invoices/mark-overdue", nil)
		testutil.RequireStatus(t, w, http.StatusForbidden)

		w = api.AsManager(t, http.MethodPost, "/api/v1/invoices/mark-overdue", nil)
		testutil.RequireStatus(t, w, http.StatusOK)
	})
}
