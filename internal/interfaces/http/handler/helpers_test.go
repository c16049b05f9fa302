package handler_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apppricing "github.com/printshop/backend/internal/application/pricing"
	appsales "github.com/printshop/backend/internal/application/sales"
	"github.com/printshop/backend/internal/domain/catalog"
	"github.com/printshop/backend/internal/domain/sales"
	"github.com/printshop/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type fixture struct {
	api *testutil.API
	s   *testutil.Stack
	// flyer is a stock item at 25.00, cards a service item at 40.00
	flyer *catalog.Product
	cards *catalog.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := testutil.NewStack(t)
	return &fixture{
		api:   testutil.NewAPI(t, s),
		s:     s,
		flyer: s.SeedFixedProduct(t, "FLY-A5", catalog.ProductTypeInventory, "25.00"),
		cards: s.SeedFixedProduct(t, "BC-STD", catalog.ProductTypeService, "40.00"),
	}
}

func url(format string, args ...any) string {
	return "/api/v1" + fmt.Sprintf(format, args...)
}

// createOrder posts a counter order as the clerk
func (f *fixture) createOrder(t *testing.T, terms sales.PaymentTerms, customerID *uint64, lines ...apppricing.LineInput) appsales.OrderResponse {
	t.Helper()
	w := f.api.AsClerk(t, http.MethodPost, url("/orders"), appsales.CreateOrderRequest{
		CustomerID:   customerID,
		OrderType:    sales.OrderTypeCounter,
		PaymentTerms: terms,
		Items:        lines,
	})
	testutil.RequireStatus(t, w, http.StatusCreated)
	return testutil.DecodeData[appsales.OrderResponse](t, w)
}

func (f *fixture) moveOrder(t *testing.T, orderID uint64, status sales.OrderStatus) appsales.OrderResponse {
	t.Helper()
	w := f.api.AsClerk(t, http.MethodPost, url("/orders/%d/status", orderID),
		appsales.UpdateOrderStatusRequest{Status: status})
	testutil.RequireStatus(t, w, http.StatusOK)
	return testutil.DecodeData[appsales.OrderResponse](t, w)
}

func (f *fixture) pay(t *testing.T, orderID uint64, amount string) appsales.PaymentResponse {
	t.Helper()
	w := f.api.AsClerk(t, http.MethodPost, url("/payments"), appsales.RecordPaymentRequest{
		OrderID: &orderID,
		Amount:  testutil.Dec(amount),
		Method:  sales.PaymentMethodCash,
	})
	testutil.RequireStatus(t, w, http.StatusCreated)
	return testutil.DecodeData[appsales.PaymentResponse](t, w)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, testutil.Dec(want).Equal(got), "want %s, got %s", want, got.String())
}

// assertError checks the status and the domain error kind of a failed response
func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	testutil.RequireStatus(t, w, status)
	errInfo := testutil.DecodeError(t, w)
	assert.Equal(t, kind, errInfo.Kind)
	assert.NotEmpty(t, errInfo.Code)
	assert.NotEmpty(t, errInfo.RequestID)
}
