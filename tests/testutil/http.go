package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/internal/infrastructure/auth"
	"github.com/printshop/backend/internal/infrastructure/config"
	"github.com/printshop/backend/internal/interfaces/http/dto"
	"github.com/printshop/backend/internal/interfaces/http/handler"
	"github.com/printshop/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/require"
)

// TestJWTConfig signs every token issued in tests.
var TestJWTConfig = config.JWTConfig{
	Secret:                "printshop-test-secret-with-enough-length",
	AccessTokenExpiration: time.Hour,
	Issuer:                "printshop-test",
}

// API is the full HTTP stack over a Stack's services.
type API struct {
	Engine *gin.Engine
	JWT    *auth.JWTService
	Stack  *Stack
}

// NewAPI builds the gin engine the server runs, minus telemetry, over s.
func NewAPI(t *testing.T, s *Stack) *API {
	t.Helper()

	jwtService := auth.NewJWTService(TestJWTConfig)
	handlers := router.NewHandlers(router.Services{
		Orders:     s.Orders,
		Payments:   s.Payments,
		Invoices:   s.Invoices,
		Quotations: s.Quotations,
		Jobs:       s.Jobs,
		Pricing:    s.Pricing,
		Approvals:  s.Approvals,
		Catalog:    s.Catalog,
	}, handler.NewSystemHandler("printshop-backend", "test", s.DB))

	engine := router.NewEngine(router.EngineConfig{
		HTTP:          config.HTTPConfig{MaxBodySize: 1 << 20},
		ServiceName:   "printshop-backend-test",
		Validator:     jwtService,
		OperatorRoles: ApproverRoles,
		Handlers:      handlers,
	})
	return &API{Engine: engine, JWT: jwtService, Stack: s}
}

// Token issues a bearer token for userID with role
func (a *API) Token(t *testing.T, userID uint64, role string) string {
	t.Helper()
	token, err := a.JWT.GenerateAccessToken(auth.GenerateTokenInput{
		UserID:   shared.UserID(userID),
		Username: "user",
		Role:     role,
	})
	require.NoError(t, err)
	return token.Token
}

// Do sends a request through the engine. body is JSON-encoded unless it is
// nil or already a string; an empty token sends no Authorization header.
func (a *API) Do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		reader = ToJSONReader(t, b)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.Engine.ServeHTTP(w, req)
	return w
}

// AsClerk sends a request as the counter clerk
func (a *API) AsClerk(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return a.Do(t, method, path, body, a.Token(t, ClerkID, "clerk"))
}

// AsManager sends a request as the shop manager
func (a *API) AsManager(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return a.Do(t, method, path, body, a.Token(t, ManagerID, "manager"))
}

// DecodeData asserts a success envelope and decodes its data into T.
func DecodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "Failed to parse JSON response")
	require.True(t, envelope.Success, "Expected success response, got %s", w.Body.String())

	var data T
	require.NoError(t, json.Unmarshal(envelope.Data, &data), "Failed to parse response data")
	return data
}

// DecodeError asserts an error envelope and returns its error object.
func DecodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to parse JSON response")
	require.False(t, resp.Success, "Expected error response, got %s", w.Body.String())
	require.NotNil(t, resp.Error, "Expected error object in response")
	return *resp.Error
}

// RequireStatus fails the test with the response body when the status differs.
func RequireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, "Unexpected status code, body: %s", w.Body.String())
}

// ToJSONReader converts a value to a JSON io.Reader.
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}
