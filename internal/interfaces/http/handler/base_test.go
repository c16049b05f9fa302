package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/printshop/backend/internal/domain/shared"
	"github.com/printshop/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		kind     string
		detailed bool
	}{
		{"validation", shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive"), http.StatusBadRequest, "INVALID_QUANTITY", "VALIDATION_ERROR", false},
		{"not found", shared.NewNotFoundError("order", 42), http.StatusNotFound, "", "NOT_FOUND", true},
		{"conflict", shared.NewConcurrencyConflictError("order", 42), http.StatusConflict, "", "CONCURRENCY_CONFLICT", true},
		{"transition", shared.NewInvalidTransitionError("order", 42, "DRAFT", "PAID"), http.StatusUnprocessableEntity, "INVALID_TRANSITION", "INVALID_TRANSITION", true},
		{"credit", shared.NewDomainError(shared.KindCreditDenied, "CREDIT_LIMIT_EXCEEDED", "Over limit"), http.StatusUnprocessableEntity, "CREDIT_LIMIT_EXCEEDED", "CREDIT_DENIED", false},
		{"approval", shared.NewDomainError(shared.KindInsufficientApprovalAuthority, "SELF_APPROVAL", "No"), http.StatusUnprocessableEntity, "SELF_APPROVAL", "INSUFFICIENT_APPROVAL_AUTHORITY", false},
		{"configuration", shared.NewConfigurationError("NO_PRICING_RULE", "No rule"), http.StatusUnprocessableEntity, "NO_PRICING_RULE", "CONFIGURATION_ERROR", false},
		{"wrapped", fmt.Errorf("record payment: %w", shared.NewValidationError("INVALID_AMOUNT", "Zero")), http.StatusBadRequest, "INVALID_AMOUNT", "VALIDATION_ERROR", false},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext(http.MethodGet, "/", "")
			h := &BaseHandler{}
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			if tt.code != "" {
				assert.Equal(t, tt.code, resp.Error.Code)
			} else {
				assert.NotEmpty(t, resp.Error.Code)
			}
			assert.Equal(t, tt.kind, resp.Error.Kind)
			if tt.detailed {
				assert.NotEmpty(t, resp.Error.Details)
			}
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, resp.Error.Message, "connection reset")
			}
			assert.Len(t, c.Errors, 1)
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		c, w := newContext(http.MethodGet, "/", "")
		(&BaseHandler{}).HandleError(c, nil)
		assert.False(t, c.Writer.Written())
		assert.Empty(t, w.Body.Bytes())
	})
}

func TestBaseHandler_bindJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		c, w := newContext(http.MethodPost, "/", `{"name":"A5 flyer"}`)
		var p payload
		assert.True(t, (&BaseHandler{}).bindJSON(c, &p))
		assert.Equal(t, "A5 flyer", p.Name)
		assert.False(t, c.Writer.Written())
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		c, w := newContext(http.MethodPost, "/", `{"name":`)
		var p payload
		assert.False(t, (&BaseHandler{}).bindJSON(c, &p))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decode(t, w).Error.Code)
	})
}

func TestBaseHandler_parseID(t *testing.T) {
	tests := []struct {
		value string
		want  uint64
		ok    bool
	}{
		{"17", 17, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run("id="+tt.value, func(t *testing.T) {
			c, w := newContext(http.MethodGet, "/", "")
			c.Params = gin.Params{{Key: "id", Value: tt.value}}

			id, ok := (&BaseHandler{}).parseID(c, "id")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
			if !tt.ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, dto.ErrCodeInvalidID, decode(t, w).Error.Code)
			}
		})
	}
}

func TestBaseHandler_Responses(t *testing.T) {
	h := &BaseHandler{}
	tests := []struct {
		name   string
		write  func(c *gin.Context)
		status int
	}{
		{"success", func(c *gin.Context) { h.Success(c, gin.H{"id": 1}) }, http.StatusOK},
		{"created", func(c *gin.Context) { h.Created(c, gin.H{"id": 1}) }, http.StatusCreated},
		{"accepted", func(c *gin.Context) { h.Accepted(c, gin.H{"id": 1}) }, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext(http.MethodGet, "/", "")
			tt.write(c)
			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.True(t, resp.Success)
			assert.Nil(t, resp.Error)
			assert.NotNil(t, resp.Data)
		})
	}
}
