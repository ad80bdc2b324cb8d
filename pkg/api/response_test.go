package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode_DistinguishesKinds(t *testing.T) {
	tests := []struct {
		errorType types.ErrorType
		expected  int
	}{
		{types.ErrorTypeValidation, http.StatusBadRequest},
		{types.ErrorTypeAuthentication, http.StatusUnauthorized},
		{types.ErrorTypeAuthorization, http.StatusForbidden},
		{types.ErrorTypeNotFound, http.StatusNotFound},
		{types.ErrorTypeConflict, http.StatusConflict},
		{types.ErrorTypeRateLimit, http.StatusTooManyRequests},
		{types.ErrorTypeUnavailable, http.StatusServiceUnavailable},
		{types.ErrorTypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusCode(tt.errorType))
		})
	}
}

func TestResponder_ErrorBody(t *testing.T) {
	rs := NewResponder(logger.NewNop(), false)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/x", nil)

	w := httptest.NewRecorder()
	rs.Error(w, req, types.NewNotFoundError(types.ErrCodeNotFound, "appointment not found"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "appointment not found", body.Message)
	assert.Empty(t, body.Error)
}

func TestResponder_InternalErrorHidesCause(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	w := httptest.NewRecorder()
	NewResponder(logger.NewNop(), false).Error(w, req, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")

	w = httptest.NewRecorder()
	NewResponder(logger.NewNop(), true).Error(w, req, errors.New("pq: connection refused"))
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestResponder_NilSliceIsEmptyArray(t *testing.T) {
	rs := NewResponder(logger.NewNop(), false)

	var items []*types.InventoryItem
	w := httptest.NewRecorder()
	rs.JSON(w, http.StatusOK, items)

	assert.JSONEq(t, `[]`, w.Body.String())
}
