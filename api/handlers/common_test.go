package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/internal/ctxkeys"
	"github.com/pankgraph/cypherflow/types"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteSuccess(rec, req, map[string]string{"hello": "world"}, zap.NewNop())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestWriteSuccessIncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(ctxkeys.WithRequestID(req.Context(), "req-42"))

	WriteSuccess(rec, req, nil, zap.NewNop())

	resp := decodeResponse(t, rec)
	assert.Equal(t, "req-42", resp.RequestID)
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		code   types.ErrorCode
		status int
	}{
		{types.ErrInvalidRequest, http.StatusBadRequest},
		{types.ErrUnauthorized, http.StatusUnauthorized},
		{types.ErrAgentNotFound, http.StatusNotFound},
		{types.ErrRateLimited, http.StatusTooManyRequests},
		{types.ErrAgentBusy, http.StatusServiceUnavailable},
		{types.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{types.ErrUpstreamTimeout, http.StatusGatewayTimeout},
		{types.ErrUpstreamError, http.StatusBadGateway},
		{types.ErrGraphAPIFailed, http.StatusBadGateway},
		{types.ErrGenerationFailed, http.StatusInternalServerError},
		{types.ErrBudgetExhausted, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)

			WriteError(rec, req, types.NewError(tc.code, "boom"), zap.NewNop())

			assert.Equal(t, tc.status, rec.Code)
			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tc.code), resp.Error.Code)
			assert.Equal(t, "boom", resp.Error.Message)
		})
	}
}

func TestWriteErrorHonorsExplicitHTTPStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	err := types.NewError(types.ErrInternalError, "teapot").WithHTTPStatus(http.StatusTeapot)
	WriteError(rec, req, err, zap.NewNop())

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestWriteErrorRetryableFlag(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	err := types.NewError(types.ErrUpstreamError, "flaky").WithRetryable(true)
	WriteError(rec, req, err, zap.NewNop())

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.True(t, resp.Error.Retryable)
}

func TestWriteErrorPlainError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, errors.New("something broke"), zap.NewNop())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(types.ErrInternalError), resp.Error.Code)
	assert.Equal(t, "something broke", resp.Error.Message)
}

func TestWriteErrorUnwrapsCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	inner := types.NewError(types.ErrRateLimited, "slow down")
	wrapped := types.NewError(types.ErrUpstreamError, "call failed").WithCause(inner)
	WriteError(rec, req, wrapped, zap.NewNop())

	// errors.As finds the outermost typed error first.
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, string(types.ErrUpstreamError), resp.Error.Code)
}
