package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pankgraph/cypherflow/internal/ctxkeys"
	"github.com/pankgraph/cypherflow/types"
)

// Response is the envelope for every JSON payload the API returns.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorInfo carries error details in API responses.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, resp Response, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil && logger != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}, logger *zap.Logger) {
	resp := Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	if id, ok := ctxkeys.RequestID(r.Context()); ok {
		resp.RequestID = id
	}
	WriteJSON(w, http.StatusOK, resp, logger)
}

// WriteError writes an error response, deriving the HTTP status from the
// error code when the error does not carry one itself.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	status := http.StatusInternalServerError
	info := &ErrorInfo{
		Code:    string(types.ErrInternalError),
		Message: "internal server error",
	}

	var typed *types.Error
	if errors.As(err, &typed) {
		info.Code = string(typed.Code)
		info.Message = typed.Message
		info.Retryable = typed.Retryable
		if typed.HTTPStatus != 0 {
			status = typed.HTTPStatus
		} else {
			status = httpStatusForCode(typed.Code)
		}
	} else if err != nil {
		info.Message = err.Error()
	}

	resp := Response{
		Success:   false,
		Error:     info,
		Timestamp: time.Now().UTC(),
	}
	if id, ok := ctxkeys.RequestID(r.Context()); ok {
		resp.RequestID = id
	}
	WriteJSON(w, status, resp, logger)
}

// WriteErrorMessage writes an error response from a code and message.
func WriteErrorMessage(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, r, types.NewError(code, message), logger)
}

func httpStatusForCode(code types.ErrorCode) int {
	switch code {
	case types.ErrInvalidRequest:
		return http.StatusBadRequest
	case types.ErrUnauthorized:
		return http.StatusUnauthorized
	case types.ErrAgentNotFound:
		return http.StatusNotFound
	case types.ErrRateLimited:
		return http.StatusTooManyRequests
	case types.ErrAgentBusy, types.ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case types.ErrUpstreamTimeout:
		return http.StatusGatewayTimeout
	case types.ErrUpstreamError, types.ErrGraphAPIFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
