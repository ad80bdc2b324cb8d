package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/types"
)

// Responder writes JSON bodies and is the single place where error kinds become
// HTTP statuses.
type Responder struct {
	logger      *logger.Logger
	development bool
}

// NewResponder creates a responder; development adds error detail to bodies
func NewResponder(log *logger.Logger, development bool) *Responder {
	return &Responder{logger: log, development: development}
}

// ErrorBody is the uniform error payload
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MessageBody is returned by deletions and other acknowledgements
type MessageBody struct {
	Message string `json:"message"`
}

// StatusCode maps an error kind to its HTTP status
func StatusCode(errorType types.ErrorType) int {
	switch errorType {
	case types.ErrorTypeValidation:
		return http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypeAuthorization:
		return http.StatusForbidden
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeConflict:
		return http.StatusConflict
	case types.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case types.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// JSON writes data with the given status. Nil slices are written as [].
func (rs *Responder) JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if v := reflect.ValueOf(data); v.Kind() == reflect.Slice && v.IsNil() {
			data = []struct{}{}
		}
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		rs.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// Message writes a {"message": ...} acknowledgement
func (rs *Responder) Message(w http.ResponseWriter, statusCode int, message string) {
	rs.JSON(w, statusCode, MessageBody{Message: message})
}

// Error translates err into a status and uniform body. Internal errors never expose
// their cause outside development mode.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	body := ErrorBody{}
	statusCode := http.StatusInternalServerError

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		statusCode = StatusCode(appErr.Type)
		body.Message = appErr.Message
		body.Code = appErr.Code
	} else {
		body.Message = "An internal error occurred"
		body.Code = types.ErrCodeInternalError
	}

	if statusCode >= http.StatusInternalServerError {
		if appErr == nil || appErr.Type == types.ErrorTypeInternal {
			body.Message = "An internal error occurred"
		}
		rs.logger.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	}

	if rs.development {
		body.Error = err.Error()
	}

	rs.JSON(w, statusCode, body)
}

// Decode reads a JSON request body into dst
func Decode(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "request body is required", nil)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body", map[string]interface{}{"cause": err.Error()})
	}
	return nil
}
