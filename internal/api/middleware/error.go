package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/openlmis/buq/pkg/utils"
)

// ErrorResponse is the standard error body for all API errors.
// @Description Standard error response format for all API errors
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code plus any violation details.
// @Description Detailed error information including code, message, and optional details
type ErrorDetail struct {
	Code      string         `json:"code" example:"NOT_FOUND"`
	Message   string         `json:"message" example:"remark not found"`
	Details   map[string]any `json:"details,omitempty" swaggertype:"object"`
	Timestamp time.Time      `json:"timestamp" example:"2023-01-01T00:00:00Z"`
	RequestID string         `json:"request_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
}

func SendError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := HTTPStatusFromError(err)

	var detail ErrorDetail
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		detail = ErrorDetail{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
	} else {
		detail = ErrorDetail{
			Code:    utils.CodeInternal,
			Message: "internal server error",
		}
	}
	detail.Timestamp = time.Now().UTC()
	detail.RequestID = chimiddleware.GetReqID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: detail})
}

func SendValidationError(w http.ResponseWriter, r *http.Request, message string, violations map[string]string) {
	SendError(w, r, utils.NewValidationError(message, violations))
}

// HTTPStatusFromError maps the error taxonomy onto HTTP status codes.
// Unknown errors stay 500 so internals never leak a misleading status.
func HTTPStatusFromError(err error) int {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case utils.CodeNotFound:
			return http.StatusNotFound
		case utils.CodeValidation, utils.CodeInvalidState:
			return http.StatusBadRequest
		case utils.CodeConflict:
			return http.StatusConflict
		case utils.CodeServiceUnavailable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}

	switch {
	case utils.IsNotFound(err):
		return http.StatusNotFound
	case utils.IsValidation(err), utils.IsInvalidState(err):
		return http.StatusBadRequest
	case utils.IsConflict(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
