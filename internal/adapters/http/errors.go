package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ecavalidator/internal/domain"
)

type ErrorCode string

const (
	CodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	CodeUnavailable    ErrorCode = "SERVICE_UNAVAILABLE"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeInternal       ErrorCode = "INTERNAL"
)

type errorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type ErrorResponse struct {
	Error errorBody `json:"error"`
}

type ErrorHTTP struct {
	Status int
	Body   ErrorResponse
}

// FromError maps service errors onto HTTP responses. Policy violations are
// not errors and never reach this function.
func FromError(err error) ErrorHTTP {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return ErrorHTTP{
			Status: http.StatusBadRequest,
			Body:   ErrorResponse{Error: errorBody{Code: CodeInvalidRequest, Message: err.Error()}},
		}
	case errors.Is(err, domain.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ErrorHTTP{
			Status: http.StatusServiceUnavailable,
			Body: ErrorResponse{Error: errorBody{
				Code:    CodeUnavailable,
				Message: "commits could not be evaluated, retry later",
			}},
		}
	case errors.Is(err, domain.ErrNotFound):
		return ErrorHTTP{
			Status: http.StatusNotFound,
			Body:   ErrorResponse{Error: errorBody{Code: CodeNotFound, Message: "resource not found"}},
		}
	default:
		return ErrorHTTP{
			Status: http.StatusInternalServerError,
			Body:   ErrorResponse{Error: errorBody{Code: CodeInternal, Message: "internal error"}},
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	httpErr := FromError(err)
	writeJSON(w, httpErr.Status, httpErr.Body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
