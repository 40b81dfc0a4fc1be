package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-auth-service/internal/middleware"
	"go-auth-service/internal/model"
	"go-auth-service/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError is the single place where error kinds become HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	var authErr *model.AuthError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.As(err, &authErr) {
		status, body.Code = statusForKind(authErr.Kind)
		body.Message = authErr.Message
		body.Details = authErr.Field
	}

	if status == http.StatusInternalServerError {
		slog.Error("unhandled error", "request_id", middleware.RequestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
		body.Code = "INTERNAL_ERROR"
		body.Message = "Unexpected server error"
		body.Details = ""
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func statusForKind(kind error) (int, string) {
	switch {
	case errors.Is(kind, model.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(kind, model.ErrValidationFailed):
		return http.StatusUnprocessableEntity, "VALIDATION_FAILED"
	case errors.Is(kind, model.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(kind, model.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(kind, model.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
