package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bot-dashboard/internal/model"
	"bot-dashboard/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrInvalidToken) {
		status = http.StatusBadRequest
		body.Code = "INVALID_TOKEN"
		body.Message = "Invalid or expired token"
	} else if errors.Is(err, model.ErrExchangeFailed) {
		status = http.StatusBadRequest
		body.Code = "EXCHANGE_FAILED"
		body.Message = "Failed to authenticate with Discord"
	} else if errors.Is(err, model.ErrProfileFetchFailed) {
		status = http.StatusBadRequest
		body.Code = "PROFILE_FETCH_FAILED"
		body.Message = "Failed to fetch user info from Discord"
	} else if errors.Is(err, model.ErrCredentialMissing) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Discord token not found"
	} else if errors.Is(err, model.ErrIdentityNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "User not found"
	} else if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "Access denied. Admin privileges required."
	} else if errors.Is(err, model.ErrInvalidExpiry) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Expiry time must be in the future"
	} else if errors.Is(err, model.ErrStorage) {
		status = http.StatusInternalServerError
		body.Code = "STORAGE_ERROR"
		body.Message = "Persistence layer failure"
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}
