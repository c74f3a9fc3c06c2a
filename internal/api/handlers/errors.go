package handlers

import (
	"errors"
	"net/http"

	"github.com/cruiselens/payments-backend/internal/api/httpx"
	"github.com/cruiselens/payments-backend/internal/logger"
	"github.com/cruiselens/payments-backend/internal/services"
	"github.com/cruiselens/payments-backend/internal/validate"
)

// writeServiceError maps service errors onto the HTTP error envelope.
// Store and unexpected failures keep their detail in the server log only.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErrs validate.Errs
	switch {
	case errors.As(err, &fieldErrs):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "validation failed", fieldErrs)
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, services.ErrAmountMismatch):
		httpx.WriteError(w, http.StatusBadRequest, "amount_mismatch", "amount does not match", nil)
	case errors.Is(err, services.ErrAuthentication):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_hash", "invalid hash", nil)
	case errors.Is(err, services.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
	case errors.Is(err, services.ErrStore):
		logger.FromContext(r.Context()).Error("store failure", "err", err, "path", r.URL.Path)
		httpx.WriteError(w, http.StatusInternalServerError, "store_unavailable", "store unavailable, retry later", nil)
	default:
		logger.FromContext(r.Context()).Error("unexpected error", "err", err, "path", r.URL.Path)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
