package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/scheduler"
)

// writeErr maps scheduler errors to HTTP statuses. Unknown errors are logged and hidden.
func writeErr(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *scheduler.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, scheduler.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduler.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrDuplicate):
		httpx.WriteError(w, http.StatusConflict, "already exists")
	case errors.Is(err, scheduler.ErrSlotUnavailable):
		httpx.WriteError(w, http.StatusConflict, "time slot unavailable, please choose another slot")
	case errors.Is(err, scheduler.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, policy.ErrOnlineCancellationDisabled),
		errors.Is(err, policy.ErrOnlineReschedulingDisabled),
		errors.Is(err, policy.ErrInsideCancellationWindow):
		httpx.WriteError(w, http.StatusForbidden, err.Error())
	default:
		logger.Error("request failed", "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
