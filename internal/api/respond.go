package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/youknownothingjs/ayursutra/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps engine errors onto HTTP statuses. Conflicts carry
// the colliding appointment ids per resource so the caller can resolve the
// collision by hand.
func writeServiceError(w http.ResponseWriter, err error) {
	var conflictErr *scheduling.ConflictError
	var transitionErr *scheduling.TransitionError

	switch {
	case errors.As(err, &conflictErr):
		body := ErrorResponse{
			Error:     "scheduling_conflict",
			Details:   conflictErr.Error(),
			Conflicts: make(map[string][]string),
		}
		for resource, ids := range conflictErr.Report.ByResource {
			for _, id := range ids {
				body.Conflicts[resource] = append(body.Conflicts[resource], id.String())
			}
		}
		writeJSON(w, http.StatusConflict, body)
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, "invalid_transition", transitionErr.Error())
	case errors.Is(err, scheduling.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrResourceNotFound):
		writeError(w, http.StatusNotFound, "resource_not_found", err.Error())
	case errors.Is(err, scheduling.ErrScheduleBusy):
		writeError(w, http.StatusConflict, "schedule_busy", err.Error())
	case errors.Is(err, scheduling.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
