package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/youknownothingjs/ayursutra/internal/scheduling"
)

func createAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, start, ok := parseSlot(w, req.Date, req.Start)
		if !ok {
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), scheduling.CreateRequest{
			PatientRef:      req.PatientRef,
			TherapyType:     scheduling.TherapyType(req.TherapyType),
			Date:            date,
			StartMinute:     start,
			DurationMinutes: req.DurationMinutes,
			ResourceIDs:     req.ResourceIDs,
			Room:            req.Room,
			Notes:           req.Notes,
			Urgent:          req.Urgent,
			Recurring:       req.Recurring,
			Confirmed:       req.Confirmed,
			Override:        req.Override,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteAppointment(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func rescheduleAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, start, parsed := parseSlot(w, req.Date, req.Start)
		if !parsed {
			return
		}

		appt, err := svc.RescheduleAppointment(r.Context(), id, req.ResourceIDs, date, start)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func approveAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.ApproveAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rejectAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		var req ReasonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.RejectAppointment(r.Context(), id, req.Reason)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		var req ReasonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), id, req.Reason, req.CancelledBy)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.CompleteAppointment(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func bulkApproveHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, _, ok := parseBulkRequest(w, r)
		if !ok {
			return
		}

		writeJSON(w, http.StatusOK, toBatchResponses(svc.BulkApprove(r.Context(), ids)))
	}
}

func bulkRejectHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, reason, ok := parseBulkRequest(w, r)
		if !ok {
			return
		}

		writeJSON(w, http.StatusOK, toBatchResponses(svc.BulkReject(r.Context(), ids, reason)))
	}
}

func listApprovalsHandler(queue *scheduling.ApprovalQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := scheduling.PendingFilter{
			UrgentOnly: r.URL.Query().Get("urgent") == "true",
			ResourceID: r.URL.Query().Get("resource"),
		}

		pending, err := queue.ListPending(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(pending))
		for i := range pending {
			resp = append(resp, toAppointmentResponse(&pending[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseAppointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseSlot(w http.ResponseWriter, dateStr, startStr string) (time.Time, int, bool) {
	date, err := time.Parse(scheduling.DateLayout, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", fmt.Sprintf("date must be %s", scheduling.DateLayout))
		return time.Time{}, 0, false
	}
	start, err := scheduling.ParseClock(startStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start", "start must be HH:MM")
		return time.Time{}, 0, false
	}
	return date, start, true
}

func parseBulkRequest(w http.ResponseWriter, r *http.Request) ([]uuid.UUID, string, bool) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return nil, "", false
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", fmt.Sprintf("%q is not a valid UUID", raw))
			return nil, "", false
		}
		ids = append(ids, id)
	}
	return ids, req.Reason, true
}

func toBatchResponses(results []scheduling.BatchResult) []BatchResultResponse {
	resp := make([]BatchResultResponse, 0, len(results))
	for _, res := range results {
		item := BatchResultResponse{ID: res.ID.String(), OK: res.OK}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		resp = append(resp, item)
	}
	return resp
}
