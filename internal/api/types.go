package api

import (
	"time"

	"github.com/youknownothingjs/ayursutra/internal/scheduling"
)

type CreateAppointmentRequest struct {
	PatientRef      string   `json:"patient_ref"`
	TherapyType     string   `json:"therapy_type"`
	Date            string   `json:"date"`  // 2006-01-02
	Start           string   `json:"start"` // HH:MM
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	ResourceIDs     []string `json:"resource_ids"`
	Room            string   `json:"room,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	Urgent          bool     `json:"urgent,omitempty"`
	Recurring       bool     `json:"recurring,omitempty"`
	Confirmed       bool     `json:"confirmed,omitempty"`
	Override        bool     `json:"override,omitempty"`
}

type RescheduleRequest struct {
	ResourceIDs []string `json:"resource_ids,omitempty"`
	Date        string   `json:"date"`
	Start       string   `json:"start"`
}

type ReasonRequest struct {
	Reason      string `json:"reason"`
	CancelledBy string `json:"cancelled_by,omitempty"`
}

type BulkRequest struct {
	IDs    []string `json:"ids"`
	Reason string   `json:"reason,omitempty"`
}

type AvailabilityRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	ID              string    `json:"id"`
	PatientRef      string    `json:"patient_ref"`
	TherapyType     string    `json:"therapy_type"`
	Date            string    `json:"date"`
	Start           string    `json:"start"`
	End             string    `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	ResourceIDs     []string  `json:"resource_ids"`
	Room            string    `json:"room,omitempty"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	Urgent          bool      `json:"urgent,omitempty"`
	Recurring       bool      `json:"recurring,omitempty"`
	CancelReason    string    `json:"cancel_reason,omitempty"`
	CancelledBy     string    `json:"cancelled_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID.String(),
		PatientRef:      a.PatientRef,
		TherapyType:     string(a.TherapyType),
		Date:            a.Date.Format(scheduling.DateLayout),
		Start:           scheduling.FormatClock(a.StartMinute),
		End:             scheduling.FormatClock(a.EndMinute()),
		DurationMinutes: a.DurationMinutes,
		ResourceIDs:     a.ResourceIDs,
		Room:            a.Room,
		Status:          string(a.Status),
		Notes:           a.Notes,
		Urgent:          a.Urgent,
		Recurring:       a.Recurring,
		CancelReason:    a.CancelReason,
		CancelledBy:     a.CancelledBy,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type BatchResultResponse struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type ResourceResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	Specialty   string `json:"specialty,omitempty"`
	Capacity    int    `json:"capacity,omitempty"`
	Condition   string `json:"condition,omitempty"`
}

func toResourceResponse(r *scheduling.Resource) ResourceResponse {
	resp := ResourceResponse{
		ID:          r.ID,
		Kind:        string(r.Kind),
		DisplayName: r.DisplayName,
		Status:      string(r.Status),
	}
	if r.Specialty != nil {
		resp.Specialty = *r.Specialty
	}
	if r.Capacity != nil {
		resp.Capacity = *r.Capacity
	}
	if r.Condition != nil {
		resp.Condition = *r.Condition
	}
	return resp
}

type ErrorResponse struct {
	Error     string              `json:"error"`
	Details   string              `json:"details,omitempty"`
	Conflicts map[string][]string `json:"conflicts,omitempty"`
}
