package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/youknownothingjs/ayursutra/internal/scheduling"
)

type RouterConfig struct {
	Service   *scheduling.Service
	Projector *scheduling.Projector
	Queue     *scheduling.ApprovalQueue
	Registry  *scheduling.Registry
	PgPool    *pgxpool.Pool // nil in demo mode
	Redis     *redis.Client // nil in demo mode
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment lifecycle
	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Post("/appointments/bulk-approve", bulkApproveHandler(cfg.Service))
	r.Post("/appointments/bulk-reject", bulkRejectHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/approve", approveAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reject", rejectAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Service))

	// Approval queue
	r.Get("/approvals", listApprovalsHandler(cfg.Queue))

	// Calendar projections
	r.Get("/calendar/day", dayViewHandler(cfg.Projector))
	r.Get("/calendar/week", weekViewHandler(cfg.Projector))
	r.Get("/calendar/month", monthViewHandler(cfg.Projector))
	r.Get("/calendar/stats", statsHandler(cfg.Projector))

	// Resource registry
	r.Get("/resources", listResourcesHandler(cfg.Registry))
	r.Get("/resources/{id}", getResourceHandler(cfg.Registry))
	r.Put("/resources/{id}/availability", setAvailabilityHandler(cfg.Registry))

	return r
}
