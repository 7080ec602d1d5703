package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/youknownothingjs/ayursutra/internal/scheduling"
)

func dayViewHandler(projector *scheduling.Projector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseDateQuery(w, r)
		if !ok {
			return
		}

		grid, err := projector.ProjectDay(r.Context(), date, parseResourcesQuery(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, grid)
	}
}

func weekViewHandler(projector *scheduling.Projector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseDateQuery(w, r)
		if !ok {
			return
		}

		grid, err := projector.ProjectWeek(r.Context(), date, parseResourcesQuery(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, grid)
	}
}

func monthViewHandler(projector *scheduling.Projector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseDateQuery(w, r)
		if !ok {
			return
		}

		grid, err := projector.ProjectMonth(r.Context(), date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, grid)
	}
}

func statsHandler(projector *scheduling.Projector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := parseDateQuery(w, r)
		if !ok {
			return
		}

		stats, err := projector.Stats(r.Context(), date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// parseDateQuery reads ?date=2006-01-02, defaulting to today.
func parseDateQuery(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Now().UTC(), true
	}
	date, err := time.Parse(scheduling.DateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be "+scheduling.DateLayout)
		return time.Time{}, false
	}
	return date, true
}

// parseResourcesQuery reads ?resources=vaidya-1,room-101. Empty means all.
func parseResourcesQuery(r *http.Request) []string {
	raw := r.URL.Query().Get("resources")
	if raw == "" || raw == "all" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
