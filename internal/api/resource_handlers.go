package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/youknownothingjs/ayursutra/internal/scheduling"
)

func listResourcesHandler(registry *scheduling.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter scheduling.ResourceFilter
		if raw := r.URL.Query().Get("kind"); raw != "" {
			kind := scheduling.ResourceKind(raw)
			filter.Kind = &kind
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := scheduling.ResourceStatus(raw)
			filter.Status = &status
		}

		resources, err := registry.ListResources(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]ResourceResponse, 0, len(resources))
		for i := range resources {
			resp = append(resp, toResourceResponse(&resources[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getResourceHandler(registry *scheduling.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resource, err := registry.GetResource(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResourceResponse(resource))
	}
}

func setAvailabilityHandler(registry *scheduling.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		resource, err := registry.SetAvailability(r.Context(), chi.URLParam(r, "id"), scheduling.ResourceStatus(req.Status))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResourceResponse(resource))
	}
}
