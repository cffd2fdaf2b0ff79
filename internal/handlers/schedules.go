package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aerofleet/fleet-maintenance/internal/maintenance"
	"github.com/aerofleet/fleet-maintenance/internal/middleware"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// ScheduleHandler exposes the schedule registry over HTTP. Every operation
// is scoped to the caller's organization from the JWT claims.
type ScheduleHandler struct {
	registry *maintenance.Registry
}

// NewScheduleHandler creates a schedule handler.
func NewScheduleHandler(registry *maintenance.Registry) *ScheduleHandler {
	return &ScheduleHandler{registry: registry}
}

// Create handles POST /api/schedules.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var schedule models.MaintenanceSchedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	schedule.OrganizationID = claims.OrganizationID

	created, err := h.registry.Create(r.Context(), schedule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get handles GET /api/schedules/{id}.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	schedule, err := h.registry.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if schedule.OrganizationID != claims.OrganizationID {
		http.Error(w, "schedule not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// Update handles PUT /api/schedules/{id}.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	existing, err := h.registry.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.OrganizationID != claims.OrganizationID {
		http.Error(w, "schedule not found", http.StatusNotFound)
		return
	}

	var schedule models.MaintenanceSchedule
	if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	updated, err := h.registry.Update(r.Context(), id, schedule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/schedules/{id}. Items referencing the schedule
// are not touched; callers remove the association per item.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	existing, err := h.registry.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.OrganizationID != claims.OrganizationID {
		http.Error(w, "schedule not found", http.StatusNotFound)
		return
	}

	if err := h.registry.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/schedules with optional item_type and category
// query filters.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	filter := models.ScheduleFilter{
		OrganizationID: claims.OrganizationID,
		ItemType:       models.ItemType(r.URL.Query().Get("item_type")),
		Category:       r.URL.Query().Get("category"),
	}
	schedules, err := h.registry.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if schedules == nil {
		schedules = []models.MaintenanceSchedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}
