package handlers

import (
	"net/http"
	"strconv"

	"github.com/aerofleet/fleet-maintenance/internal/maintenance"
	"github.com/aerofleet/fleet-maintenance/internal/middleware"
)

// DashboardHandler exposes the read-only aggregate views.
type DashboardHandler struct {
	dashboard *maintenance.Dashboard
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(dashboard *maintenance.Dashboard) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats handles GET /api/dashboard/maintenance.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	stats, err := h.dashboard.Stats(r.Context(), claims.OrganizationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DueSoon handles GET /api/dashboard/due-soon.
func (h *DashboardHandler) DueSoon(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	items, err := h.dashboard.ItemsDueSoon(r.Context(), claims.OrganizationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Overdue handles GET /api/dashboard/overdue.
func (h *DashboardHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	items, err := h.dashboard.OverdueItems(r.Context(), claims.OrganizationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Upcoming handles GET /api/dashboard/upcoming?days=N.
func (h *DashboardHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	records, err := h.dashboard.UpcomingMaintenance(r.Context(), claims.OrganizationID, days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Recent handles GET /api/dashboard/recent?limit=N.
func (h *DashboardHandler) Recent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.dashboard.RecentMaintenance(r.Context(), claims.OrganizationID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
