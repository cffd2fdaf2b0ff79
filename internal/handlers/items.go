package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aerofleet/fleet-maintenance/internal/db"
	"github.com/aerofleet/fleet-maintenance/internal/maintenance"
	"github.com/aerofleet/fleet-maintenance/internal/middleware"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// ItemHandler exposes maintainable items, their schedule associations, meter
// updates and the grounding gate over HTTP.
type ItemHandler struct {
	items     db.ItemCollection
	status    *maintenance.StatusStore
	grounding *maintenance.Grounding
}

// NewItemHandler creates an item handler.
func NewItemHandler(items db.ItemCollection, status *maintenance.StatusStore, grounding *maintenance.Grounding) *ItemHandler {
	return &ItemHandler{items: items, status: status, grounding: grounding}
}

// itemForOrg fetches an item and hides it from other organizations.
func (h *ItemHandler) itemForOrg(r *http.Request, id string) (*models.MaintainableItem, *models.Claims, error) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return nil, nil, nil
	}
	item, err := h.items.FindItemByID(r.Context(), id)
	if err != nil {
		return nil, claims, err
	}
	if item.OrganizationID != claims.OrganizationID {
		return nil, claims, db.ErrNotFound
	}
	return item, claims, nil
}

// Create handles POST /api/items.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var item models.MaintainableItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if !models.IsValidItemType(item.ItemType) {
		http.Error(w, "item_type must be equipment or aircraft", http.StatusBadRequest)
		return
	}
	item.OrganizationID = claims.OrganizationID
	if item.Status == "" {
		item.Status = models.InServiceLifecycleStatus(item.ItemType)
	}

	id, err := h.items.InsertItem(r.Context(), item)
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := h.items.FindItemByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get handles GET /api/items/{id}.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, claims, err := h.itemForOrg(r, r.PathValue("id"))
	if claims == nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ApplySchedule handles POST /api/items/{id}/schedules/{scheduleId}.
func (h *ItemHandler) ApplySchedule(w http.ResponseWriter, r *http.Request) {
	item, claims, err := h.itemForOrg(r, r.PathValue("id"))
	if claims == nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.status.ApplyScheduleToItem(r.Context(), item.ID.Hex(), item.ItemType, r.PathValue("scheduleId")); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.items.FindItemByID(r.Context(), item.ID.Hex())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// RemoveSchedule handles DELETE /api/items/{id}/schedules/{scheduleId}.
func (h *ItemHandler) RemoveSchedule(w http.ResponseWriter, r *http.Request) {
	item, claims, err := h.itemForOrg(r, r.PathValue("id"))
	if claims == nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.status.RemoveScheduleFromItem(r.Context(), item.ID.Hex(), item.ItemType, r.PathValue("scheduleId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateMeters handles PUT /api/items/{id}/meters. The response is the
// per-schedule recompute report.
func (h *ItemHandler) UpdateMeters(w http.ResponseWriter, r *http.Request) {
	item, claims, err := h.itemForOrg(r, r.PathValue("id"))
	if claims == nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	var meters models.MeterReadings
	if err := json.NewDecoder(r.Body).Decode(&meters); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	report, err := h.status.UpdateItemMeters(r.Context(), item.ID.Hex(), item.ItemType, meters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Recalculate handles POST /api/items/{id}/recalculate.
func (h *ItemHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	item, claims, err := h.itemForOrg(r, r.PathValue("id"))
	if claims == nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.status.RecalculateMaintenanceStatus(r.Context(), item.ID.Hex(), item.ItemType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Ground handles POST /api/items/{id}/ground.
func (h *ItemHandler) Ground(w http.ResponseWriter, r *http.Request) {
	item, claims, err := h.itemForOrg(r, r.PathValue("id"))
	if claims == nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	grounded, err := h.grounding.Ground(r.Context(), item.ID.Hex(), item.ItemType, body.Reason, claims.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grounded)
}

// Unground handles POST /api/items/{id}/unground.
func (h *ItemHandler) Unground(w http.ResponseWriter, r *http.Request) {
	item, claims, err := h.itemForOrg(r, r.PathValue("id"))
	if claims == nil {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	cleared, err := h.grounding.Unground(r.Context(), item.ID.Hex(), item.ItemType, claims.Username, body.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cleared)
}
