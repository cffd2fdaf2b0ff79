package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aerofleet/fleet-maintenance/internal/maintenance"
	"github.com/aerofleet/fleet-maintenance/internal/middleware"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// RecordHandler exposes the maintenance record ledger over HTTP.
type RecordHandler struct {
	ledger *maintenance.Ledger
}

// NewRecordHandler creates a record handler.
func NewRecordHandler(ledger *maintenance.Ledger) *RecordHandler {
	return &RecordHandler{ledger: ledger}
}

// Create handles POST /api/records. Accepts both the canonical shape and the
// legacy equipment shorthand.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var in models.RecordInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	in.OrganizationID = claims.OrganizationID

	record, err := h.ledger.CreateRecord(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Get handles GET /api/records/{id}.
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	record, err := h.ledger.GetRecord(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if record.OrganizationID != claims.OrganizationID {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Update handles PUT /api/records/{id}.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	existing, err := h.ledger.GetRecord(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.OrganizationID != claims.OrganizationID {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}

	var record models.MaintenanceRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.ledger.UpdateRecord(r.Context(), id, record); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.ledger.GetRecord(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/records/{id}.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	existing, err := h.ledger.GetRecord(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing.OrganizationID != claims.OrganizationID {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}

	if err := h.ledger.DeleteRecord(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Complete handles POST /api/records/{id}/complete.
func (h *RecordHandler) Complete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var c models.CompletionData
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if c.CompletedBy == "" {
		c.CompletedBy = claims.Username
	}

	record, err := h.ledger.CompleteRecord(r.Context(), r.PathValue("id"), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// History handles GET /api/items/{id}/history, newest service first.
func (h *RecordHandler) History(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserFromContext(r.Context()); !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	itemType := models.ItemType(r.URL.Query().Get("item_type"))
	records, err := h.ledger.History(r.Context(), r.PathValue("id"), itemType)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []models.MaintenanceRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// RecordMaintenance handles POST /api/items/{id}/maintenance: the compound
// create-record-then-update-status operation.
func (h *RecordHandler) RecordMaintenance(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var in models.RecordInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	in.OrganizationID = claims.OrganizationID
	if in.CompletedBy == "" {
		in.CompletedBy = claims.Username
	}
	itemType := models.ItemType(r.URL.Query().Get("item_type"))
	if in.ItemType != "" {
		itemType = in.ItemType
	}

	record, err := h.ledger.RecordMaintenance(r.Context(), r.PathValue("id"), itemType, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// FromForm handles POST /api/records/form: ingestion from the external
// form-submission collaborator.
func (h *RecordHandler) FromForm(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var f models.FormSubmission
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	f.OrganizationID = claims.OrganizationID

	record, err := h.ledger.RecordFromForm(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}
