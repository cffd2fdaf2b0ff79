package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecordStatus is the lifecycle state of a ledger record.
type RecordStatus string

const (
	RecordScheduled  RecordStatus = "scheduled"
	RecordInProgress RecordStatus = "in_progress"
	RecordCompleted  RecordStatus = "completed"
	RecordCancelled  RecordStatus = "cancelled"
)

// IsValidRecordStatus checks if a record status is valid.
func IsValidRecordStatus(s RecordStatus) bool {
	switch s {
	case RecordScheduled, RecordInProgress, RecordCompleted, RecordCancelled:
		return true
	default:
		return false
	}
}

// MaintenanceRecord is a historical maintenance event in the ledger.
// EquipmentID and ScheduledDate are retained alongside the canonical fields
// for readers of the legacy shape; business logic only touches the canonical
// ones.
type MaintenanceRecord struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrganizationID string             `json:"organization_id" bson:"organization_id"`
	ItemID         string             `json:"item_id" bson:"item_id"`
	ItemType       ItemType           `json:"item_type" bson:"item_type"`
	EquipmentID    string             `json:"equipment_id,omitempty" bson:"equipment_id,omitempty"` // legacy alias of ItemID
	ScheduleID     string             `json:"schedule_id,omitempty" bson:"schedule_id,omitempty"`

	ServiceType   string     `json:"service_type" bson:"service_type"` // "inspection", "oil_change", "overhaul", ...
	Description   string     `json:"description,omitempty" bson:"description,omitempty"`
	ServiceDate   time.Time  `json:"service_date" bson:"service_date"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty" bson:"scheduled_date,omitempty"` // legacy alias of ServiceDate

	CompletedBy     string   `json:"completed_by,omitempty" bson:"completed_by,omitempty"`
	HoursAtService  *float64 `json:"hours_at_service,omitempty" bson:"hours_at_service,omitempty"`
	CyclesAtService *float64 `json:"cycles_at_service,omitempty" bson:"cycles_at_service,omitempty"`
	PartsUsed       []string `json:"parts_used,omitempty" bson:"parts_used,omitempty"`
	Cost            float64  `json:"cost" bson:"cost"`
	LaborCost       float64  `json:"labor_cost" bson:"labor_cost"`
	PartsCost       float64  `json:"parts_cost" bson:"parts_cost"`
	Notes           string   `json:"notes,omitempty" bson:"notes,omitempty"`

	Status         RecordStatus `json:"status" bson:"status"` // "scheduled", "in_progress", "completed", "cancelled"
	IdempotencyKey string       `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// RecordInput is the creation payload for a ledger record. It accepts both
// the canonical shape (ItemID/ItemType/ServiceDate) and the legacy equipment
// shorthand (EquipmentID/ScheduledDate); Normalize folds the latter into the
// former.
type RecordInput struct {
	OrganizationID  string       `json:"organization_id"`
	ItemID          string       `json:"item_id"`
	ItemType        ItemType     `json:"item_type"`
	EquipmentID     string       `json:"equipment_id"`
	ScheduleID      string       `json:"schedule_id"`
	ServiceType     string       `json:"service_type"`
	Description     string       `json:"description"`
	ServiceDate     *time.Time   `json:"service_date"`
	ScheduledDate   *time.Time   `json:"scheduled_date"`
	CompletedBy     string       `json:"completed_by"`
	HoursAtService  *float64     `json:"hours_at_service"`
	CyclesAtService *float64     `json:"cycles_at_service"`
	PartsUsed       []string     `json:"parts_used"`
	Cost            float64      `json:"cost"`
	LaborCost       float64      `json:"labor_cost"`
	PartsCost       float64      `json:"parts_cost"`
	Notes           string       `json:"notes"`
	Status          RecordStatus `json:"status"`
	IdempotencyKey  string       `json:"idempotency_key"`
}

// Normalize maps a RecordInput onto a canonical MaintenanceRecord. Legacy
// shorthand (EquipmentID without ItemID) implies an equipment item and a
// default status of "scheduled" (a planned event); canonical input defaults
// to "completed" (an already-performed service). Both field sets are kept on
// the stored record for backward compatibility.
func (in RecordInput) Normalize(now time.Time) MaintenanceRecord {
	legacy := in.ItemID == "" && in.EquipmentID != ""

	rec := MaintenanceRecord{
		OrganizationID:  in.OrganizationID,
		ItemID:          in.ItemID,
		ItemType:        in.ItemType,
		EquipmentID:     in.EquipmentID,
		ScheduleID:      in.ScheduleID,
		ServiceType:     in.ServiceType,
		Description:     in.Description,
		ScheduledDate:   in.ScheduledDate,
		CompletedBy:     in.CompletedBy,
		HoursAtService:  in.HoursAtService,
		CyclesAtService: in.CyclesAtService,
		PartsUsed:       in.PartsUsed,
		Cost:            in.Cost,
		LaborCost:       in.LaborCost,
		PartsCost:       in.PartsCost,
		Notes:           in.Notes,
		Status:          in.Status,
		IdempotencyKey:  in.IdempotencyKey,
	}

	if legacy {
		rec.ItemID = in.EquipmentID
		rec.ItemType = ItemTypeEquipment
	}

	switch {
	case in.ServiceDate != nil:
		rec.ServiceDate = *in.ServiceDate
	case in.ScheduledDate != nil:
		rec.ServiceDate = *in.ScheduledDate
	default:
		rec.ServiceDate = now
	}

	if rec.Status == "" {
		if legacy {
			rec.Status = RecordScheduled
		} else {
			rec.Status = RecordCompleted
		}
	}

	return rec
}

// CompletionData is the metadata attached when a record transitions to
// "completed".
type CompletionData struct {
	CompletedBy string   `json:"completed_by"`
	Cost        float64  `json:"cost"`
	LaborCost   float64  `json:"labor_cost"`
	PartsCost   float64  `json:"parts_cost"`
	PartsUsed   []string `json:"parts_used"`
	Notes       string   `json:"notes"`
}

// FormSubmission is the payload delivered by the external form-submission
// collaborator when a mechanic completes a maintenance form.
type FormSubmission struct {
	OrganizationID        string     `json:"organization_id"`
	LinkedItemID          string     `json:"linked_item_id"`
	LinkedItemType        ItemType   `json:"linked_item_type"`
	MaintenanceScheduleID string     `json:"maintenance_schedule_id,omitempty"`
	HoursAtSubmission     *float64   `json:"hours_at_submission,omitempty"`
	CyclesAtSubmission    *float64   `json:"cycles_at_submission,omitempty"`
	SubmittedBy           string     `json:"submitted_by"`
	SubmittedAt           *time.Time `json:"submitted_at,omitempty"`
}
