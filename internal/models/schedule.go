package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemType identifies the kind of maintainable asset a schedule applies to.
type ItemType string

const (
	ItemTypeEquipment ItemType = "equipment"
	ItemTypeAircraft  ItemType = "aircraft"
)

// IsValidItemType checks if an item type is valid.
func IsValidItemType(t ItemType) bool {
	switch t {
	case ItemTypeEquipment, ItemTypeAircraft:
		return true
	default:
		return false
	}
}

// IntervalType is the unit a schedule's recurrence is measured in.
type IntervalType string

const (
	IntervalDays    IntervalType = "days"
	IntervalHours   IntervalType = "hours"
	IntervalCycles  IntervalType = "cycles"
	IntervalFlights IntervalType = "flights"
)

// IsValidIntervalType checks if an interval type is valid.
func IsValidIntervalType(t IntervalType) bool {
	switch t {
	case IntervalDays, IntervalHours, IntervalCycles, IntervalFlights:
		return true
	default:
		return false
	}
}

// MaintenanceSchedule is a reusable maintenance-interval template, e.g. a
// "100-hour inspection". Identity is immutable once created; configuration
// (intervals, thresholds) may change.
type MaintenanceSchedule struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrganizationID    string             `json:"organization_id" bson:"organization_id"`
	Name              string             `json:"name" bson:"name"`
	Description       string             `json:"description" bson:"description"`
	ItemType          ItemType           `json:"item_type" bson:"item_type"` // "equipment" or "aircraft"
	Category          string             `json:"category,omitempty" bson:"category,omitempty"`
	IntervalType      IntervalType       `json:"interval_type" bson:"interval_type"` // "days", "hours", "cycles", "flights"
	IntervalValue     float64            `json:"interval_value" bson:"interval_value"`
	WarningThreshold  float64            `json:"warning_threshold" bson:"warning_threshold"`
	CriticalThreshold float64            `json:"critical_threshold" bson:"critical_threshold"` // advisory only
	FormTemplateID    string             `json:"form_template_id,omitempty" bson:"form_template_id,omitempty"`
	Tasks             []string           `json:"tasks,omitempty" bson:"tasks,omitempty"` // legacy checklist
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}

// ScheduleFilter narrows a schedule listing. OrganizationID is mandatory.
type ScheduleFilter struct {
	OrganizationID string
	ItemType       ItemType
	Category       string
}
