package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatusTier is the urgency classification of one applied schedule.
type StatusTier string

const (
	TierOK      StatusTier = "ok"
	TierDueSoon StatusTier = "due_soon"
	TierOverdue StatusTier = "overdue"
)

// Lifecycle statuses are item-type specific: aircraft are airworthy or
// grounded, ground equipment is available or in maintenance. Retired and sold
// items are excluded from dashboard scans.
const (
	AircraftStatusAirworthy    = "airworthy"
	AircraftStatusGrounded     = "grounded"
	EquipmentStatusAvailable   = "available"
	EquipmentStatusMaintenance = "maintenance"
	StatusRetired              = "retired"
	StatusSold                 = "sold"
)

// GroundedLifecycleStatus returns the lifecycle status a grounded item of the
// given type carries.
func GroundedLifecycleStatus(t ItemType) string {
	if t == ItemTypeAircraft {
		return AircraftStatusGrounded
	}
	return EquipmentStatusMaintenance
}

// InServiceLifecycleStatus returns the "returned to service" lifecycle status
// for the given item type.
func InServiceLifecycleStatus(t ItemType) string {
	if t == ItemTypeAircraft {
		return AircraftStatusAirworthy
	}
	return EquipmentStatusAvailable
}

// ScheduleStatus is the per-(item, schedule) due-point record embedded in the
// item document. Only the nextDue* field matching the schedule's interval
// type is authoritative; the others stay nil. Before the first recorded
// service every nextDue* field is nil and Status is "ok".
type ScheduleStatus struct {
	LastServiceDate   *time.Time `json:"last_service_date,omitempty" bson:"last_service_date,omitempty"`
	LastServiceHours  *float64   `json:"last_service_hours,omitempty" bson:"last_service_hours,omitempty"`
	LastServiceCycles *float64   `json:"last_service_cycles,omitempty" bson:"last_service_cycles,omitempty"`
	NextDueDate       *time.Time `json:"next_due_date,omitempty" bson:"next_due_date,omitempty"`
	NextDueHours      *float64   `json:"next_due_hours,omitempty" bson:"next_due_hours,omitempty"`
	NextDueCycles     *float64   `json:"next_due_cycles,omitempty" bson:"next_due_cycles,omitempty"`
	Status            StatusTier `json:"status" bson:"status"`                           // "ok", "due_soon", "overdue"
	Remaining         *float64   `json:"remaining,omitempty" bson:"remaining,omitempty"` // negative means overdue
}

// DefaultScheduleStatus is the entry written when a schedule is first applied
// to an item.
func DefaultScheduleStatus() ScheduleStatus {
	return ScheduleStatus{Status: TierOK}
}

// MeterReadings carries cumulative meter values for an item. Nil fields are
// "not reported" and leave the stored value untouched.
type MeterReadings struct {
	Hours   *float64 `json:"hours,omitempty" bson:"hours,omitempty"`
	Cycles  *float64 `json:"cycles,omitempty" bson:"cycles,omitempty"`
	Flights *float64 `json:"flights,omitempty" bson:"flights,omitempty"`
}

// MaintainableItem is an equipment or aircraft record extended with
// maintenance-tracking state. The key set of MaintenanceStatus must always
// equal MaintenanceScheduleIDs; apply/remove keep both in lockstep inside a
// single atomic update.
type MaintainableItem struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrganizationID string             `json:"organization_id" bson:"organization_id"`
	Name           string             `json:"name" bson:"name"`
	ItemType       ItemType           `json:"item_type" bson:"item_type"`                           // "equipment" or "aircraft"
	Registration   string             `json:"registration,omitempty" bson:"registration,omitempty"` // tail number or asset tag
	Status         string             `json:"status" bson:"status"`

	CurrentHours   float64 `json:"current_hours" bson:"current_hours"`
	CurrentCycles  float64 `json:"current_cycles" bson:"current_cycles"`
	CurrentFlights float64 `json:"current_flights" bson:"current_flights"`

	MaintenanceScheduleIDs []string                  `json:"maintenance_schedule_ids" bson:"maintenance_schedule_ids"`
	MaintenanceStatus      map[string]ScheduleStatus `json:"maintenance_status" bson:"maintenance_status"`

	IsGrounded      bool       `json:"is_grounded" bson:"is_grounded"`
	GroundedReason  string     `json:"grounded_reason,omitempty" bson:"grounded_reason,omitempty"`
	GroundedDate    *time.Time `json:"grounded_date,omitempty" bson:"grounded_date,omitempty"`
	GroundedBy      string     `json:"grounded_by,omitempty" bson:"grounded_by,omitempty"`
	UngroundedBy    string     `json:"ungrounded_by,omitempty" bson:"ungrounded_by,omitempty"`
	UngroundedDate  *time.Time `json:"ungrounded_date,omitempty" bson:"ungrounded_date,omitempty"`
	UngroundedNotes string     `json:"ungrounded_notes,omitempty" bson:"ungrounded_notes,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// HasSchedule reports whether the schedule id is already applied to the item.
func (i *MaintainableItem) HasSchedule(scheduleID string) bool {
	for _, id := range i.MaintenanceScheduleIDs {
		if id == scheduleID {
			return true
		}
	}
	return false
}
