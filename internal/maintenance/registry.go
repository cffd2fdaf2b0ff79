package maintenance

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/aerofleet/fleet-maintenance/internal/db"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// Registry manages maintenance schedule templates. Deleting a template does
// not cascade into the items referencing it; RemoveScheduleFromItem is the
// explicit per-item cleanup.
type Registry struct {
	schedules db.ScheduleCollection
	logger    *log.Logger
}

// NewRegistry creates a schedule registry.
func NewRegistry(schedules db.ScheduleCollection, logger *log.Logger) *Registry {
	return &Registry{schedules: schedules, logger: logger}
}

func validateSchedule(s models.MaintenanceSchedule) error {
	if s.OrganizationID == "" {
		return &ValidationError{Field: "organization_id", Reason: "is required"}
	}
	if s.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if !models.IsValidItemType(s.ItemType) {
		return &ValidationError{Field: "item_type", Reason: fmt.Sprintf("unknown value %q", s.ItemType)}
	}
	if !models.IsValidIntervalType(s.IntervalType) {
		return &ValidationError{Field: "interval_type", Reason: fmt.Sprintf("unknown value %q", s.IntervalType)}
	}
	if s.IntervalValue <= 0 {
		return &ValidationError{Field: "interval_value", Reason: "must be positive"}
	}
	if s.WarningThreshold < 0 {
		return &ValidationError{Field: "warning_threshold", Reason: "must not be negative"}
	}
	return nil
}

// Create validates and persists a new schedule template, returning it with
// its generated id.
func (r *Registry) Create(ctx context.Context, s models.MaintenanceSchedule) (*models.MaintenanceSchedule, error) {
	if err := validateSchedule(s); err != nil {
		return nil, err
	}
	id, err := r.schedules.InsertSchedule(ctx, s)
	if err != nil {
		return nil, err
	}
	created, err := r.schedules.FindScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.logger.WithFields(log.Fields{
		"schedule_id":   id,
		"organization":  s.OrganizationID,
		"interval_type": s.IntervalType,
	}).Info("schedule created")
	return created, nil
}

// Get returns a schedule template by id.
func (r *Registry) Get(ctx context.Context, id string) (*models.MaintenanceSchedule, error) {
	return r.schedules.FindScheduleByID(ctx, id)
}

// Update validates and replaces the configuration of an existing template.
// Identity (id, organization) is immutable.
func (r *Registry) Update(ctx context.Context, id string, s models.MaintenanceSchedule) (*models.MaintenanceSchedule, error) {
	existing, err := r.schedules.FindScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.OrganizationID = existing.OrganizationID
	s.CreatedAt = existing.CreatedAt
	if err := validateSchedule(s); err != nil {
		return nil, err
	}
	if err := r.schedules.UpdateSchedule(ctx, id, s); err != nil {
		return nil, err
	}
	return r.schedules.FindScheduleByID(ctx, id)
}

// Delete removes a schedule template. Items still referencing it keep their
// association until RemoveScheduleFromItem is called for each.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.schedules.DeleteSchedule(ctx, id); err != nil {
		return err
	}
	r.logger.WithField("schedule_id", id).Info("schedule deleted")
	return nil
}

// List returns the organization's schedule templates, optionally narrowed by
// item type and category. An empty organization id is rejected rather than
// silently returning an empty list.
func (r *Registry) List(ctx context.Context, f models.ScheduleFilter) ([]models.MaintenanceSchedule, error) {
	if f.OrganizationID == "" {
		return nil, &ValidationError{Field: "organization_id", Reason: "is required"}
	}
	filter := bson.M{"organization_id": f.OrganizationID}
	if f.ItemType != "" {
		filter["item_type"] = f.ItemType
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	return r.schedules.FindSchedules(ctx, filter)
}
