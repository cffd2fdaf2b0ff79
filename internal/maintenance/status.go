package maintenance

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aerofleet/fleet-maintenance/internal/db"
	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// ServiceData carries the details of a completed service event. Nil meter
// fields fall back to the item's current readings.
type ServiceData struct {
	ServiceDate *time.Time
	Hours       *float64
	Cycles      *float64
}

// StatusStore manages the association between items and schedules and the
// per-(item, schedule) status record. All item mutations go through the
// atomic single-document operations of db.ItemCollection, keeping the key set
// of the embedded status map in lockstep with the applied schedule ids.
type StatusStore struct {
	items     db.ItemCollection
	schedules db.ScheduleCollection
	logger    *log.Logger
	now       func() time.Time
}

// NewStatusStore creates an item maintenance state store.
func NewStatusStore(items db.ItemCollection, schedules db.ScheduleCollection, logger *log.Logger) *StatusStore {
	return &StatusStore{items: items, schedules: schedules, logger: logger, now: time.Now}
}

// findItem fetches an item and checks it against the caller-declared type.
func (s *StatusStore) findItem(ctx context.Context, itemID string, itemType models.ItemType) (*models.MaintainableItem, error) {
	item, err := s.items.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if itemType != "" && item.ItemType != itemType {
		return nil, fmt.Errorf("item %s is not %s: %w", itemID, itemType, db.ErrNotFound)
	}
	return item, nil
}

// ApplyScheduleToItem associates a schedule with an item. Idempotent: a
// schedule already present leaves the item untouched. Otherwise the id and a
// default status entry (ok, no due point) are added in one atomic update.
func (s *StatusStore) ApplyScheduleToItem(ctx context.Context, itemID string, itemType models.ItemType, scheduleID string) error {
	if _, err := s.schedules.FindScheduleByID(ctx, scheduleID); err != nil {
		return err
	}
	if _, err := s.findItem(ctx, itemID, itemType); err != nil {
		return err
	}
	applied, err := s.items.ApplySchedule(ctx, itemID, scheduleID, models.DefaultScheduleStatus())
	if err != nil {
		return err
	}
	if applied {
		s.logger.WithFields(log.Fields{"item_id": itemID, "schedule_id": scheduleID}).Info("schedule applied to item")
	}
	return nil
}

// RemoveScheduleFromItem dissociates a schedule from an item, deleting its
// status entry in the same atomic update. No-op if not present.
func (s *StatusStore) RemoveScheduleFromItem(ctx context.Context, itemID string, itemType models.ItemType, scheduleID string) error {
	if _, err := s.findItem(ctx, itemID, itemType); err != nil {
		return err
	}
	removed, err := s.items.RemoveSchedule(ctx, itemID, scheduleID)
	if err != nil {
		return err
	}
	if removed {
		s.logger.WithFields(log.Fields{"item_id": itemID, "schedule_id": scheduleID}).Info("schedule removed from item")
	}
	return nil
}

// UpdateItemMaintenanceStatus records a completed service for one applied
// schedule: the next due point is computed from the schedule's interval and
// a fresh status entry (ok, remaining unset) is written atomically.
func (s *StatusStore) UpdateItemMaintenanceStatus(ctx context.Context, itemID string, itemType models.ItemType, scheduleID string, svc ServiceData) error {
	item, err := s.findItem(ctx, itemID, itemType)
	if err != nil {
		return err
	}
	if !item.HasSchedule(scheduleID) {
		return &ValidationError{Field: "schedule_id", Reason: fmt.Sprintf("%s is not applied to item %s", scheduleID, itemID)}
	}
	schedule, err := s.schedules.FindScheduleByID(ctx, scheduleID)
	if err != nil {
		return err
	}

	serviceDate := s.now()
	if svc.ServiceDate != nil {
		serviceDate = *svc.ServiceDate
	}
	meters := models.MeterReadings{Hours: svc.Hours, Cycles: svc.Cycles}
	due, err := ComputeNextDue(schedule.IntervalType, schedule.IntervalValue, serviceDate, meters, item)
	if err != nil {
		return err
	}

	hoursAt := item.CurrentHours
	if svc.Hours != nil {
		hoursAt = *svc.Hours
	}
	cyclesAt := item.CurrentCycles
	if svc.Cycles != nil {
		cyclesAt = *svc.Cycles
	}

	entry := models.ScheduleStatus{
		LastServiceDate:   &serviceDate,
		LastServiceHours:  &hoursAt,
		LastServiceCycles: &cyclesAt,
		NextDueDate:       due.NextDueDate,
		NextDueHours:      due.NextDueHours,
		NextDueCycles:     due.NextDueCycles,
		Status:            models.TierOK,
	}
	if err := s.items.SetScheduleStatus(ctx, itemID, scheduleID, entry); err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{
		"item_id":     itemID,
		"schedule_id": scheduleID,
		"service_at":  serviceDate,
	}).Info("maintenance status updated")
	return nil
}

// UpdateItemMeters raises the item's cumulative meter readings and triggers a
// full status recompute.
func (s *StatusStore) UpdateItemMeters(ctx context.Context, itemID string, itemType models.ItemType, meters models.MeterReadings) (*RecomputeReport, error) {
	if _, err := s.findItem(ctx, itemID, itemType); err != nil {
		return nil, err
	}
	if err := s.items.UpdateMeters(ctx, itemID, meters); err != nil {
		return nil, err
	}
	return s.RecalculateMaintenanceStatus(ctx, itemID, itemType)
}

// RecalculateMaintenanceStatus reclassifies every schedule applied to the
// item against its current meters and clock. A failure on one schedule is
// recorded in the report and does not abort the others; the successful
// entries are written back in a single atomic update.
func (s *StatusStore) RecalculateMaintenanceStatus(ctx context.Context, itemID string, itemType models.ItemType) (*RecomputeReport, error) {
	item, err := s.findItem(ctx, itemID, itemType)
	if err != nil {
		return nil, err
	}

	report := &RecomputeReport{ItemID: itemID}
	updated := make(map[string]models.ScheduleStatus)
	now := s.now()

	for _, scheduleID := range item.MaintenanceScheduleIDs {
		schedule, err := s.schedules.FindScheduleByID(ctx, scheduleID)
		if err != nil {
			s.logger.WithFields(log.Fields{"item_id": itemID, "schedule_id": scheduleID}).WithError(err).Warn("recompute: schedule fetch failed")
			report.Results = append(report.Results, ScheduleResult{ScheduleID: scheduleID, Err: err.Error()})
			continue
		}
		entry := item.MaintenanceStatus[scheduleID]
		classified, err := Classify(schedule, entry, item, now)
		if err != nil {
			s.logger.WithFields(log.Fields{"item_id": itemID, "schedule_id": scheduleID}).WithError(err).Warn("recompute: classification failed")
			report.Results = append(report.Results, ScheduleResult{ScheduleID: scheduleID, Err: err.Error()})
			continue
		}
		updated[scheduleID] = classified
		report.Results = append(report.Results, ScheduleResult{
			ScheduleID: scheduleID,
			Status:     classified.Status,
			Remaining:  classified.Remaining,
		})
	}

	if err := s.items.SetScheduleStatuses(ctx, itemID, updated); err != nil {
		return nil, err
	}
	return report, nil
}
