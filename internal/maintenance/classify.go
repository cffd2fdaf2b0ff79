package maintenance

import (
	"fmt"

	"time"

	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// Classify turns the stored due point of one applied schedule into a status
// tier and a signed remaining distance (negative means overdue). Only the
// nextDue* field matching the schedule's interval type is consulted. An entry
// whose authoritative due point is still nil (never serviced) is returned
// unchanged: without a first service there is nothing to measure against.
func Classify(schedule *models.MaintenanceSchedule, entry models.ScheduleStatus, item *models.MaintainableItem, now time.Time) (models.ScheduleStatus, error) {
	switch schedule.IntervalType {
	case models.IntervalDays:
		if entry.NextDueDate == nil {
			return entry, nil
		}
		daysUntil := float64(truncateToDay(*entry.NextDueDate).Sub(truncateToDay(now)) / (24 * time.Hour))
		entry.Status = tierFor(daysUntil, schedule.WarningThreshold)
		entry.Remaining = &daysUntil
		return entry, nil

	case models.IntervalHours:
		if entry.NextDueHours == nil {
			return entry, nil
		}
		hoursUntil := *entry.NextDueHours - item.CurrentHours
		entry.Status = tierFor(hoursUntil, schedule.WarningThreshold)
		entry.Remaining = &hoursUntil
		return entry, nil

	case models.IntervalCycles:
		if entry.NextDueCycles == nil {
			return entry, nil
		}
		cyclesUntil := *entry.NextDueCycles - item.CurrentCycles
		entry.Status = tierFor(cyclesUntil, schedule.WarningThreshold)
		entry.Remaining = &cyclesUntil
		return entry, nil

	case models.IntervalFlights:
		return entry, fmt.Errorf("%w: %s", ErrUnsupportedInterval, schedule.IntervalType)

	default:
		return entry, &ValidationError{Field: "interval_type", Reason: fmt.Sprintf("unknown value %q", schedule.IntervalType)}
	}
}

// tierFor maps a remaining distance to a status tier. Due exactly now counts
// as overdue; within the warning threshold counts as due soon.
func tierFor(remaining, warningThreshold float64) models.StatusTier {
	switch {
	case remaining <= 0:
		return models.TierOverdue
	case remaining <= warningThreshold:
		return models.TierDueSoon
	default:
		return models.TierOK
	}
}
