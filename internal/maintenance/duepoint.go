package maintenance

import (
	"fmt"
	"time"

	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// DuePoint is the absolute value at which a schedule next becomes due. Only
// the field matching the schedule's interval type is set.
type DuePoint struct {
	NextDueDate   *time.Time
	NextDueHours  *float64
	NextDueCycles *float64
}

// truncateToDay normalizes a timestamp to UTC midnight. Day arithmetic is
// calendar-based: two timestamps on the same UTC date are zero days apart.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ComputeNextDue computes the next due point for one interval type given a
// service event. Meter-based intervals count from the meter reading at
// service, falling back to the item's current reading when the service data
// carries none. The "flights" interval type is declared in the model but has
// no formula; it returns ErrUnsupportedInterval.
func ComputeNextDue(intervalType models.IntervalType, intervalValue float64, serviceDate time.Time, meters models.MeterReadings, item *models.MaintainableItem) (DuePoint, error) {
	if intervalValue <= 0 {
		return DuePoint{}, &ValidationError{Field: "interval_value", Reason: "must be positive"}
	}

	switch intervalType {
	case models.IntervalDays:
		due := truncateToDay(serviceDate).AddDate(0, 0, int(intervalValue))
		return DuePoint{NextDueDate: &due}, nil

	case models.IntervalHours:
		base := item.CurrentHours
		if meters.Hours != nil {
			base = *meters.Hours
		}
		due := base + intervalValue
		return DuePoint{NextDueHours: &due}, nil

	case models.IntervalCycles:
		base := item.CurrentCycles
		if meters.Cycles != nil {
			base = *meters.Cycles
		}
		due := base + intervalValue
		return DuePoint{NextDueCycles: &due}, nil

	case models.IntervalFlights:
		return DuePoint{}, fmt.Errorf("%w: %s", ErrUnsupportedInterval, intervalType)

	default:
		return DuePoint{}, &ValidationError{Field: "interval_type", Reason: fmt.Sprintf("unknown value %q", intervalType)}
	}
}
