package maintenance

import (
	"errors"
	"fmt"

	"github.com/aerofleet/fleet-maintenance/internal/models"
)

// ErrUnsupportedInterval is returned for interval types that are declared in
// the schedule model but have no due-point formula ("flights").
var ErrUnsupportedInterval = errors.New("no due-point formula for interval type")

// ValidationError reports a rejected write or an unscoped read.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ScheduleResult is the outcome of reclassifying one applied schedule.
type ScheduleResult struct {
	ScheduleID string            `json:"schedule_id"`
	Status     models.StatusTier `json:"status,omitempty"`
	Remaining  *float64          `json:"remaining,omitempty"`
	Err        string            `json:"error,omitempty"`
}

// RecomputeReport is the per-schedule batch result of a status recompute. A
// failure on one schedule never aborts the others; it shows up here instead
// of in a swallowed log line.
type RecomputeReport struct {
	ItemID  string           `json:"item_id"`
	Results []ScheduleResult `json:"results"`
}

// Failed returns the results that carry an error.
func (r *RecomputeReport) Failed() []ScheduleResult {
	var failed []ScheduleResult
	for _, res := range r.Results {
		if res.Err != "" {
			failed = append(failed, res)
		}
	}
	return failed
}
