package availability

import (
	"errors"
	"fmt"
	"time"

	"rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
)

var (
	ErrDateConflict  = errors.New("availability: requested dates are unavailable")
	ErrCheckInInPast = fmt.Errorf("%w: check-in date is in the past", daterange.ErrInvalidRange)
)

// DateConflictError carries the occupied range that blocked a request.
type DateConflictError struct {
	PropertyID property.PropertyID
	Requested  daterange.DateRange
	Conflict   daterange.DateRange
}

func (e *DateConflictError) Error() string {
	return fmt.Sprintf("availability: %s overlaps unavailable dates %s", e.Requested, e.Conflict)
}

func (e *DateConflictError) Is(target error) bool {
	return target == ErrDateConflict
}

type Decision string

const (
	DecisionAccepted Decision = "ACCEPTED"
	DecisionRejected Decision = "REJECTED"
)

// Check moves a request from Requested to Accepted or Rejected. It has no side
// effects; callers persist the booking within the same unit of work that built idx.
func Check(idx Index, r daterange.DateRange, now time.Time) (Decision, error) {
	if err := r.Validate(); err != nil {
		return DecisionRejected, err
	}
	if daterange.Day(r.CheckIn).Before(daterange.Day(now)) {
		return DecisionRejected, ErrCheckInInPast
	}
	if conflict, ok := idx.Conflict(r); ok {
		return DecisionRejected, &DateConflictError{PropertyID: idx.PropertyID, Requested: r, Conflict: conflict}
	}
	return DecisionAccepted, nil
}
