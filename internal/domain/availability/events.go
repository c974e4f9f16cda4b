package availability

import (
	"time"

	"rentme/internal/domain/shared/daterange"
)

type CalendarBlocked struct {
	PropertyID string
	BlockID    string
	Range      daterange.DateRange
	Kind       EntryKind
	At         time.Time
}

func (e CalendarBlocked) EventName() string     { return "calendar.blocked" }
func (e CalendarBlocked) AggregateID() string   { return e.PropertyID }
func (e CalendarBlocked) OccurredAt() time.Time { return e.At }

type CalendarReleased struct {
	PropertyID string
	BlockID    string
	Range      daterange.DateRange
	Kind       EntryKind
	At         time.Time
}

func (e CalendarReleased) EventName() string     { return "calendar.released" }
func (e CalendarReleased) AggregateID() string   { return e.PropertyID }
func (e CalendarReleased) OccurredAt() time.Time { return e.At }

type CalendarOverbookingPrevented struct {
	PropertyID string
	Requested  daterange.DateRange
	Conflict   daterange.DateRange
	At         time.Time
}

func (e CalendarOverbookingPrevented) EventName() string     { return "calendar.overbooking_prevented" }
func (e CalendarOverbookingPrevented) AggregateID() string   { return e.PropertyID }
func (e CalendarOverbookingPrevented) OccurredAt() time.Time { return e.At }
