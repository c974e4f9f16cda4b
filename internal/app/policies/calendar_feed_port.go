package policies

import (
	"context"
	"time"
)

// FeedEvent is one busy period read from an external calendar.
type FeedEvent struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
}

type CalendarFeedPort interface {
	Fetch(ctx context.Context, url string) ([]FeedEvent, error)
}
