package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rentme/internal/app/access"
	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	"rentme/internal/app/handlers/support"
	"rentme/internal/app/outbox"
	"rentme/internal/app/policies"
	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
)

const (
	syncCalendarFeedKey = "availability.feed.sync"
	feedCreatedBy       = "calendar-feed"
)

var ErrNoCalendarFeed = errors.New("availability: property has no calendar feed")

type SyncCalendarFeedCommand struct {
	PropertyID string `validate:"required"`
}

func (c SyncCalendarFeedCommand) Key() string { return syncCalendarFeedKey }

func (c SyncCalendarFeedCommand) PropertyScope() string { return c.PropertyID }

func (c SyncCalendarFeedCommand) Serializable() bool { return true }

func (c SyncCalendarFeedCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleHost}
}

// SyncCalendarFeedHandler mirrors an external iCal feed into EXTERNAL_SYNC
// blocks. Feed events that collide with a booking or a host/admin block are
// skipped rather than allowed to double book the calendar.
type SyncCalendarFeedHandler struct {
	Feed    policies.CalendarFeedPort
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *SyncCalendarFeedHandler) Handle(ctx context.Context, cmd SyncCalendarFeedCommand) (dto.FeedSyncResult, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.FeedSyncResult{}, err
	}
	p, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		return dto.FeedSyncResult{}, err
	}
	if _, err := support.RequireHostOf(ctx, p); err != nil {
		return dto.FeedSyncResult{}, err
	}
	if p.CalendarFeedURL == "" || h.Feed == nil {
		return dto.FeedSyncResult{}, ErrNoCalendarFeed
	}
	feed, err := h.Feed.Fetch(ctx, p.CalendarFeedURL)
	if err != nil {
		return dto.FeedSyncResult{}, err
	}

	if err := unit.TouchCalendar(ctx, p.ID); err != nil {
		return dto.FeedSyncResult{}, err
	}
	_, blocks, err := support.CalendarEntries(ctx, unit, p.ID)
	if err != nil {
		return dto.FeedSyncResult{}, err
	}
	idx, err := support.LoadIndex(ctx, unit, p.ID, func(e domainavailability.Entry) bool {
		return e.Kind != domainavailability.KindExternalSync
	})
	if err != nil {
		return dto.FeedSyncResult{}, err
	}

	now := h.Clock.Now()
	today := daterange.Day(now)
	existing := make(map[string]*domainavailability.Block)
	for _, b := range blocks {
		if b.Kind == domainavailability.KindExternalSync {
			existing[feedKey(b.Reference, b.Range)] = b
		}
	}

	result := dto.FeedSyncResult{PropertyID: string(p.ID)}
	seen := make(map[string]struct{}, len(feed))
	var touched []*domainavailability.Block
	for _, ev := range feed {
		r, ok := feedRange(ev, today)
		if !ok {
			result.Skipped++
			continue
		}
		key := feedKey(ev.UID, r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := existing[key]; ok {
			continue
		}
		if conflict, clash := idx.Conflict(r); clash {
			result.Skipped++
			if h.Logger != nil {
				h.Logger.Warn("calendar feed event overlaps local occupancy", "property_id", p.ID, "uid", ev.UID, "range", r.String(), "conflict", conflict.String())
			}
			continue
		}
		block, err := domainavailability.NewBlock(domainavailability.NewBlockParams{
			ID:         domainavailability.BlockID(uuid.NewString()),
			PropertyID: p.ID,
			Range:      r,
			Kind:       domainavailability.KindExternalSync,
			Reason:     ev.Summary,
			Reference:  ev.UID,
			CreatedBy:  feedCreatedBy,
			Now:        now,
		})
		if err != nil {
			return dto.FeedSyncResult{}, err
		}
		if err := unit.Blocks().Save(ctx, block); err != nil {
			return dto.FeedSyncResult{}, err
		}
		touched = append(touched, block)
		result.Imported++
	}
	for key, b := range existing {
		if _, ok := seen[key]; ok {
			continue
		}
		if err := unit.Blocks().Delete(ctx, b.ID); err != nil {
			return dto.FeedSyncResult{}, err
		}
		b.Release(now)
		touched = append(touched, b)
		result.Removed++
	}

	for _, b := range touched {
		if err := outbox.Drain(ctx, h.Outbox, h.Encoder, b); err != nil {
			return dto.FeedSyncResult{}, err
		}
	}
	if h.Logger != nil {
		h.Logger.Info("calendar feed synced", "property_id", p.ID, "imported", result.Imported, "removed", result.Removed, "skipped", result.Skipped)
	}
	return result, nil
}

// feedRange converts a feed event into whole nights from today on. Partial end
// days count as occupied.
func feedRange(ev policies.FeedEvent, today time.Time) (daterange.DateRange, bool) {
	start := daterange.Day(ev.Start)
	end := daterange.Day(ev.End)
	if !end.Equal(ev.End.UTC()) {
		end = end.AddDate(0, 0, 1)
	}
	if start.Before(today) {
		start = today
	}
	r, err := daterange.New(start, end)
	if err != nil {
		return daterange.DateRange{}, false
	}
	return r, true
}

func feedKey(uid string, r daterange.DateRange) string {
	return uid + "|" + r.String()
}

var _ commands.Handler[SyncCalendarFeedCommand, dto.FeedSyncResult] = (*SyncCalendarFeedHandler)(nil)
