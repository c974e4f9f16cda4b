package calendarfeed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rentme/internal/app/access"
	"rentme/internal/app/commands"
	availabilityapp "rentme/internal/app/handlers/availability"
	"rentme/internal/app/uow"
)

// Syncer periodically refreshes every property that mirrors an external
// calendar by dispatching SyncCalendarFeedCommand as the system principal.
type Syncer struct {
	UoW      uow.UoWFactory
	Commands commands.Bus
	Interval time.Duration
	Logger   *slog.Logger
}

func (s *Syncer) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SyncAll(ctx); err != nil && ctx.Err() == nil {
				s.logger().Error("calendar feed sync failed", "error", err)
			}
		}
	}
}

// SyncAll syncs each feed once and returns how many succeeded. One failing
// feed does not stop the others.
func (s *Syncer) SyncAll(ctx context.Context) (int, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return 0, err
	}
	props, err := unit.Properties().ListWithCalendarFeed(uow.Bind(ctx, unit))
	_ = unit.Rollback(ctx)
	if err != nil {
		return 0, err
	}

	ctx = access.WithPrincipal(ctx, access.System)
	synced := 0
	var errs []error
	for _, p := range props {
		_, err := s.Commands.Dispatch(ctx, availabilityapp.SyncCalendarFeedCommand{PropertyID: string(p.ID)})
		if err != nil {
			s.logger().Warn("calendar feed sync skipped", "property_id", p.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		synced++
	}
	if synced == 0 && len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return synced, nil
}

func (s *Syncer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
