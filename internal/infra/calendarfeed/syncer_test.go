package calendarfeed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentme/internal/app/access"
	"rentme/internal/app/bootstrap"
	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	availabilityapp "rentme/internal/app/handlers/availability"
	bookingapp "rentme/internal/app/handlers/booking"
	propertyapp "rentme/internal/app/handlers/properties"
	"rentme/internal/app/policies"
	"rentme/internal/app/queries"
	"rentme/internal/infra/storage/memory"
)

type stubFeed struct {
	events map[string][]policies.FeedEvent
	err    error
}

func (s stubFeed) Fetch(ctx context.Context, url string) ([]policies.FeedEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.events[url], nil
}

type fixture struct {
	buses bootstrap.Buses
	store *memory.Store
}

func newFixture(t *testing.T, feed policies.CalendarFeedPort) fixture {
	t.Helper()
	store := memory.NewStore()
	buses := bootstrap.NewBuses(bootstrap.Dependencies{
		UoW:         memory.Factory{Store: store},
		Outbox:      memory.NewOutbox(store),
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Locker:      memory.NewLocker(),
		Feed:        feed,
		Clock:       func() time.Time { return date(6, 1) },
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return fixture{buses: buses, store: store}
}

func (f fixture) property(t *testing.T, feedURL string) string {
	t.Helper()
	ctx := access.WithPrincipal(context.Background(), access.Principal{ID: "host-1", Roles: []access.Role{access.RoleHost}})
	p, err := commands.Dispatch[propertyapp.CreatePropertyCommand, dto.Property](ctx, f.buses.Commands, propertyapp.CreatePropertyCommand{
		HostID: "host-1",
		Title:  "Chalet",
		Pricing: propertyapp.PricingInput{
			Currency: "EUR", BaseRate: "80", GuestCapacity: 6,
		},
		CalendarFeedURL: feedURL,
	})
	require.NoError(t, err)
	return p.ID
}

func (f fixture) syncer() *Syncer {
	return &Syncer{UoW: memory.Factory{Store: f.store}, Commands: f.buses.Commands, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (f fixture) calendar(t *testing.T, id string) dto.Calendar {
	t.Helper()
	cal, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](context.Background(), f.buses.Queries, availabilityapp.GetCalendarQuery{PropertyID: id})
	require.NoError(t, err)
	return cal
}

func TestSyncAllImportsFeedEvents(t *testing.T) {
	const url = "https://channel.example.com/chalet.ics"
	feed := stubFeed{events: map[string][]policies.FeedEvent{
		url: {
			{UID: "a", Summary: "Reserved", Start: date(7, 10), End: date(7, 13)},
			{UID: "b", Start: date(7, 20), End: date(7, 22)},
		},
	}}
	f := newFixture(t, feed)
	id := f.property(t, url)
	f.property(t, "")

	n, err := f.syncer().SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cal := f.calendar(t, id)
	assert.Equal(t, []dto.CalendarRange{
		{From: "2025-07-10", To: "2025-07-13"},
		{From: "2025-07-20", To: "2025-07-22"},
	}, cal.Unavailable)

	// a second run is a no-op
	_, err = f.syncer().SyncAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.calendar(t, id).Entries, 2)
}

func TestSyncSkipsEventsOverlappingBookings(t *testing.T) {
	const url = "https://channel.example.com/chalet.ics"
	feed := stubFeed{events: map[string][]policies.FeedEvent{
		url: {{UID: "a", Start: date(7, 2), End: date(7, 5)}},
	}}
	f := newFixture(t, feed)
	id := f.property(t, url)

	guest := access.WithPrincipal(context.Background(), access.Principal{ID: "guest-1", Roles: []access.Role{access.RoleGuest}})
	_, err := commands.Dispatch[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](guest, f.buses.Commands, bookingapp.RequestBookingCommand{
		PropertyID: id, GuestID: "guest-1", CheckIn: date(7, 1), CheckOut: date(7, 3), Guests: 2,
	})
	require.NoError(t, err)

	res, err := commands.Dispatch[availabilityapp.SyncCalendarFeedCommand, dto.FeedSyncResult](
		access.WithPrincipal(context.Background(), access.System), f.buses.Commands, availabilityapp.SyncCalendarFeedCommand{PropertyID: id})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []dto.CalendarRange{{From: "2025-07-01", To: "2025-07-03"}}, f.calendar(t, id).Unavailable)
}

func TestSyncAllReportsWhenEveryFeedFails(t *testing.T) {
	f := newFixture(t, stubFeed{err: errors.New("upstream down")})
	f.property(t, "https://channel.example.com/a.ics")

	n, err := f.syncer().SyncAll(context.Background())
	assert.Zero(t, n)
	assert.ErrorContains(t, err, "upstream down")
}

func TestRunWithoutIntervalReturns(t *testing.T) {
	assert.NoError(t, (&Syncer{}).Run(context.Background()))
}
