// Package bootstrap registers every command and query handler and wraps the
// buses in the middleware pipeline.
package bootstrap

import (
	"log/slog"

	"rentme/internal/app/access"
	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	availabilityapp "rentme/internal/app/handlers/availability"
	bookingapp "rentme/internal/app/handlers/booking"
	pricingapp "rentme/internal/app/handlers/pricing"
	propertyapp "rentme/internal/app/handlers/properties"
	"rentme/internal/app/handlers/support"
	"rentme/internal/app/middleware"
	"rentme/internal/app/outbox"
	"rentme/internal/app/policies"
	"rentme/internal/app/queries"
	"rentme/internal/app/uow"
)

type Dependencies struct {
	UoW         uow.UoWFactory
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Idempotency middleware.IdempotencyStore
	Locker      policies.PropertyLocker
	Payments    policies.PaymentsPort
	Feed        policies.CalendarFeedPort
	Clock       support.Clock
	Logger      *slog.Logger
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// NewBuses builds the command pipeline
// Logging, Validation, Authorization, Idempotency, PropertyLock, Transaction, OutboxFlush
// and the query pipeline Logging, Validation, Authorization.
func NewBuses(d Dependencies) Buses {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	encoder := d.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}

	commandBus := commands.NewInMemoryBus()
	registerCommands(commandBus, d, encoder, logger)
	queryBus := queries.NewInMemoryBus()
	registerQueries(queryBus, d, logger)

	validator := middleware.NewStructValidator()
	authorizer := access.Authorizer{}
	return Buses{
		Commands: middleware.ChainCommands(
			commandBus,
			middleware.Logging(logger),
			middleware.Validation(validator),
			middleware.Authorization(authorizer),
			middleware.Idempotency(d.Idempotency, nil),
			middleware.PropertyLock(d.Locker, logger, bookingapp.PropertyOfBooking(d.UoW)),
			middleware.Transaction(d.UoW, nil),
			middleware.OutboxFlush(d.Outbox),
		),
		Queries: middleware.ChainQueries(
			queryBus,
			middleware.QueryLogging(logger),
			middleware.QueryValidation(validator),
			middleware.QueryAuthorization(authorizer),
		),
	}
}

func registerCommands(bus *commands.InMemoryBus, d Dependencies, encoder outbox.EventEncoder, logger *slog.Logger) {
	commands.RegisterHandler[propertyapp.CreatePropertyCommand, dto.Property](bus, &propertyapp.CreatePropertyHandler{
		Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[propertyapp.UpdatePropertyPricingCommand, dto.Property](bus, &propertyapp.UpdatePropertyPricingHandler{
		Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger,
	})

	commands.RegisterHandler[pricingapp.AddSeasonalRuleCommand, dto.SeasonalRule](bus, &pricingapp.AddSeasonalRuleHandler{
		Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[pricingapp.RemoveSeasonalRuleCommand, struct{}](bus, &pricingapp.RemoveSeasonalRuleHandler{
		Logger: logger,
	})

	commands.RegisterHandler[availabilityapp.BlockDatesCommand, dto.BlockResult](bus, &availabilityapp.BlockDatesHandler{
		Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[availabilityapp.UnblockDatesCommand, struct{}](bus, &availabilityapp.UnblockDatesHandler{
		Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[availabilityapp.SyncCalendarFeedCommand, dto.FeedSyncResult](bus, &availabilityapp.SyncCalendarFeedHandler{
		Feed: d.Feed, Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger,
	})

	commands.RegisterHandler[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](bus, &bookingapp.RequestBookingHandler{
		Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.ConfirmBookingPaymentCommand, dto.BookingStatusResult](bus, &bookingapp.ConfirmBookingPaymentHandler{
		Payments: d.Payments, Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.FailBookingPaymentCommand, dto.BookingStatusResult](bus, &bookingapp.FailBookingPaymentHandler{
		Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.CancelBookingCommand, dto.BookingStatusResult](bus, &bookingapp.CancelBookingHandler{
		Payments: d.Payments, Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler[bookingapp.CompleteBookingCommand, dto.BookingStatusResult](bus, &bookingapp.CompleteBookingHandler{
		Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
}

func registerQueries(bus *queries.InMemoryBus, d Dependencies, logger *slog.Logger) {
	queries.RegisterHandler[propertyapp.GetPropertyQuery, dto.Property](bus, &propertyapp.GetPropertyHandler{UoWFactory: d.UoW})
	queries.RegisterHandler[pricingapp.GetQuoteQuery, dto.Quote](bus, &pricingapp.GetQuoteHandler{UoWFactory: d.UoW, Clock: d.Clock, Logger: logger})
	queries.RegisterHandler[pricingapp.ListSeasonalRulesQuery, dto.SeasonalRuleCollection](bus, &pricingapp.ListSeasonalRulesHandler{UoWFactory: d.UoW})
	queries.RegisterHandler[availabilityapp.GetCalendarQuery, dto.Calendar](bus, &availabilityapp.GetCalendarHandler{UoWFactory: d.UoW})
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.Booking](bus, &bookingapp.GetBookingHandler{UoWFactory: d.UoW})
	queries.RegisterHandler[bookingapp.ListGuestBookingsQuery, dto.BookingCollection](bus, &bookingapp.ListGuestBookingsHandler{UoWFactory: d.UoW, Logger: logger})
	queries.RegisterHandler[bookingapp.ListHostBookingsQuery, dto.BookingCollection](bus, &bookingapp.ListHostBookingsHandler{UoWFactory: d.UoW, Logger: logger})
	queries.RegisterHandler[bookingapp.HostEarningsQuery, dto.HostEarnings](bus, &bookingapp.HostEarningsHandler{UoWFactory: d.UoW, Logger: logger})
	logger.Debug("query handlers registered", "keys", bus.Registered())
}
