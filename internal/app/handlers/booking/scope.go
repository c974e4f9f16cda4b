package booking

import (
	"context"
	"errors"

	"rentme/internal/app/commands"
	"rentme/internal/app/handlers/support"
	"rentme/internal/app/middleware"
	"rentme/internal/app/uow"
	domainbooking "rentme/internal/domain/booking"
)

// BookingScoped is implemented by commands that change one existing booking.
type BookingScoped interface {
	BookingScope() string
}

// PropertyOfBooking resolves the calendar lock of booking scoped commands to the
// property the booking belongs to. Unknown bookings stay unscoped so the
// handler reports them.
func PropertyOfBooking(factory uow.UoWFactory) middleware.ScopeResolver {
	return func(ctx context.Context, cmd commands.Command) (string, error) {
		scoped, ok := cmd.(BookingScoped)
		if !ok || scoped.BookingScope() == "" {
			return "", nil
		}
		unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, factory)
		if err != nil {
			return "", err
		}
		if cleanup != nil {
			defer cleanup()
		}
		b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(scoped.BookingScope()))
		if errors.Is(err, domainbooking.ErrBookingNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return string(b.PropertyID), nil
	}
}
