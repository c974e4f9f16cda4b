package booking

import (
	"context"
	"errors"

	"rentme/internal/app/access"
	"rentme/internal/app/uow"
	domainbooking "rentme/internal/domain/booking"
	domainproperty "rentme/internal/domain/property"
)

var ErrBookingNotOwned = errors.New("booking: not owned by caller")

// actorFor resolves how the caller relates to a booking: its guest, the host of
// the property, or an admin/system principal.
func actorFor(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) (domainbooking.Actor, *domainproperty.Property, error) {
	principal, err := access.Require(ctx)
	if err != nil {
		return "", nil, err
	}
	p, err := unit.Properties().ByID(ctx, b.PropertyID)
	if err != nil && !errors.Is(err, domainproperty.ErrPropertyNotFound) {
		return "", nil, err
	}
	switch {
	case principal.Has(access.RoleSystem):
		return domainbooking.ActorSystem, p, nil
	case principal.Has(access.RoleAdmin):
		return domainbooking.ActorAdmin, p, nil
	case principal.ID == b.GuestID:
		return domainbooking.ActorGuest, p, nil
	case p != nil && p.OwnedBy(principal.ID):
		return domainbooking.ActorHost, p, nil
	}
	return "", nil, ErrBookingNotOwned
}
