package properties

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"rentme/internal/app/access"
	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	"rentme/internal/app/handlers/support"
	"rentme/internal/app/outbox"
	"rentme/internal/app/uow"
	domainproperty "rentme/internal/domain/property"
)

const (
	createPropertyKey        = "property.create"
	updatePropertyPricingKey = "property.pricing.update"
)

type CreatePropertyCommand struct {
	HostID             string       `json:"-" validate:"required"`
	Title              string       `json:"title" validate:"required"`
	Pricing            PricingInput `json:"pricing"`
	CancellationPolicy string       `json:"cancellation_policy"`
	CalendarFeedURL    string       `json:"calendar_feed_url" validate:"omitempty,url"`
}

func (c CreatePropertyCommand) Key() string { return createPropertyKey }

func (c CreatePropertyCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleHost}
}

type CreatePropertyHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *CreatePropertyHandler) Handle(ctx context.Context, cmd CreatePropertyCommand) (dto.Property, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.Property{}, err
	}
	principal, err := access.Require(ctx)
	if err != nil {
		return dto.Property{}, err
	}
	hostID := strings.TrimSpace(cmd.HostID)
	if !principal.Privileged() && principal.ID != hostID {
		return dto.Property{}, access.ErrForbidden
	}
	pricing, err := cmd.Pricing.toDomain()
	if err != nil {
		return dto.Property{}, err
	}
	p, err := domainproperty.New(domainproperty.CreateParams{
		ID:                   domainproperty.PropertyID(uuid.NewString()),
		Host:                 domainproperty.HostID(hostID),
		Title:                cmd.Title,
		Pricing:              pricing,
		CancellationPolicyID: cmd.CancellationPolicy,
		CalendarFeedURL:      cmd.CalendarFeedURL,
		Now:                  h.Clock.Now(),
	})
	if err != nil {
		return dto.Property{}, err
	}
	if err := unit.Properties().Save(ctx, p); err != nil {
		return dto.Property{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, p); err != nil {
		return dto.Property{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("property created", "property_id", p.ID, "host_id", p.Host)
	}
	return dto.MapProperty(p), nil
}

type UpdatePropertyPricingCommand struct {
	PropertyID         string       `json:"-" validate:"required"`
	Pricing            PricingInput `json:"pricing"`
	CancellationPolicy *string      `json:"cancellation_policy,omitempty"`
	CalendarFeedURL    *string      `json:"calendar_feed_url,omitempty" validate:"omitempty,url"`
}

func (c UpdatePropertyPricingCommand) Key() string { return updatePropertyPricingKey }

func (c UpdatePropertyPricingCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleHost}
}

type UpdatePropertyPricingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *UpdatePropertyPricingHandler) Handle(ctx context.Context, cmd UpdatePropertyPricingCommand) (dto.Property, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.Property{}, err
	}
	p, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		return dto.Property{}, err
	}
	if _, err := support.RequireHostOf(ctx, p); err != nil {
		return dto.Property{}, err
	}
	pricing, err := cmd.Pricing.toDomain()
	if err != nil {
		return dto.Property{}, err
	}
	now := h.Clock.Now()
	if err := p.UpdatePricing(pricing, now); err != nil {
		return dto.Property{}, err
	}
	if cmd.CancellationPolicy != nil {
		p.CancellationPolicyID = strings.TrimSpace(*cmd.CancellationPolicy)
	}
	if cmd.CalendarFeedURL != nil {
		p.SetCalendarFeed(*cmd.CalendarFeedURL, now)
	}
	if err := unit.Properties().Save(ctx, p); err != nil {
		return dto.Property{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, p); err != nil {
		return dto.Property{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("property pricing updated", "property_id", p.ID, "base_rate", p.Pricing.BaseRate.String())
	}
	return dto.MapProperty(p), nil
}

var _ commands.Handler[CreatePropertyCommand, dto.Property] = (*CreatePropertyHandler)(nil)
var _ commands.Handler[UpdatePropertyPricingCommand, dto.Property] = (*UpdatePropertyPricingHandler)(nil)
