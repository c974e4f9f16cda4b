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
	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
)

const (
	blockDatesKey   = "availability.block"
	unblockDatesKey = "availability.unblock"
)

var ErrBlockNotOwned = errors.New("availability: block belongs to another property")

type BlockDatesCommand struct {
	PropertyID string    `json:"-" validate:"required"`
	CheckIn    time.Time `json:"check_in" validate:"required"`
	CheckOut   time.Time `json:"check_out" validate:"required"`
	Reason     string    `json:"reason"`
}

func (c BlockDatesCommand) Key() string { return blockDatesKey }

func (c BlockDatesCommand) PropertyScope() string { return c.PropertyID }

func (c BlockDatesCommand) Serializable() bool { return true }

func (c BlockDatesCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleHost}
}

// BlockDatesHandler adds a host or admin block through the availability guard.
// Admin blocks may overlap host and feed blocks but never a booking.
type BlockDatesHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *BlockDatesHandler) Handle(ctx context.Context, cmd BlockDatesCommand) (dto.BlockResult, error) {
	r, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return dto.BlockResult{}, err
	}
	unit, err := uow.Current(ctx)
	if err != nil {
		return dto.BlockResult{}, err
	}
	p, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		return dto.BlockResult{}, err
	}
	principal, err := support.RequireHostOf(ctx, p)
	if err != nil {
		return dto.BlockResult{}, err
	}
	kind := domainavailability.KindHostBlock
	var keep func(domainavailability.Entry) bool
	if principal.Privileged() {
		kind = domainavailability.KindAdminBlock
		keep = func(e domainavailability.Entry) bool { return e.Kind == domainavailability.KindBooking }
	}

	if err := unit.TouchCalendar(ctx, p.ID); err != nil {
		return dto.BlockResult{}, err
	}
	idx, err := support.LoadIndex(ctx, unit, p.ID, keep)
	if err != nil {
		return dto.BlockResult{}, err
	}
	now := h.Clock.Now()
	if _, err := domainavailability.Check(idx, r, now); err != nil {
		return dto.BlockResult{}, err
	}
	block, err := domainavailability.NewBlock(domainavailability.NewBlockParams{
		ID:         domainavailability.BlockID(uuid.NewString()),
		PropertyID: p.ID,
		Range:      r,
		Kind:       kind,
		Reason:     cmd.Reason,
		CreatedBy:  principal.ID,
		Now:        now,
	})
	if err != nil {
		return dto.BlockResult{}, err
	}
	if err := unit.Blocks().Save(ctx, block); err != nil {
		return dto.BlockResult{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, block); err != nil {
		return dto.BlockResult{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("calendar blocked", "property_id", p.ID, "block_id", block.ID, "range", r.String(), "kind", kind)
	}
	return dto.BlockResult{BlockID: string(block.ID)}, nil
}

type UnblockDatesCommand struct {
	PropertyID string `validate:"required"`
	BlockID    string `validate:"required"`
}

func (c UnblockDatesCommand) Key() string { return unblockDatesKey }

func (c UnblockDatesCommand) PropertyScope() string { return c.PropertyID }

func (c UnblockDatesCommand) RequiredRoles() []access.Role {
	return []access.Role{access.RoleHost}
}

// UnblockDatesHandler removes a block. Hosts may only remove their own host blocks.
type UnblockDatesHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	Logger  *slog.Logger
}

func (h *UnblockDatesHandler) Handle(ctx context.Context, cmd UnblockDatesCommand) (struct{}, error) {
	unit, err := uow.Current(ctx)
	if err != nil {
		return struct{}{}, err
	}
	p, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		return struct{}{}, err
	}
	principal, err := support.RequireHostOf(ctx, p)
	if err != nil {
		return struct{}{}, err
	}
	block, err := unit.Blocks().ByID(ctx, domainavailability.BlockID(cmd.BlockID))
	if err != nil {
		return struct{}{}, err
	}
	if block.PropertyID != p.ID {
		return struct{}{}, ErrBlockNotOwned
	}
	if !principal.Privileged() && block.Kind != domainavailability.KindHostBlock {
		return struct{}{}, access.ErrForbidden
	}
	if err := unit.TouchCalendar(ctx, p.ID); err != nil {
		return struct{}{}, err
	}
	if err := unit.Blocks().Delete(ctx, block.ID); err != nil {
		return struct{}{}, err
	}
	block.Release(h.Clock.Now())
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, block); err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("calendar released", "property_id", p.ID, "block_id", block.ID)
	}
	return struct{}{}, nil
}

var _ commands.Handler[BlockDatesCommand, dto.BlockResult] = (*BlockDatesHandler)(nil)
var _ commands.Handler[UnblockDatesCommand, struct{}] = (*UnblockDatesHandler)(nil)
