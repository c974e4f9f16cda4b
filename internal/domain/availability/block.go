package availability

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
	"rentme/internal/domain/shared/events"
)

var (
	ErrBlockNotFound = errors.New("availability: block not found")
	ErrBlockKind     = errors.New("availability: bookings cannot be stored as blocks")
)

type BlockID string

// Block is a host, admin or feed imposed unavailable range.
type Block struct {
	ID         BlockID
	PropertyID property.PropertyID
	Range      daterange.DateRange
	Kind       EntryKind
	Reason     string
	Reference  string
	CreatedBy  string
	CreatedAt  time.Time
	events.EventRecorder
}

type BlockRepository interface {
	ListByProperty(ctx context.Context, id property.PropertyID) ([]*Block, error)
	ByID(ctx context.Context, id BlockID) (*Block, error)
	Save(ctx context.Context, block *Block) error
	Delete(ctx context.Context, id BlockID) error
}

type NewBlockParams struct {
	ID         BlockID
	PropertyID property.PropertyID
	Range      daterange.DateRange
	Kind       EntryKind
	Reason     string
	Reference  string
	CreatedBy  string
	Now        time.Time
}

func NewBlock(params NewBlockParams) (*Block, error) {
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	kind := params.Kind
	if kind == "" {
		kind = KindHostBlock
	}
	if !kind.Valid() || kind == KindBooking {
		return nil, ErrBlockKind
	}
	now := params.Now.UTC()
	b := &Block{
		ID:         params.ID,
		PropertyID: params.PropertyID,
		Range:      params.Range,
		Kind:       kind,
		Reason:     strings.TrimSpace(params.Reason),
		Reference:  params.Reference,
		CreatedBy:  params.CreatedBy,
		CreatedAt:  now,
	}
	b.Record(CalendarBlocked{PropertyID: string(b.PropertyID), BlockID: string(b.ID), Range: b.Range, Kind: kind, At: now})
	return b, nil
}

func (b *Block) Entry() Entry {
	return Entry{Range: b.Range, Kind: b.Kind, Reference: string(b.ID)}
}

func (b *Block) Release(now time.Time) {
	b.Record(CalendarReleased{PropertyID: string(b.PropertyID), BlockID: string(b.ID), Range: b.Range, Kind: b.Kind, At: now.UTC()})
}
