package memory

import (
	"context"
	"sort"

	domainavailability "rentme/internal/domain/availability"
	domainbooking "rentme/internal/domain/booking"
	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
)

// Repository views read the unit's buffer first and the committed store second.
// Every returned aggregate is a copy.

type propertyRepo struct{ u *Unit }

func (r propertyRepo) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	if p, ok := r.u.properties[id]; ok {
		return cloneProperty(p), nil
	}
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	p, ok := r.u.store.properties[id]
	if !ok {
		return nil, domainproperty.ErrPropertyNotFound
	}
	return cloneProperty(p), nil
}

func (r propertyRepo) Save(ctx context.Context, p *domainproperty.Property) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	stored := cloneProperty(p)
	stored.Version++
	p.Version = stored.Version
	r.u.properties[p.ID] = stored
	return nil
}

func (r propertyRepo) list(keep func(*domainproperty.Property) bool) []*domainproperty.Property {
	merged := make(map[domainproperty.PropertyID]*domainproperty.Property)
	r.u.store.mu.RLock()
	for id, p := range r.u.store.properties {
		merged[id] = p
	}
	r.u.store.mu.RUnlock()
	for id, p := range r.u.properties {
		merged[id] = p
	}
	out := make([]*domainproperty.Property, 0)
	for _, p := range merged {
		if keep(p) {
			out = append(out, cloneProperty(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r propertyRepo) ListByHost(ctx context.Context, host domainproperty.HostID) ([]*domainproperty.Property, error) {
	return r.list(func(p *domainproperty.Property) bool { return p.Host == host }), nil
}

func (r propertyRepo) ListWithCalendarFeed(ctx context.Context) ([]*domainproperty.Property, error) {
	return r.list(func(p *domainproperty.Property) bool { return p.CalendarFeedURL != "" }), nil
}

type ruleRepo struct{ u *Unit }

func (r ruleRepo) ListByProperty(ctx context.Context, id domainproperty.PropertyID) ([]domainpricing.SeasonalRule, error) {
	merged := make(map[domainpricing.RuleID]domainpricing.SeasonalRule)
	r.u.store.mu.RLock()
	for rid, rule := range r.u.store.rules {
		merged[rid] = rule
	}
	r.u.store.mu.RUnlock()
	for rid := range r.u.deletedRules {
		delete(merged, rid)
	}
	for rid, rule := range r.u.rules {
		merged[rid] = rule
	}
	out := make([]domainpricing.SeasonalRule, 0)
	for _, rule := range merged {
		if rule.PropertyID == id {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r ruleRepo) ByID(ctx context.Context, id domainpricing.RuleID) (domainpricing.SeasonalRule, error) {
	if _, gone := r.u.deletedRules[id]; gone {
		return domainpricing.SeasonalRule{}, domainpricing.ErrRuleNotFound
	}
	if rule, ok := r.u.rules[id]; ok {
		return rule, nil
	}
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	rule, ok := r.u.store.rules[id]
	if !ok {
		return domainpricing.SeasonalRule{}, domainpricing.ErrRuleNotFound
	}
	return rule, nil
}

func (r ruleRepo) Save(ctx context.Context, rule domainpricing.SeasonalRule) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	delete(r.u.deletedRules, rule.ID)
	r.u.rules[rule.ID] = rule
	return nil
}

func (r ruleRepo) Delete(ctx context.Context, id domainpricing.RuleID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, err := r.ByID(ctx, id); err != nil {
		return err
	}
	delete(r.u.rules, id)
	r.u.deletedRules[id] = struct{}{}
	return nil
}

type blockRepo struct{ u *Unit }

func (r blockRepo) ListByProperty(ctx context.Context, id domainproperty.PropertyID) ([]*domainavailability.Block, error) {
	merged := make(map[domainavailability.BlockID]*domainavailability.Block)
	r.u.store.mu.RLock()
	for bid, b := range r.u.store.blocks {
		merged[bid] = b
	}
	r.u.store.mu.RUnlock()
	for bid := range r.u.deletedBlocks {
		delete(merged, bid)
	}
	for bid, b := range r.u.blocks {
		merged[bid] = b
	}
	out := make([]*domainavailability.Block, 0)
	for _, b := range merged {
		if b.PropertyID == id {
			out = append(out, cloneBlock(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.CheckIn.Before(out[j].Range.CheckIn) })
	return out, nil
}

func (r blockRepo) ByID(ctx context.Context, id domainavailability.BlockID) (*domainavailability.Block, error) {
	if _, gone := r.u.deletedBlocks[id]; gone {
		return nil, domainavailability.ErrBlockNotFound
	}
	if b, ok := r.u.blocks[id]; ok {
		return cloneBlock(b), nil
	}
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	b, ok := r.u.store.blocks[id]
	if !ok {
		return nil, domainavailability.ErrBlockNotFound
	}
	return cloneBlock(b), nil
}

func (r blockRepo) Save(ctx context.Context, b *domainavailability.Block) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	delete(r.u.deletedBlocks, b.ID)
	r.u.blocks[b.ID] = cloneBlock(b)
	return nil
}

func (r blockRepo) Delete(ctx context.Context, id domainavailability.BlockID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, err := r.ByID(ctx, id); err != nil {
		return err
	}
	delete(r.u.blocks, id)
	r.u.deletedBlocks[id] = struct{}{}
	return nil
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	if b, ok := r.u.bookings[id]; ok {
		return cloneBooking(b), nil
	}
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	b, ok := r.u.store.bookings[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r bookingRepo) Save(ctx context.Context, b *domainbooking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, ok := r.u.bookingBase[b.ID]; !ok {
		r.u.bookingBase[b.ID] = b.Version
	}
	stored := cloneBooking(b)
	stored.Version++
	b.Version = stored.Version
	r.u.bookings[b.ID] = stored
	return nil
}

func (r bookingRepo) list(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	merged := make(map[domainbooking.BookingID]*domainbooking.Booking)
	r.u.store.mu.RLock()
	for id, b := range r.u.store.bookings {
		merged[id] = b
	}
	r.u.store.mu.RUnlock()
	for id, b := range r.u.bookings {
		merged[id] = b
	}
	out := make([]*domainbooking.Booking, 0)
	for _, b := range merged {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.CheckIn.Before(out[j].Range.CheckIn) })
	return out
}

func (r bookingRepo) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.GuestID == guestID }), nil
}

func (r bookingRepo) ListByProperty(ctx context.Context, id domainproperty.PropertyID) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.PropertyID == id }), nil
}

func (r bookingRepo) ListOccupying(ctx context.Context, id domainproperty.PropertyID) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.PropertyID == id && b.Occupies() }), nil
}

var (
	_ domainproperty.Repository          = propertyRepo{}
	_ domainpricing.RuleRepository       = ruleRepo{}
	_ domainavailability.BlockRepository = blockRepo{}
	_ domainbooking.Repository           = bookingRepo{}
)
