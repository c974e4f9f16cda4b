package memory

import (
	"sync"

	domainavailability "rentme/internal/domain/availability"
	domainbooking "rentme/internal/domain/booking"
	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/events"
	infraoutbox "rentme/internal/infra/outbox"
)

// Store holds committed state. Units read through it and publish their
// buffered writes on Commit, so a rolled back unit leaves no trace.
type Store struct {
	mu         sync.RWMutex
	properties map[domainproperty.PropertyID]*domainproperty.Property
	rules      map[domainpricing.RuleID]domainpricing.SeasonalRule
	blocks     map[domainavailability.BlockID]*domainavailability.Block
	bookings   map[domainbooking.BookingID]*domainbooking.Booking
	calendars  map[domainproperty.PropertyID]int64
	outbox     []*infraoutbox.EventDocument
}

func NewStore() *Store {
	return &Store{
		properties: make(map[domainproperty.PropertyID]*domainproperty.Property),
		rules:      make(map[domainpricing.RuleID]domainpricing.SeasonalRule),
		blocks:     make(map[domainavailability.BlockID]*domainavailability.Block),
		bookings:   make(map[domainbooking.BookingID]*domainbooking.Booking),
		calendars:  make(map[domainproperty.PropertyID]int64),
	}
}

// CalendarVersion reports how many committed units have written a property calendar.
func (s *Store) CalendarVersion(id domainproperty.PropertyID) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calendars[id]
}

func cloneProperty(p *domainproperty.Property) *domainproperty.Property {
	cp := *p
	cp.EventRecorder = events.EventRecorder{}
	return &cp
}

func cloneBlock(b *domainavailability.Block) *domainavailability.Block {
	cp := *b
	cp.EventRecorder = events.EventRecorder{}
	return &cp
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	cp := *b
	cp.Quote = b.Quote.Copy()
	cp.EventRecorder = events.EventRecorder{}
	return &cp
}
