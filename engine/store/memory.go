// Package store provides the in-memory Store implementation used by
// tests and development.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/booking-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	salesmen    map[engine.SalesmanID]engine.Salesman
	clients     map[engine.ClientID]engine.Client
	blocks      map[engine.BlockID]engine.UnavailabilityBlock
	holidays    map[string]engine.Holiday
	bookings    map[engine.BookingID]engine.Booking
	entries     map[engine.EntryID]engine.CommissionEntry
	byBooking   map[engine.BookingID]engine.EntryID
	periods     map[time.Time]engine.PayPeriod
	adjustments []engine.Adjustment
	rates       []engine.RateRecord
}

var _ engine.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		salesmen:  make(map[engine.SalesmanID]engine.Salesman),
		clients:   make(map[engine.ClientID]engine.Client),
		blocks:    make(map[engine.BlockID]engine.UnavailabilityBlock),
		holidays:  make(map[string]engine.Holiday),
		bookings:  make(map[engine.BookingID]engine.Booking),
		entries:   make(map[engine.EntryID]engine.CommissionEntry),
		byBooking: make(map[engine.BookingID]engine.EntryID),
		periods:   make(map[time.Time]engine.PayPeriod),
	}
}

// =============================================================================
// SALESMEN
// =============================================================================

func (m *Memory) CreateSalesman(_ context.Context, s *engine.Salesman) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.salesmen[s.ID] = *s
	return nil
}

func (m *Memory) GetSalesman(_ context.Context, id engine.SalesmanID) (*engine.Salesman, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.salesmen[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) ListSalesmen(_ context.Context, activeOnly bool) ([]engine.Salesman, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Salesman
	for _, s := range m.salesmen {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) UpdateSalesman(_ context.Context, s *engine.Salesman) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.salesmen[s.ID] = *s
	return nil
}

// =============================================================================
// CLIENTS
// =============================================================================

func (m *Memory) CreateClient(_ context.Context, c *engine.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = *c
	return nil
}

func (m *Memory) GetClient(_ context.Context, id engine.ClientID) (*engine.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) FindClientByContact(_ context.Context, email, phone string) (*engine.Client, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if email != "" && strings.EqualFold(c.Email, email) {
			match := c
			return &match, "email", nil
		}
	}
	if phone != "" {
		for _, c := range m.clients {
			if c.Phone == phone {
				match := c
				return &match, "phone", nil
			}
		}
	}
	return nil, "", nil
}

// =============================================================================
// CALENDAR
// =============================================================================

func (m *Memory) AddBlock(_ context.Context, b *engine.UnavailabilityBlock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[b.ID] = *b
	return nil
}

func (m *Memory) GetBlock(_ context.Context, id engine.BlockID) (*engine.UnavailabilityBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocks[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) DeleteBlock(_ context.Context, id engine.BlockID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, id)
	return nil
}

func (m *Memory) ListBlocks(_ context.Context, salesmanID engine.SalesmanID, from, to time.Time) ([]engine.UnavailabilityBlock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.UnavailabilityBlock
	for _, b := range m.blocks {
		if b.SalesmanID != salesmanID {
			continue
		}
		if b.Start.Before(to) && from.Before(b.End) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) AddHoliday(_ context.Context, h *engine.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = *h
	return nil
}

func (m *Memory) ListHolidays(_ context.Context) ([]engine.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Holiday
	for _, h := range m.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holidays, id)
	return nil
}

// =============================================================================
// BOOKINGS
// =============================================================================

func (m *Memory) CreateBooking(_ context.Context, b *engine.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = *b
	return nil
}

func (m *Memory) GetBooking(_ context.Context, id engine.BookingID) (*engine.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) UpdateBooking(_ context.Context, b *engine.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = *b
	return nil
}

func (m *Memory) ListBookings(_ context.Context, f engine.BookingFilter) ([]engine.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Booking
	for _, b := range m.bookings {
		if f.SalesmanID != nil && b.SalesmanID != *f.SalesmanID {
			continue
		}
		if f.From != nil && !b.End.After(*f.From) {
			continue
		}
		if f.To != nil && !b.Start.Before(*f.To) {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, b.Status) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func hasStatus(ss []engine.BookingStatus, s engine.BookingStatus) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// COMMISSION LEDGER
// =============================================================================

func (m *Memory) CreateEntry(_ context.Context, e *engine.CommissionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byBooking[e.BookingID]; exists {
		return engine.ErrDuplicateEntry
	}
	m.entries[e.ID] = *e
	m.byBooking[e.BookingID] = e.ID
	return nil
}

func (m *Memory) GetEntryByBooking(_ context.Context, bookingID engine.BookingID) (*engine.CommissionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byBooking[bookingID]
	if !ok {
		return nil, nil
	}
	e := m.entries[id]
	return &e, nil
}

func (m *Memory) UpdateEntry(_ context.Context, e *engine.CommissionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = *e
	return nil
}

func (m *Memory) ListEntries(_ context.Context, from, to time.Time) ([]engine.CommissionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.CommissionEntry
	for _, e := range m.entries {
		if e.ConfirmedAt.Before(from) || e.ConfirmedAt.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConfirmedAt.Before(out[j].ConfirmedAt) })
	return out, nil
}

// =============================================================================
// PAYROLL
// =============================================================================

func (m *Memory) GetPeriod(_ context.Context, start time.Time) (*engine.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[start.UTC()]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) SavePeriod(_ context.Context, p *engine.PayPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods[p.Start.UTC()] = *p
	return nil
}

func (m *Memory) ListPeriods(_ context.Context) ([]engine.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.PayPeriod
	for _, p := range m.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out, nil
}

func (m *Memory) CreateAdjustment(_ context.Context, a *engine.Adjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments = append(m.adjustments, *a)
	return nil
}

func (m *Memory) ListAdjustments(_ context.Context, periodStart time.Time) ([]engine.Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.Adjustment
	for _, a := range m.adjustments {
		if a.PeriodStart.Equal(periodStart) {
			out = append(out, a)
		}
	}
	return out, nil
}

// =============================================================================
// RATES
// =============================================================================

func (m *Memory) AppendRate(_ context.Context, r engine.RateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = append(m.rates, r)
	return nil
}

func (m *Memory) ListRates(_ context.Context) ([]engine.RateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]engine.RateRecord(nil), m.rates...)
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom.Before(out[j].EffectiveFrom) })
	return out, nil
}
