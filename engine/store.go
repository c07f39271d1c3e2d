/*
store.go - Persistence interfaces for the engine

PURPOSE:

	Defines the boundary between domain logic and the database. Components
	depend on the narrow slice they need; the combined Store is what
	implementations provide.

CONVENTIONS:
  - Get* returns (nil, nil) when the record does not exist; components
    translate that into ErrNotFound with context
  - Reads never return business errors, only infrastructure failures,
    which propagate unchanged
  - Bookings are never deleted: status transitions are the only mutation
    path, and their timestamps are retained permanently so payroll is
    always recomputable from history
  - Commission entries are voided, never deleted; the rate snapshot is
    immutable

IMPLEMENTATIONS:
  - engine/store: in-memory, for tests and development
  - store/sqlite: production SQLite
*/
package engine

import (
	"context"
	"time"
)

// Store is the full persistence surface.
type Store interface {
	SalesmanStore
	ClientStore
	CalendarStore
	BookingStore
	LedgerStore
	PayrollStore
	RateStore
}

// =============================================================================
// SALESMEN
// =============================================================================

type SalesmanStore interface {
	CreateSalesman(ctx context.Context, s *Salesman) error
	GetSalesman(ctx context.Context, id SalesmanID) (*Salesman, error)
	ListSalesmen(ctx context.Context, activeOnly bool) ([]Salesman, error)

	// UpdateSalesman persists template, overrides, buffer, and the
	// active flag. Salesmen with bookings are deactivated, not deleted.
	UpdateSalesman(ctx context.Context, s *Salesman) error
}

// =============================================================================
// CLIENTS
// =============================================================================

type ClientStore interface {
	CreateClient(ctx context.Context, c *Client) error
	GetClient(ctx context.Context, id ClientID) (*Client, error)

	// FindClientByContact matches on normalized email or phone and
	// reports which field matched ("email" or "phone").
	FindClientByContact(ctx context.Context, email, phone string) (*Client, string, error)
}

// =============================================================================
// CALENDAR - Unavailability blocks and holidays
// =============================================================================

type CalendarStore interface {
	AddBlock(ctx context.Context, b *UnavailabilityBlock) error
	GetBlock(ctx context.Context, id BlockID) (*UnavailabilityBlock, error)
	DeleteBlock(ctx context.Context, id BlockID) error

	// ListBlocks returns blocks overlapping [from, to), ordered by start.
	ListBlocks(ctx context.Context, salesmanID SalesmanID, from, to time.Time) ([]UnavailabilityBlock, error)

	AddHoliday(ctx context.Context, h *Holiday) error
	ListHolidays(ctx context.Context) ([]Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
}

// =============================================================================
// BOOKINGS
// =============================================================================

// BookingFilter narrows booking queries. Nil fields are not applied.
// From/To select bookings whose interval overlaps [From, To).
type BookingFilter struct {
	SalesmanID *SalesmanID
	From       *time.Time
	To         *time.Time
	Statuses   []BookingStatus
}

type BookingStore interface {
	CreateBooking(ctx context.Context, b *Booking) error
	GetBooking(ctx context.Context, id BookingID) (*Booking, error)
	UpdateBooking(ctx context.Context, b *Booking) error
	ListBookings(ctx context.Context, f BookingFilter) ([]Booking, error)
}

// =============================================================================
// COMMISSION LEDGER
// =============================================================================

type LedgerStore interface {
	CreateEntry(ctx context.Context, e *CommissionEntry) error
	GetEntryByBooking(ctx context.Context, bookingID BookingID) (*CommissionEntry, error)

	// UpdateEntry persists void state only; the rate snapshot and amount
	// are immutable after creation.
	UpdateEntry(ctx context.Context, e *CommissionEntry) error

	// ListEntries returns entries with ConfirmedAt in [from, to],
	// including voided ones; callers filter.
	ListEntries(ctx context.Context, from, to time.Time) ([]CommissionEntry, error)
}

// =============================================================================
// PAYROLL
// =============================================================================

type PayrollStore interface {
	// GetPeriod looks a period up by its start instant.
	GetPeriod(ctx context.Context, start time.Time) (*PayPeriod, error)

	// SavePeriod upserts the period row keyed on Start.
	SavePeriod(ctx context.Context, p *PayPeriod) error

	ListPeriods(ctx context.Context) ([]PayPeriod, error)

	CreateAdjustment(ctx context.Context, a *Adjustment) error
	ListAdjustments(ctx context.Context, periodStart time.Time) ([]Adjustment, error)
}

// =============================================================================
// RATES
// =============================================================================

type RateStore interface {
	// AppendRate adds a record to the history. Append-only.
	AppendRate(ctx context.Context, r RateRecord) error
	ListRates(ctx context.Context) ([]RateRecord, error)
}
