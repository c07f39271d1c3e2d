/*
Package engine provides the core booking and payroll domain model.

PURPOSE:

	This package contains the shared types and algorithms for the booking
	and payroll engine: salesmen and their calendars, bookings, commission
	entries, pay periods, and the interval arithmetic that slot generation
	is built on.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: a decimal monetary amount (never float64)
  - Salesman: identity + weekly working-hours template + buffer
  - Booking: a time-boxed appointment with a status lifecycle
  - CommissionEntry: the monetary record derived from one confirmed booking
  - Adjustment: a payroll-level bonus/penalty/correction
  - PayPeriod: the Friday-Thursday weekly aggregation window

DESIGN PRINCIPLES:
 1. Precision: decimal.Decimal for all money, no floating point
 2. Immutability: commission entries are voided, never edited;
    rate records are append-only
 3. Type safety: strong ID types prevent mixing salesman/client/booking IDs
 4. Derived state: slots are computed, never persisted

SEE ALSO:
  - interval.go: interval arithmetic used by slot generation
  - period.go: pay-period boundary math
  - rates.go: effective commission rate resolution
  - errors.go: typed errors shared by all components
*/
package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal monetary amount
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney()
	}
	return Money{Value: d}
}

func (m Money) Add(b Money) Money  { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money  { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Neg() Money         { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool       { return m.Value.IsZero() }
func (m Money) IsNegative() bool   { return m.Value.IsNegative() }
func (m Money) Equal(b Money) bool { return m.Value.Equal(b.Value) }
func (m Money) String() string     { return m.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SalesmanID string
type ClientID string
type BookingID string
type EntryID string
type AdjustmentID string
type BlockID string

// IDGenerator produces unique identifiers. Injectable so tests can use
// deterministic IDs.
type IDGenerator func() string

// NewID is the default generator.
func NewID() string { return uuid.NewString() }

// =============================================================================
// ACTOR - Caller identity supplied by the (external) auth layer
// =============================================================================

// Actor identifies who performed an operation. The engine trusts it;
// authentication happens upstream.
type Actor struct {
	ID   string
	Role string // "salesman", "admin", "sales_support", "system"
}

var SystemActor = Actor{ID: "system", Role: "system"}

// =============================================================================
// SALESMAN - Calendar owner and commission earner
// =============================================================================

// WorkingWindow is one open interval in a salesman's weekly template,
// expressed as minutes from midnight in the business timezone.
type WorkingWindow struct {
	Weekday  time.Weekday
	StartMin int
	EndMin   int
	Kind     BookingKind
}

// WorkingOverride replaces the weekly template for a single date.
// An override with no windows marks the whole date as closed.
type WorkingOverride struct {
	Date    time.Time // midnight, business timezone
	Windows []WorkingWindow
}

type Salesman struct {
	ID            SalesmanID
	Name          string
	Email         string
	Phone         string
	Template      []WorkingWindow
	Overrides     []WorkingOverride
	BufferMinutes int // 0 = use deployment default
	Active        bool
	HireDate      time.Time
	CreatedAt     time.Time
}

// Buffer returns the salesman's buffer, falling back to the deployment default.
func (s *Salesman) Buffer(cfg Config) time.Duration {
	if s.BufferMinutes > 0 {
		return time.Duration(s.BufferMinutes) * time.Minute
	}
	return time.Duration(cfg.DefaultBufferMinutes) * time.Minute
}

// =============================================================================
// UNAVAILABILITY BLOCK - One-off blocked time
// =============================================================================

type UnavailabilityBlock struct {
	ID         BlockID
	SalesmanID SalesmanID
	Start      time.Time
	End        time.Time
	Reason     string // e.g. "vacation", "training", "personal"
	CreatedBy  string
	CreatedAt  time.Time
}

func (b UnavailabilityBlock) Interval() Interval { return Interval{Start: b.Start, End: b.End} }

// =============================================================================
// SLOT - Derived bookable interval (never persisted)
// =============================================================================

type BookingKind string

const (
	KindZoom     BookingKind = "zoom"
	KindInPerson BookingKind = "in_person"
)

func (k BookingKind) Valid() bool { return k == KindZoom || k == KindInPerson }

type Slot struct {
	SalesmanID SalesmanID
	Start      time.Time
	End        time.Time
	Kind       BookingKind
}

// =============================================================================
// CLIENT - Booked party, deduplicated on contact fields
// =============================================================================

type Client struct {
	ID           ClientID
	FirstName    string
	LastName     string
	BusinessName string
	Email        string
	Phone        string
	Notes        string
	CreatedBy    string
	CreatedAt    time.Time
}

// =============================================================================
// BOOKING - The appointment with its status lifecycle
// =============================================================================

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// CancellationReason tags why a booking was cancelled.
type CancellationReason string

const (
	CancelClientRequest       CancellationReason = "client_request"
	CancelNoShow              CancellationReason = "no_show"
	CancelSalesmanUnavailable CancellationReason = "salesman_unavailable"
	CancelDuplicate           CancellationReason = "duplicate"
	CancelOther               CancellationReason = "other"
)

type Booking struct {
	ID         BookingID
	SalesmanID SalesmanID
	ClientID   ClientID
	Start      time.Time
	End        time.Time
	Kind       BookingKind
	Status     BookingStatus
	ZoomLink   string
	Notes      string

	CancellationReason CancellationReason
	CancellationNotes  string

	CreatedBy   string
	CreatedAt   time.Time
	ConfirmedBy string
	ConfirmedAt *time.Time
	CancelledBy string
	CancelledAt *time.Time
	CompletedAt *time.Time
}

// Occupies reports whether the booking holds its interval on the
// salesman's timeline. Cancelled bookings free their slot.
func (b *Booking) Occupies() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed || b.Status == StatusCompleted
}

// CountsForCommission reports whether the booking earns commission.
func (b *Booking) CountsForCommission() bool {
	return b.Status == StatusConfirmed || b.Status == StatusCompleted
}

func (b *Booking) Interval() Interval { return Interval{Start: b.Start, End: b.End} }

// BufferedInterval returns the booking interval expanded by the buffer
// on both ends. Used for overlap checks and slot subtraction.
func (b *Booking) BufferedInterval(buffer time.Duration) Interval {
	return Interval{Start: b.Start.Add(-buffer), End: b.End.Add(buffer)}
}

// =============================================================================
// COMMISSION ENTRY - Exactly one per confirmed, non-voided booking
// =============================================================================

type CommissionEntry struct {
	ID          EntryID
	BookingID   BookingID
	SalesmanID  SalesmanID
	Kind        BookingKind
	Rate        Money // snapshot at confirmation time, never recomputed
	Amount      Money
	ConfirmedAt time.Time // determines the owning pay period

	Voided     bool
	VoidedAt   *time.Time
	VoidReason string

	CreatedAt time.Time
}

// =============================================================================
// ADJUSTMENT - Payroll-level correction, applied per salesman per period
// =============================================================================

type AdjustmentType string

const (
	AdjustmentBonus                      AdjustmentType = "bonus"
	AdjustmentPenalty                    AdjustmentType = "penalty"
	AdjustmentCorrection                 AdjustmentType = "correction"
	AdjustmentCancellationAfterFinalized AdjustmentType = "cancellation_after_finalized"
)

type Adjustment struct {
	ID          AdjustmentID
	PeriodStart time.Time // Friday midnight, business timezone
	SalesmanID  SalesmanID
	BookingID   BookingID // optional back-reference
	Type        AdjustmentType
	Amount      Money // signed: penalties are negative
	Reason      string
	CreatedBy   string
	CreatedAt   time.Time
}

// =============================================================================
// PAY PERIOD - Friday-Thursday aggregation window
// =============================================================================

type PeriodStatus string

const (
	PeriodStatusOpen      PeriodStatus = "open"
	PeriodStatusFinalized PeriodStatus = "finalized"
)

type PayPeriod struct {
	Start       time.Time // Friday 00:00:00 business tz
	End         time.Time // Thursday 23:59:59.999999999 business tz
	Status      PeriodStatus
	FinalizedAt *time.Time
	FinalizedBy string
	Notes       string
	CreatedAt   time.Time
}

// =============================================================================
// HOLIDAY - Company holiday; produces no working windows
// =============================================================================

type Holiday struct {
	ID        string
	Name      string
	Date      time.Time // midnight, business timezone
	Recurring bool      // same month/day every year
	CreatedAt time.Time
}

// Matches reports whether the holiday falls on the given date.
func (h Holiday) Matches(date time.Time) bool {
	if h.Recurring {
		return h.Date.Month() == date.Month() && h.Date.Day() == date.Day()
	}
	return h.Date.Year() == date.Year() && h.Date.YearDay() == date.YearDay()
}
