/*
Package booking owns the booking lifecycle: create, confirm, cancel,
complete.

PURPOSE:

	The manager is the only writer of booking rows. It enforces the
	no-overlap invariant atomically: a per-salesman mutex spans
	recompute -> validate -> insert, so two concurrent requests for the
	same interval cannot both pass validation against a stale slot view.

LIFECYCLE:

	pending -> confirmed -> completed
	pending -> cancelled
	confirmed -> cancelled
	cancelled and completed are terminal. Confirmation is the trigger for
	commission entry creation; cancellation voids it (or routes a
	compensating adjustment when the period is already locked).

SEE ALSO:
  - slots/generator.go: the availability check re-run in the critical section
  - commission/ledger.go: entry creation and voiding
  - payroll/processor.go: the period gate serializing against finalize
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/warp/booking-engine/commission"
	"github.com/warp/booking-engine/engine"
	"github.com/warp/booking-engine/payroll"
	"github.com/warp/booking-engine/slots"
)

// Manager coordinates booking mutations.
type Manager struct {
	Store   engine.Store
	Config  engine.Config
	Slots   *slots.Generator
	Ledger  *commission.Ledger
	Payroll *payroll.Processor
	Emitter engine.Emitter
	NewID   engine.IDGenerator
	Now     engine.Clock

	mu    sync.Mutex
	locks map[engine.SalesmanID]*sync.Mutex
}

func NewManager(store engine.Store, cfg engine.Config, gen *slots.Generator, ledger *commission.Ledger, proc *payroll.Processor, em engine.Emitter) *Manager {
	return &Manager{
		Store:   store,
		Config:  cfg,
		Slots:   gen,
		Ledger:  ledger,
		Payroll: proc,
		Emitter: em,
		NewID:   engine.NewID,
		Now:     time.Now,
		locks:   make(map[engine.SalesmanID]*sync.Mutex),
	}
}

// lock returns the salesman's booking mutex, creating it lazily. Booking
// mutations for different salesmen never contend.
func (m *Manager) lock(id engine.SalesmanID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// =============================================================================
// CREATE
// =============================================================================

// ClientParams identifies the client to book for. Either ClientID (an
// existing client) or the contact fields for dedupe-or-create.
type ClientParams struct {
	ClientID     engine.ClientID
	FirstName    string
	LastName     string
	BusinessName string
	Email        string
	Phone        string
	Notes        string
}

// CreateParams describes a booking request.
type CreateParams struct {
	SalesmanID engine.SalesmanID
	Start      time.Time
	End        time.Time
	Kind       engine.BookingKind
	ZoomLink   string
	Notes      string
	Client     ClientParams
}

// Create validates and inserts a pending booking. The returned warning
// is non-nil when an existing client was matched on contact fields and
// attached instead of creating a new one; the booking still succeeds.
func (m *Manager) Create(ctx context.Context, params CreateParams, actor engine.Actor) (*engine.Booking, *engine.DuplicateClientWarning, error) {
	if err := m.validateCreate(params); err != nil {
		return nil, nil, err
	}

	sm, err := m.Store.GetSalesman(ctx, params.SalesmanID)
	if err != nil {
		return nil, nil, fmt.Errorf("load salesman: %w", err)
	}
	if sm == nil {
		return nil, nil, fmt.Errorf("salesman %s: %w", params.SalesmanID, engine.ErrNotFound)
	}
	if !sm.Active {
		return nil, nil, &engine.ValidationError{Field: "salesman_id", Message: "salesman is not active"}
	}

	// Critical section: the per-salesman lock makes availability check +
	// insert atomic against concurrent requests; the period gate makes it
	// atomic against a concurrent finalize of the period the booking
	// starts in.
	l := m.lock(params.SalesmanID)
	l.Lock()
	defer l.Unlock()

	var (
		b       *engine.Booking
		warning *engine.DuplicateClientWarning
	)
	err = m.Payroll.Guard(ctx, params.Start, func(engine.PayPeriod) error {
		covered, err := m.Slots.Covers(ctx, params.SalesmanID, params.Start, params.End, params.Kind)
		if err != nil {
			return err
		}
		if !covered {
			return &engine.ConflictError{
				SalesmanID: params.SalesmanID,
				Start:      params.Start,
				End:        params.End,
				Reason:     "slot_unavailable",
			}
		}

		client, w, err := m.resolveClient(ctx, params.Client, actor)
		if err != nil {
			return err
		}
		warning = w

		now := m.Now()
		b = &engine.Booking{
			ID:         engine.BookingID(m.NewID()),
			SalesmanID: params.SalesmanID,
			ClientID:   client.ID,
			Start:      params.Start,
			End:        params.End,
			Kind:       params.Kind,
			Status:     engine.StatusPending,
			ZoomLink:   params.ZoomLink,
			Notes:      params.Notes,
			CreatedBy:  actor.ID,
			CreatedAt:  now,
		}
		return m.Store.CreateBooking(ctx, b)
	})
	if err != nil {
		return nil, nil, err
	}

	engine.Emit(m.Emitter, engine.Mutation{
		Entity:    "booking",
		EntityID:  string(b.ID),
		Action:    "create",
		Actor:     actor,
		Timestamp: b.CreatedAt,
		After: map[string]string{
			"salesman": string(b.SalesmanID),
			"client":   string(b.ClientID),
			"start":    b.Start.Format(time.RFC3339),
			"end":      b.End.Format(time.RFC3339),
			"kind":     string(b.Kind),
			"status":   string(b.Status),
		},
	})
	return b, warning, nil
}

func (m *Manager) validateCreate(p CreateParams) error {
	if p.SalesmanID == "" {
		return &engine.ValidationError{Field: "salesman_id", Message: "is required"}
	}
	if !p.End.After(p.Start) {
		return &engine.ValidationError{Field: "end", Message: "must be after start"}
	}
	if !p.Kind.Valid() {
		return &engine.ValidationError{Field: "kind", Message: fmt.Sprintf("must be %q or %q", engine.KindZoom, engine.KindInPerson)}
	}
	if p.Kind == engine.KindZoom && p.ZoomLink == "" {
		return &engine.ValidationError{Field: "zoom_link", Message: "is required for zoom bookings"}
	}
	if p.Client.ClientID == "" && p.Client.Email == "" && p.Client.Phone == "" {
		return &engine.ValidationError{Field: "client", Message: "client_id or a contact field is required"}
	}

	now := m.Now()
	minStart := now.Add(time.Duration(m.Config.MinAdvanceHours) * time.Hour)
	if p.Start.Before(minStart) {
		return &engine.ValidationError{
			Field:   "start",
			Message: fmt.Sprintf("must be at least %dh in the future", m.Config.MinAdvanceHours),
		}
	}
	maxStart := now.AddDate(0, 0, m.Config.MaxAdvanceDays)
	if p.Start.After(maxStart) {
		return &engine.ValidationError{
			Field:   "start",
			Message: fmt.Sprintf("must be within %d days", m.Config.MaxAdvanceDays),
		}
	}
	return nil
}

// resolveClient attaches an existing client - by ID, or by contact-field
// match - or creates a new one. A contact match produces an advisory
// DuplicateClientWarning; the booking proceeds either way.
func (m *Manager) resolveClient(ctx context.Context, p ClientParams, actor engine.Actor) (*engine.Client, *engine.DuplicateClientWarning, error) {
	if p.ClientID != "" {
		c, err := m.Store.GetClient(ctx, p.ClientID)
		if err != nil {
			return nil, nil, fmt.Errorf("load client: %w", err)
		}
		if c == nil {
			return nil, nil, fmt.Errorf("client %s: %w", p.ClientID, engine.ErrNotFound)
		}
		return c, nil, nil
	}

	email := NormalizeEmail(p.Email)
	phone := NormalizePhone(p.Phone)
	existing, matchedOn, err := m.Store.FindClientByContact(ctx, email, phone)
	if err != nil {
		return nil, nil, fmt.Errorf("match client: %w", err)
	}
	if existing != nil {
		return existing, &engine.DuplicateClientWarning{ClientID: existing.ID, MatchedOn: matchedOn}, nil
	}

	c := &engine.Client{
		ID:           engine.ClientID(m.NewID()),
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		BusinessName: strings.TrimSpace(p.BusinessName),
		Email:        email,
		Phone:        phone,
		Notes:        p.Notes,
		CreatedBy:    actor.ID,
		CreatedAt:    m.Now(),
	}
	if err := m.Store.CreateClient(ctx, c); err != nil {
		return nil, nil, err
	}
	return c, nil, nil
}

// NormalizeEmail lowercases and trims. Matching is exact after
// normalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone strips everything but digits, so "+1 (555) 123-4567"
// and "15551234567" match.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// =============================================================================
// CONFIRM
// =============================================================================

// Confirm transitions pending -> confirmed and records the commission
// entry. Both happen inside the period gate of the confirmation
// instant, so the entry either lands before a concurrent finalize or
// the whole transition is rejected with PeriodLockedError.
func (m *Manager) Confirm(ctx context.Context, id engine.BookingID, actor engine.Actor) (*engine.Booking, error) {
	b, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}

	// The status check is authoritative only under the salesman lock;
	// without it two concurrent confirms both see pending.
	l := m.lock(b.SalesmanID)
	l.Lock()
	defer l.Unlock()

	b, err = m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != engine.StatusPending {
		return nil, fmt.Errorf("cannot confirm booking in status %s: %w", b.Status, engine.ErrInvalidTransition)
	}

	now := m.Now()
	err = m.Payroll.Guard(ctx, now, func(engine.PayPeriod) error {
		prev := *b
		b.Status = engine.StatusConfirmed
		b.ConfirmedBy = actor.ID
		b.ConfirmedAt = &now

		// Entry before status flip: a failed insert leaves the booking
		// pending and the confirm cleanly retryable. A duplicate entry
		// here can only be the leftover of an earlier attempt that wrote
		// the entry but failed before the flip, so the retry finishes
		// that transition instead of stranding it.
		if _, err := m.Ledger.RecordConfirmation(ctx, b, now, actor); err != nil && !errors.Is(err, engine.ErrDuplicateEntry) {
			*b = prev
			return err
		}
		if err := m.Store.UpdateBooking(ctx, b); err != nil {
			*b = prev
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	engine.Emit(m.Emitter, engine.BookingConfirmed{Booking: *b})
	engine.Emit(m.Emitter, engine.Mutation{
		Entity:    "booking",
		EntityID:  string(b.ID),
		Action:    "confirm",
		Actor:     actor,
		Timestamp: now,
		Before:    map[string]string{"status": string(engine.StatusPending)},
		After:     map[string]string{"status": string(engine.StatusConfirmed)},
	})
	return b, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// CancelParams describes a cancellation request. Force lets an admin
// cancel a booking whose confirmation falls in a finalized period; the
// entry stands and a compensating adjustment is routed to the next open
// period. Without Force such a cancel fails with PeriodLockedError.
type CancelParams struct {
	BookingID engine.BookingID
	Reason    engine.CancellationReason
	Notes     string
	Force     bool
}

// Cancel transitions pending|confirmed -> cancelled and resolves the
// commission entry.
func (m *Manager) Cancel(ctx context.Context, params CancelParams, actor engine.Actor) (*engine.Booking, error) {
	if params.Reason == "" {
		return nil, &engine.ValidationError{Field: "reason", Message: "is required"}
	}
	b, err := m.get(ctx, params.BookingID)
	if err != nil {
		return nil, err
	}

	l := m.lock(b.SalesmanID)
	l.Lock()
	defer l.Unlock()

	b, err = m.get(ctx, params.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != engine.StatusPending && b.Status != engine.StatusConfirmed {
		return nil, fmt.Errorf("cannot cancel booking in status %s: %w", b.Status, engine.ErrInvalidTransition)
	}

	// The instant that decides which period governs this cancellation:
	// for confirmed bookings the entry's period, for pending ones the
	// booking start (no monetary effect yet).
	governing := b.Start
	if b.ConfirmedAt != nil {
		governing = *b.ConfirmedAt
	}

	prev := b.Status
	now := m.Now()
	apply := func() error {
		// Ledger first: VoidForCancellation is idempotent, so if the
		// status write below fails the booking stays confirmed and the
		// whole cancel can be retried without double-counting.
		if err := m.Ledger.VoidForCancellation(ctx, b, string(params.Reason), actor); err != nil {
			return err
		}
		snapshot := *b
		b.Status = engine.StatusCancelled
		b.CancellationReason = params.Reason
		b.CancellationNotes = params.Notes
		b.CancelledBy = actor.ID
		b.CancelledAt = &now
		if err := m.Store.UpdateBooking(ctx, b); err != nil {
			*b = snapshot
			return err
		}
		return nil
	}

	locked, err := m.Payroll.IsLocked(ctx, governing)
	if err != nil {
		return nil, err
	}
	switch {
	case !locked:
		err = m.Payroll.Guard(ctx, governing, func(engine.PayPeriod) error { return apply() })
	case params.Force && actor.Role == "admin":
		// Bypasses the gate: the finalized period's rows stay untouched,
		// the ledger routes the correction to the next open period.
		err = apply()
	default:
		period := engine.PeriodFor(governing, m.Config.Timezone)
		err = &engine.PeriodLockedError{PeriodStart: period.Start}
	}
	if err != nil {
		return nil, err
	}

	engine.Emit(m.Emitter, engine.BookingCancelled{Booking: *b})
	engine.Emit(m.Emitter, engine.Mutation{
		Entity:    "booking",
		EntityID:  string(b.ID),
		Action:    "cancel",
		Actor:     actor,
		Timestamp: now,
		Before:    map[string]string{"status": string(prev)},
		After:     map[string]string{"status": string(engine.StatusCancelled), "reason": string(params.Reason)},
	})
	return b, nil
}

// =============================================================================
// COMPLETE
// =============================================================================

// Complete transitions confirmed -> completed. The housekeeping
// scheduler calls this for past bookings; the API exposes it for manual
// use. Commission is unaffected - the entry was created at
// confirmation.
func (m *Manager) Complete(ctx context.Context, id engine.BookingID, actor engine.Actor) (*engine.Booking, error) {
	b, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != engine.StatusConfirmed {
		return nil, fmt.Errorf("cannot complete booking in status %s: %w", b.Status, engine.ErrInvalidTransition)
	}

	now := m.Now()
	b.Status = engine.StatusCompleted
	b.CompletedAt = &now
	if err := m.Store.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}

	engine.Emit(m.Emitter, engine.Mutation{
		Entity:    "booking",
		EntityID:  string(b.ID),
		Action:    "complete",
		Actor:     actor,
		Timestamp: now,
		Before:    map[string]string{"status": string(engine.StatusConfirmed)},
		After:     map[string]string{"status": string(engine.StatusCompleted)},
	})
	return b, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns a booking or ErrNotFound.
func (m *Manager) Get(ctx context.Context, id engine.BookingID) (*engine.Booking, error) {
	return m.get(ctx, id)
}

// List proxies the store filter.
func (m *Manager) List(ctx context.Context, f engine.BookingFilter) ([]engine.Booking, error) {
	return m.Store.ListBookings(ctx, f)
}

func (m *Manager) get(ctx context.Context, id engine.BookingID) (*engine.Booking, error) {
	b, err := m.Store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("booking %s: %w", id, engine.ErrNotFound)
	}
	return b, nil
}
