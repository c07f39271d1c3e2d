/*
Package commission derives monetary entries from confirmed bookings.

PURPOSE:

	Exactly one live CommissionEntry exists per confirmed, non-voided
	booking; zero for any other status. The rate is resolved at
	confirmation time and snapshotted onto the entry - later rate changes
	never retroactively alter existing entries.

CANCELLATION RULES:
  - Entry's period still open: the entry is voided in place.
  - Entry's period finalized: the entry stands untouched and a
    cancellation_after_finalized adjustment of -Amount is recorded
    against the next open period. The ledger never silently mutates a
    locked period.
*/
package commission

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/booking-engine/engine"
	"github.com/warp/booking-engine/payroll"
)

// Ledger creates and voids commission entries.
type Ledger struct {
	Store   engine.Store
	Config  engine.Config
	Payroll *payroll.Processor
	Emitter engine.Emitter
	NewID   engine.IDGenerator
	Now     engine.Clock
}

func NewLedger(store engine.Store, cfg engine.Config, proc *payroll.Processor, em engine.Emitter) *Ledger {
	return &Ledger{
		Store:   store,
		Config:  cfg,
		Payroll: proc,
		Emitter: em,
		NewID:   engine.NewID,
		Now:     time.Now,
	}
}

// rateSchedule loads the rate history. The schedule itself is a pure
// function; only the fetch touches the store.
func (l *Ledger) rateSchedule(ctx context.Context) (*engine.RateSchedule, error) {
	records, err := l.Store.ListRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}
	return engine.NewRateSchedule(records, l.Config.DefaultCommissionRate), nil
}

// EffectiveRate resolves the rate for a salesman and kind at an instant.
func (l *Ledger) EffectiveRate(ctx context.Context, salesmanID engine.SalesmanID, kind engine.BookingKind, at time.Time) (engine.Money, error) {
	sched, err := l.rateSchedule(ctx)
	if err != nil {
		return engine.Money{}, err
	}
	return sched.EffectiveRate(salesmanID, kind, at), nil
}

// =============================================================================
// CONFIRMATION - Create exactly one entry
// =============================================================================

// RecordConfirmation creates the commission entry for a booking that
// just transitioned to confirmed. The caller (booking manager) invokes
// this inside the period gate, so the entry can never land in a
// finalized period. Calling it twice for the same booking fails with
// ErrDuplicateEntry.
func (l *Ledger) RecordConfirmation(ctx context.Context, booking *engine.Booking, at time.Time, actor engine.Actor) (*engine.CommissionEntry, error) {
	if !booking.CountsForCommission() {
		return nil, fmt.Errorf("booking %s has status %s: %w", booking.ID, booking.Status, engine.ErrInvalidTransition)
	}
	if existing, err := l.Store.GetEntryByBooking(ctx, booking.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("booking %s: %w", booking.ID, engine.ErrDuplicateEntry)
	}

	rate, err := l.EffectiveRate(ctx, booking.SalesmanID, booking.Kind, at)
	if err != nil {
		return nil, err
	}

	entry := &engine.CommissionEntry{
		ID:          engine.EntryID(l.NewID()),
		BookingID:   booking.ID,
		SalesmanID:  booking.SalesmanID,
		Kind:        booking.Kind,
		Rate:        rate,
		Amount:      rate,
		ConfirmedAt: at,
		CreatedAt:   l.Now(),
	}
	if err := l.Store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	engine.Emit(l.Emitter, engine.Mutation{
		Entity:    "commission_entry",
		EntityID:  string(entry.ID),
		Action:    "create",
		Actor:     actor,
		Timestamp: entry.CreatedAt,
		After: map[string]string{
			"booking":  string(booking.ID),
			"salesman": string(booking.SalesmanID),
			"rate":     rate.String(),
			"amount":   entry.Amount.String(),
		},
	})
	return entry, nil
}

// =============================================================================
// CANCELLATION - Void or route to the next open period
// =============================================================================

// VoidForCancellation resolves the entry of a booking that was (or must
// be treated as) cancelled. Open period: void in place. Finalized
// period: the entry stands; a compensating adjustment is recorded
// against the next open period so the books reconcile without touching
// locked history. A booking without an entry is a no-op.
func (l *Ledger) VoidForCancellation(ctx context.Context, booking *engine.Booking, reason string, actor engine.Actor) error {
	entry, err := l.Store.GetEntryByBooking(ctx, booking.ID)
	if err != nil {
		return err
	}
	if entry == nil || entry.Voided {
		return nil
	}

	locked, err := l.Payroll.IsLocked(ctx, entry.ConfirmedAt)
	if err != nil {
		return err
	}

	if !locked {
		now := l.Now()
		entry.Voided = true
		entry.VoidedAt = &now
		entry.VoidReason = reason
		if err := l.Store.UpdateEntry(ctx, entry); err != nil {
			return err
		}
		engine.Emit(l.Emitter, engine.Mutation{
			Entity:    "commission_entry",
			EntityID:  string(entry.ID),
			Action:    "void",
			Actor:     actor,
			Timestamp: now,
			Before:    map[string]string{"voided": "false"},
			After:     map[string]string{"voided": "true", "reason": reason},
		})
		return nil
	}

	next, err := l.Payroll.NextOpenPeriod(ctx, entry.ConfirmedAt.AddDate(0, 0, 7))
	if err != nil {
		return err
	}

	// Retries must not double-count: a compensating adjustment for this
	// booking may already exist from an attempt that failed later on.
	routed, err := l.Store.ListAdjustments(ctx, next.Start)
	if err != nil {
		return err
	}
	for _, a := range routed {
		if a.BookingID == booking.ID && a.Type == engine.AdjustmentCancellationAfterFinalized {
			return nil
		}
	}

	_, err = l.Payroll.AddAdjustment(ctx, payroll.AdjustmentParams{
		PeriodStart: next.Start,
		SalesmanID:  entry.SalesmanID,
		BookingID:   booking.ID,
		Type:        engine.AdjustmentCancellationAfterFinalized,
		Amount:      entry.Amount.Neg(),
		Reason:      fmt.Sprintf("booking %s cancelled after period %s was finalized: %s", booking.ID, engine.PeriodFor(entry.ConfirmedAt, l.Config.Timezone).Label(), reason),
	}, actor)
	return err
}

// =============================================================================
// READS
// =============================================================================

// EntryForBooking returns the entry for a booking, or ErrNotFound.
func (l *Ledger) EntryForBooking(ctx context.Context, bookingID engine.BookingID) (*engine.CommissionEntry, error) {
	entry, err := l.Store.GetEntryByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("entry for booking %s: %w", bookingID, engine.ErrNotFound)
	}
	return entry, nil
}

// EntriesInRange returns entries confirmed in [from, to], voided included.
func (l *Ledger) EntriesInRange(ctx context.Context, from, to time.Time) ([]engine.CommissionEntry, error) {
	return l.Store.ListEntries(ctx, from, to)
}
