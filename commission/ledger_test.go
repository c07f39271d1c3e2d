package commission_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/commission"
	"github.com/warp/booking-engine/engine"
	memstore "github.com/warp/booking-engine/engine/store"
	"github.com/warp/booking-engine/payroll"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Monday 2024-06-10 10:00, inside the Friday Jun 07 period.
var (
	confirmedAt = time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)
	periodStart = time.Date(2024, time.June, 7, 0, 0, 0, 0, time.UTC)
	admin       = engine.Actor{ID: "admin-1", Role: "admin"}
)

func newTestLedger(t *testing.T) (*commission.Ledger, *payroll.Processor, *memstore.Memory) {
	t.Helper()
	store := memstore.NewMemory()
	cfg := engine.DefaultConfig()
	emitter := &engine.CollectingEmitter{}
	proc := payroll.NewProcessor(store, cfg, emitter)
	ledger := commission.NewLedger(store, cfg, proc, emitter)
	ledger.Now = func() time.Time { return confirmedAt }
	proc.Now = ledger.Now
	return ledger, proc, store
}

func confirmedBooking(id engine.BookingID) *engine.Booking {
	at := confirmedAt
	return &engine.Booking{
		ID:          id,
		SalesmanID:  "sm-1",
		ClientID:    "client-1",
		Start:       confirmedAt.Add(24 * time.Hour),
		End:         confirmedAt.Add(24*time.Hour + 30*time.Minute),
		Kind:        engine.KindZoom,
		Status:      engine.StatusConfirmed,
		ConfirmedAt: &at,
	}
}

// =============================================================================
// CONFIRMATION TESTS
// =============================================================================

func TestRecordConfirmation_SnapshotsEffectiveRate(t *testing.T) {
	// GIVEN: A $60 global rate in effect at confirmation time
	// WHEN: Recording the confirmation, then raising the rate to $75
	// THEN: The stored entry keeps the $60 snapshot

	ledger, _, store := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, store.AppendRate(ctx, engine.RateRecord{
		Rate:          engine.MustParseMoney("60.00"),
		EffectiveFrom: confirmedAt.AddDate(0, 0, -30),
	}))

	entry, err := ledger.RecordConfirmation(ctx, confirmedBooking("bk-1"), confirmedAt, admin)
	require.NoError(t, err)
	assert.True(t, entry.Rate.Equal(engine.MustParseMoney("60.00")))
	assert.True(t, entry.Amount.Equal(engine.MustParseMoney("60.00")))
	assert.Equal(t, confirmedAt, entry.ConfirmedAt)

	// Retroactive-looking rate change: effective before the confirmation.
	require.NoError(t, store.AppendRate(ctx, engine.RateRecord{
		Rate:          engine.MustParseMoney("75.00"),
		EffectiveFrom: confirmedAt.AddDate(0, 0, -60),
	}))

	stored, err := ledger.EntryForBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(engine.MustParseMoney("60.00")),
		"entry is a snapshot; later rate records never rewrite it")
}

func TestRecordConfirmation_DefaultRateWhenNoHistory(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	entry, err := ledger.RecordConfirmation(context.Background(), confirmedBooking("bk-1"), confirmedAt, admin)
	require.NoError(t, err)
	assert.True(t, entry.Amount.Equal(engine.MustParseMoney("50.00")), "deployment default")
}

func TestRecordConfirmation_SalesmanSpecificRateWins(t *testing.T) {
	// GIVEN: A global $50 rate and a $70 rate for sm-1
	// WHEN: Recording confirmations for sm-1 and another salesman
	// THEN: Each entry snapshots its own resolved rate

	ledger, _, store := newTestLedger(t)
	ctx := context.Background()

	sm1 := engine.SalesmanID("sm-1")
	require.NoError(t, store.AppendRate(ctx, engine.RateRecord{
		Rate: engine.MustParseMoney("50.00"), EffectiveFrom: confirmedAt.AddDate(0, 0, -30),
	}))
	require.NoError(t, store.AppendRate(ctx, engine.RateRecord{
		SalesmanID: &sm1,
		Rate:       engine.MustParseMoney("70.00"), EffectiveFrom: confirmedAt.AddDate(0, 0, -10),
	}))

	e1, err := ledger.RecordConfirmation(ctx, confirmedBooking("bk-1"), confirmedAt, admin)
	require.NoError(t, err)
	assert.True(t, e1.Amount.Equal(engine.MustParseMoney("70.00")))

	other := confirmedBooking("bk-2")
	other.SalesmanID = "sm-2"
	e2, err := ledger.RecordConfirmation(ctx, other, confirmedAt, admin)
	require.NoError(t, err)
	assert.True(t, e2.Amount.Equal(engine.MustParseMoney("50.00")))
}

func TestRecordConfirmation_DuplicateRejected(t *testing.T) {
	// GIVEN: A booking that already has an entry
	// WHEN: Recording again
	// THEN: ErrDuplicateEntry - exactly one entry per confirmed booking

	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()
	b := confirmedBooking("bk-1")

	_, err := ledger.RecordConfirmation(ctx, b, confirmedAt, admin)
	require.NoError(t, err)

	_, err = ledger.RecordConfirmation(ctx, b, confirmedAt, admin)
	assert.ErrorIs(t, err, engine.ErrDuplicateEntry)
}

func TestRecordConfirmation_NonCommissionableStatusRejected(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	b := confirmedBooking("bk-1")
	b.Status = engine.StatusPending

	_, err := ledger.RecordConfirmation(context.Background(), b, confirmedAt, admin)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestVoidForCancellation_OpenPeriodVoidsInPlace(t *testing.T) {
	// GIVEN: An entry in a still-open period
	// WHEN: The booking is cancelled
	// THEN: The entry is voided in place and stops counting

	ledger, proc, store := newTestLedger(t)
	ctx := context.Background()
	b := confirmedBooking("bk-1")
	_, err := ledger.RecordConfirmation(ctx, b, confirmedAt, admin)
	require.NoError(t, err)

	require.NoError(t, ledger.VoidForCancellation(ctx, b, "client_request", admin))

	entry, err := ledger.EntryForBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.True(t, entry.Voided)
	assert.Equal(t, "client_request", entry.VoidReason)
	require.NotNil(t, entry.VoidedAt)

	summary, err := proc.ComputePeriod(ctx, periodStart)
	require.NoError(t, err)
	assert.True(t, summary.GrandTotal.IsZero())

	// No compensating adjustment exists anywhere.
	adjs, err := store.ListAdjustments(ctx, periodStart.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Empty(t, adjs)
}

func TestVoidForCancellation_FinalizedPeriodRoutesAdjustment(t *testing.T) {
	// GIVEN: An entry whose period has been finalized
	// WHEN: The booking is cancelled anyway
	// THEN: The entry stands untouched and a cancellation_after_finalized
	//       adjustment of -Amount lands in the next open period

	ledger, proc, store := newTestLedger(t)
	ctx := context.Background()
	b := confirmedBooking("bk-1")
	_, err := ledger.RecordConfirmation(ctx, b, confirmedAt, admin)
	require.NoError(t, err)

	_, err = proc.Finalize(ctx, periodStart, admin)
	require.NoError(t, err)

	require.NoError(t, ledger.VoidForCancellation(ctx, b, "no_show", admin))

	entry, err := ledger.EntryForBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.False(t, entry.Voided, "locked history is never rewritten")

	nextStart := periodStart.AddDate(0, 0, 7)
	adjs, err := store.ListAdjustments(ctx, nextStart)
	require.NoError(t, err)
	require.Len(t, adjs, 1)
	adj := adjs[0]
	assert.Equal(t, engine.AdjustmentCancellationAfterFinalized, adj.Type)
	assert.Equal(t, engine.SalesmanID("sm-1"), adj.SalesmanID)
	assert.Equal(t, engine.BookingID("bk-1"), adj.BookingID)
	assert.True(t, adj.Amount.Equal(engine.MustParseMoney("-50.00")), "amount %s", adj.Amount)

	// The two periods reconcile: finalized keeps +50, next carries -50.
	finalized, err := proc.ComputePeriod(ctx, periodStart)
	require.NoError(t, err)
	assert.True(t, finalized.GrandTotal.Equal(engine.MustParseMoney("50.00")))

	next, err := proc.ComputePeriod(ctx, nextStart)
	require.NoError(t, err)
	assert.True(t, next.GrandTotal.Equal(engine.MustParseMoney("-50.00")))
}

func TestVoidForCancellation_SkipsAlreadyFinalizedNextPeriod(t *testing.T) {
	// GIVEN: Both the entry's period and the following one finalized
	// WHEN: Cancelling
	// THEN: The adjustment routes to the first period that is still open

	ledger, proc, store := newTestLedger(t)
	ctx := context.Background()
	b := confirmedBooking("bk-1")
	_, err := ledger.RecordConfirmation(ctx, b, confirmedAt, admin)
	require.NoError(t, err)

	_, err = proc.Finalize(ctx, periodStart, admin)
	require.NoError(t, err)
	_, err = proc.Finalize(ctx, periodStart.AddDate(0, 0, 7), admin)
	require.NoError(t, err)

	require.NoError(t, ledger.VoidForCancellation(ctx, b, "no_show", admin))

	adjs, err := store.ListAdjustments(ctx, periodStart.AddDate(0, 0, 14))
	require.NoError(t, err)
	require.Len(t, adjs, 1)
}

func TestVoidForCancellation_FinalizedPeriodRetryRoutesOnce(t *testing.T) {
	// GIVEN: A finalized-period cancellation whose adjustment was already
	//        routed by a previous attempt
	// WHEN: Voiding again
	// THEN: Exactly one compensating adjustment exists

	ledger, proc, store := newTestLedger(t)
	ctx := context.Background()
	b := confirmedBooking("bk-1")
	_, err := ledger.RecordConfirmation(ctx, b, confirmedAt, admin)
	require.NoError(t, err)

	_, err = proc.Finalize(ctx, periodStart, admin)
	require.NoError(t, err)

	require.NoError(t, ledger.VoidForCancellation(ctx, b, "no_show", admin))
	require.NoError(t, ledger.VoidForCancellation(ctx, b, "no_show", admin))

	adjs, err := store.ListAdjustments(ctx, periodStart.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, adjs, 1)

	next, err := proc.ComputePeriod(ctx, periodStart.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.True(t, next.GrandTotal.Equal(engine.MustParseMoney("-50.00")))
}

func TestVoidForCancellation_NoEntryIsNoOp(t *testing.T) {
	// GIVEN: A pending booking that never earned an entry
	// WHEN: Cancelling
	// THEN: Nothing happens, no error

	ledger, _, store := newTestLedger(t)
	ctx := context.Background()
	b := confirmedBooking("bk-1")
	b.Status = engine.StatusPending
	b.ConfirmedAt = nil

	require.NoError(t, ledger.VoidForCancellation(ctx, b, "client_request", admin))

	adjs, err := store.ListAdjustments(ctx, periodStart)
	require.NoError(t, err)
	assert.Empty(t, adjs)
}

func TestVoidForCancellation_Idempotent(t *testing.T) {
	// GIVEN: An already-voided entry
	// WHEN: Voiding again
	// THEN: No-op; the original void reason survives

	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()
	b := confirmedBooking("bk-1")
	_, err := ledger.RecordConfirmation(ctx, b, confirmedAt, admin)
	require.NoError(t, err)

	require.NoError(t, ledger.VoidForCancellation(ctx, b, "client_request", admin))
	require.NoError(t, ledger.VoidForCancellation(ctx, b, "duplicate", admin))

	entry, err := ledger.EntryForBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "client_request", entry.VoidReason)
}

// =============================================================================
// READ TESTS
// =============================================================================

func TestEntryForBooking_NotFound(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	_, err := ledger.EntryForBooking(context.Background(), "ghost")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}
