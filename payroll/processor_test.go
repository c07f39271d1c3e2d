package payroll_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/engine"
	memstore "github.com/warp/booking-engine/engine/store"
	"github.com/warp/booking-engine/payroll"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Friday 2024-06-07: the period under test runs through Thursday Jun 13.
var weekStart = time.Date(2024, time.June, 7, 0, 0, 0, 0, time.UTC)

func newTestProcessor(t *testing.T) (*payroll.Processor, *memstore.Memory, *engine.CollectingEmitter) {
	t.Helper()
	store := memstore.NewMemory()
	emitter := &engine.CollectingEmitter{}
	proc := payroll.NewProcessor(store, engine.DefaultConfig(), emitter)
	proc.Now = func() time.Time { return weekStart.Add(6 * 24 * time.Hour) }
	return proc, store, emitter
}

// seedEntry writes a live commission entry confirmed at the given instant.
func seedEntry(t *testing.T, store *memstore.Memory, n int, salesmanID engine.SalesmanID, confirmedAt time.Time, amount string) {
	t.Helper()
	require.NoError(t, store.CreateEntry(context.Background(), &engine.CommissionEntry{
		ID:          engine.EntryID(fmt.Sprintf("entry-%d", n)),
		BookingID:   engine.BookingID(fmt.Sprintf("bk-%d", n)),
		SalesmanID:  salesmanID,
		Kind:        engine.KindZoom,
		Rate:        engine.MustParseMoney(amount),
		Amount:      engine.MustParseMoney(amount),
		ConfirmedAt: confirmedAt,
	}))
}

var admin = engine.Actor{ID: "admin-1", Role: "admin"}

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestComputePeriod_SevenBookingsPlusBonus(t *testing.T) {
	// GIVEN: 7 confirmed bookings at $50 each for salesman S in the
	//        Jun 07 - Jun 13 period, plus a $10 bonus adjustment
	// WHEN: Computing the period
	// THEN: S totals $360

	proc, store, _ := newTestProcessor(t)
	ctx := context.Background()

	for d := 0; d < 7; d++ {
		seedEntry(t, store, d, "sm-s", weekStart.Add(time.Duration(d)*24*time.Hour).Add(10*time.Hour), "50.00")
	}
	_, err := proc.AddAdjustment(ctx, payroll.AdjustmentParams{
		PeriodStart: weekStart,
		SalesmanID:  "sm-s",
		Type:        engine.AdjustmentBonus,
		Amount:      engine.MustParseMoney("10.00"),
		Reason:      "quarterly spiff",
	}, admin)
	require.NoError(t, err)

	summary, err := proc.ComputePeriod(ctx, weekStart)
	require.NoError(t, err)

	require.Len(t, summary.Totals, 1)
	s := summary.Totals[0]
	assert.Equal(t, engine.SalesmanID("sm-s"), s.SalesmanID)
	assert.Equal(t, 7, s.BookingCount)
	assert.True(t, s.Commission.Equal(engine.MustParseMoney("350.00")), "commission %s", s.Commission)
	assert.True(t, s.Adjustments.Equal(engine.MustParseMoney("10.00")), "adjustments %s", s.Adjustments)
	assert.True(t, s.Total.Equal(engine.MustParseMoney("360.00")), "total %s", s.Total)
	assert.True(t, summary.GrandTotal.Equal(engine.MustParseMoney("360.00")))
}

func TestComputePeriod_Idempotent(t *testing.T) {
	// GIVEN: An open period with entries
	// WHEN: Computing twice with no intervening mutations
	// THEN: Identical totals - ComputePeriod is a pure read

	proc, store, _ := newTestProcessor(t)
	seedEntry(t, store, 1, "sm-s", weekStart.Add(10*time.Hour), "50.00")
	seedEntry(t, store, 2, "sm-s", weekStart.Add(34*time.Hour), "75.00")

	first, err := proc.ComputePeriod(context.Background(), weekStart)
	require.NoError(t, err)
	second, err := proc.ComputePeriod(context.Background(), weekStart)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputePeriod_ExcludesVoidedAndOutOfRange(t *testing.T) {
	// GIVEN: A live entry, a voided entry, and entries in neighboring periods
	// WHEN: Computing
	// THEN: Only the live in-period entry counts

	proc, store, _ := newTestProcessor(t)
	ctx := context.Background()

	seedEntry(t, store, 1, "sm-s", weekStart.Add(10*time.Hour), "50.00")
	seedEntry(t, store, 2, "sm-s", weekStart.Add(-2*time.Hour), "50.00") // previous period
	seedEntry(t, store, 3, "sm-s", weekStart.AddDate(0, 0, 7), "50.00")  // next period
	voidedAt := weekStart.Add(20 * time.Hour)
	require.NoError(t, store.CreateEntry(ctx, &engine.CommissionEntry{
		ID: "entry-void", BookingID: "bk-void", SalesmanID: "sm-s",
		Kind: engine.KindZoom, Amount: engine.MustParseMoney("50.00"),
		ConfirmedAt: weekStart.Add(12 * time.Hour),
		Voided:      true, VoidedAt: &voidedAt,
	}))

	summary, err := proc.ComputePeriod(ctx, weekStart)
	require.NoError(t, err)

	require.Len(t, summary.Totals, 1)
	assert.Equal(t, 1, summary.Totals[0].BookingCount)
	assert.True(t, summary.GrandTotal.Equal(engine.MustParseMoney("50.00")))
}

func TestComputePeriod_MultipleSalesmenSorted(t *testing.T) {
	// GIVEN: Entries for two salesmen
	// WHEN: Computing
	// THEN: One line per salesman, sorted by ID, grand total across both

	proc, store, _ := newTestProcessor(t)
	seedEntry(t, store, 1, "sm-b", weekStart.Add(10*time.Hour), "50.00")
	seedEntry(t, store, 2, "sm-a", weekStart.Add(12*time.Hour), "60.00")

	summary, err := proc.ComputePeriod(context.Background(), weekStart)
	require.NoError(t, err)

	require.Len(t, summary.Totals, 2)
	assert.Equal(t, engine.SalesmanID("sm-a"), summary.Totals[0].SalesmanID)
	assert.Equal(t, engine.SalesmanID("sm-b"), summary.Totals[1].SalesmanID)
	assert.True(t, summary.GrandTotal.Equal(engine.MustParseMoney("110.00")))
}

// =============================================================================
// FINALIZE TESTS
// =============================================================================

func TestFinalize_LocksAndEmits(t *testing.T) {
	// GIVEN: An open period with one entry
	// WHEN: Finalizing
	// THEN: Period row is finalized, the summary snapshot is returned,
	//       and PeriodFinalized carries the per-salesman totals

	proc, store, emitter := newTestProcessor(t)
	ctx := context.Background()
	seedEntry(t, store, 1, "sm-s", weekStart.Add(10*time.Hour), "50.00")

	summary, err := proc.Finalize(ctx, weekStart, admin)
	require.NoError(t, err)

	assert.Equal(t, engine.PeriodStatusFinalized, summary.Period.Status)
	assert.Equal(t, "admin-1", summary.Period.FinalizedBy)
	require.NotNil(t, summary.Period.FinalizedAt)

	stored, err := store.GetPeriod(ctx, weekStart)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, engine.PeriodStatusFinalized, stored.Status)

	events := emitter.Named("period_finalized")
	require.Len(t, events, 1)
	fin := events[0].(engine.PeriodFinalized)
	assert.True(t, fin.PerSalesmanTotals["sm-s"].Equal(engine.MustParseMoney("50.00")))
}

func TestFinalize_SecondCallRejected(t *testing.T) {
	// GIVEN: A finalized period
	// WHEN: Finalizing again
	// THEN: AlreadyFinalizedError

	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()

	_, err := proc.Finalize(ctx, weekStart, admin)
	require.NoError(t, err)

	_, err = proc.Finalize(ctx, weekStart, admin)
	require.Error(t, err)
	var already *engine.AlreadyFinalizedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, weekStart, already.PeriodStart)
}

func TestFinalize_AnyDayInPeriodNormalizes(t *testing.T) {
	// GIVEN: A finalize request anchored mid-period (Sunday)
	// WHEN: Finalizing
	// THEN: The containing Friday-Thursday period is the one locked

	proc, store, _ := newTestProcessor(t)
	ctx := context.Background()

	_, err := proc.Finalize(ctx, weekStart.AddDate(0, 0, 2), admin)
	require.NoError(t, err)

	stored, err := store.GetPeriod(ctx, weekStart)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, engine.PeriodStatusFinalized, stored.Status)
}

// =============================================================================
// PERIOD GATE TESTS
// =============================================================================

func TestGuard_OpenPeriodAdmits(t *testing.T) {
	proc, _, _ := newTestProcessor(t)

	ran := false
	err := proc.Guard(context.Background(), weekStart.Add(10*time.Hour), func(p engine.PayPeriod) error {
		ran = true
		assert.Equal(t, weekStart, p.Start)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestGuard_FinalizedPeriodRejects(t *testing.T) {
	// GIVEN: A finalized period
	// WHEN: Guarding a mutation inside it, and one in the next period
	// THEN: Inside is rejected with PeriodLockedError; outside passes

	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()
	_, err := proc.Finalize(ctx, weekStart, admin)
	require.NoError(t, err)

	err = proc.Guard(ctx, weekStart.Add(10*time.Hour), func(engine.PayPeriod) error {
		t.Fatal("mutation ran inside a finalized period")
		return nil
	})
	var locked *engine.PeriodLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, weekStart, locked.PeriodStart)

	err = proc.Guard(ctx, weekStart.AddDate(0, 0, 7), func(engine.PayPeriod) error { return nil })
	assert.NoError(t, err)
}

func TestIsLockedAndNextOpenPeriod(t *testing.T) {
	// GIVEN: This period finalized, the next one untouched
	// WHEN: Probing lock state
	// THEN: NextOpenPeriod skips past the finalized one

	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()
	_, err := proc.Finalize(ctx, weekStart, admin)
	require.NoError(t, err)

	locked, err := proc.IsLocked(ctx, weekStart.Add(10*time.Hour))
	require.NoError(t, err)
	assert.True(t, locked)

	next, err := proc.NextOpenPeriod(ctx, weekStart)
	require.NoError(t, err)
	assert.Equal(t, weekStart.AddDate(0, 0, 7), next.Start)
}

func TestGuard_ConcurrentWithFinalize_NeverDropsAnEntry(t *testing.T) {
	// GIVEN: An entry write racing a finalize of the same period
	// WHEN: Both run concurrently
	// THEN: Either the write landed before the flip and the finalize
	//       snapshot counts it, or the write was rejected - never a
	//       silent drop

	proc, store, _ := newTestProcessor(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		guardErr error
		summary  *payroll.Summary
		finErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		guardErr = proc.Guard(ctx, weekStart.Add(10*time.Hour), func(engine.PayPeriod) error {
			seedEntry(t, store, 1, "sm-s", weekStart.Add(10*time.Hour), "50.00")
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		summary, finErr = proc.Finalize(ctx, weekStart, admin)
	}()
	wg.Wait()

	require.NoError(t, finErr)
	if guardErr == nil {
		assert.True(t, summary.GrandTotal.Equal(engine.MustParseMoney("50.00")),
			"entry landed before the flip, so the snapshot must count it")
	} else {
		assert.ErrorIs(t, guardErr, engine.ErrPeriodLocked)
		assert.True(t, summary.GrandTotal.IsZero())
	}
}

// =============================================================================
// ADJUSTMENT TESTS
// =============================================================================

func TestAddAdjustment_OpenPeriod(t *testing.T) {
	proc, store, _ := newTestProcessor(t)
	ctx := context.Background()

	adj, err := proc.AddAdjustment(ctx, payroll.AdjustmentParams{
		PeriodStart: weekStart,
		SalesmanID:  "sm-s",
		Type:        engine.AdjustmentPenalty,
		Amount:      engine.MustParseMoney("-25.00"),
		Reason:      "missed demo",
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, weekStart, adj.PeriodStart)
	assert.Equal(t, "admin-1", adj.CreatedBy)

	listed, err := store.ListAdjustments(ctx, weekStart)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestAddAdjustment_FinalizedPeriodRejected(t *testing.T) {
	// GIVEN: A finalized period
	// WHEN: Adding an adjustment against it
	// THEN: PeriodLockedError - corrections target a later open period

	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()
	_, err := proc.Finalize(ctx, weekStart, admin)
	require.NoError(t, err)

	_, err = proc.AddAdjustment(ctx, payroll.AdjustmentParams{
		PeriodStart: weekStart,
		SalesmanID:  "sm-s",
		Type:        engine.AdjustmentBonus,
		Amount:      engine.MustParseMoney("10.00"),
		Reason:      "late bonus",
	}, admin)
	assert.ErrorIs(t, err, engine.ErrPeriodLocked)
}

func TestAddAdjustment_Validation(t *testing.T) {
	proc, _, _ := newTestProcessor(t)
	ctx := context.Background()

	_, err := proc.AddAdjustment(ctx, payroll.AdjustmentParams{
		PeriodStart: weekStart, SalesmanID: "sm-s",
		Type: engine.AdjustmentBonus, Amount: engine.MustParseMoney("10.00"),
	}, admin)
	assert.ErrorIs(t, err, engine.ErrValidation, "missing reason")

	_, err = proc.AddAdjustment(ctx, payroll.AdjustmentParams{
		PeriodStart: weekStart,
		Type:        engine.AdjustmentBonus, Amount: engine.MustParseMoney("10.00"),
		Reason: "no salesman",
	}, admin)
	assert.ErrorIs(t, err, engine.ErrValidation, "missing salesman")
}
