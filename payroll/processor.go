/*
Package payroll aggregates commission entries into Friday-Thursday pay
periods and owns the period locking state machine.

PURPOSE:

	ComputePeriod is a pure aggregation - idempotent, no writes, safe to
	recompute for an open period at any time. Finalize is the one-way
	open -> finalized transition; after it, every mutation whose effect
	falls inside the period is rejected with PeriodLockedError.

CONCURRENCY:

	Each period has its own RWMutex gate. Mutations (booking transitions,
	entry writes, adjustments) run under the read lock and check the lock
	state; Finalize takes the write lock, re-aggregates, and flips state.
	A concurrent confirmation therefore either lands and is counted before
	the flip, or is rejected after it - never silently dropped. No
	cross-period or cross-salesman locking exists.

SEE ALSO:
  - commission/ledger.go: writes entries under Guard
  - booking/manager.go: runs status transitions under Guard
*/
package payroll

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/booking-engine/engine"
)

// Processor computes and finalizes pay periods.
type Processor struct {
	Store   engine.Store
	Config  engine.Config
	Emitter engine.Emitter
	NewID   engine.IDGenerator
	Now     engine.Clock

	mu    sync.Mutex
	gates map[time.Time]*sync.RWMutex
}

func NewProcessor(store engine.Store, cfg engine.Config, em engine.Emitter) *Processor {
	return &Processor{
		Store:   store,
		Config:  cfg,
		Emitter: em,
		NewID:   engine.NewID,
		Now:     time.Now,
		gates:   make(map[time.Time]*sync.RWMutex),
	}
}

// gate returns the lock for the period starting at start, creating it
// lazily. Keyed on UTC so wall-clock equality is stable.
func (p *Processor) gate(start time.Time) *sync.RWMutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := start.UTC()
	g, ok := p.gates[key]
	if !ok {
		g = &sync.RWMutex{}
		p.gates[key] = g
	}
	return g
}

// =============================================================================
// PERIOD GATE - Shared with booking and commission
// =============================================================================

// Guard runs fn under the read lock of the period containing `at`,
// rejecting with PeriodLockedError when the period is finalized. This
// is the only door through which period-scoped mutations may pass.
func (p *Processor) Guard(ctx context.Context, at time.Time, fn func(period engine.PayPeriod) error) error {
	period := engine.PeriodFor(at, p.Config.Timezone)
	g := p.gate(period.Start)
	g.RLock()
	defer g.RUnlock()

	stored, err := p.Store.GetPeriod(ctx, period.Start)
	if err != nil {
		return fmt.Errorf("load period: %w", err)
	}
	if stored != nil && stored.Status == engine.PeriodStatusFinalized {
		return &engine.PeriodLockedError{PeriodStart: period.Start}
	}
	return fn(period)
}

// IsLocked reports whether the period containing `at` is finalized.
func (p *Processor) IsLocked(ctx context.Context, at time.Time) (bool, error) {
	period := engine.PeriodFor(at, p.Config.Timezone)
	stored, err := p.Store.GetPeriod(ctx, period.Start)
	if err != nil {
		return false, err
	}
	return stored != nil && stored.Status == engine.PeriodStatusFinalized, nil
}

// NextOpenPeriod returns the first period at or after `after` that is
// not finalized. Used to route corrections for locked periods.
func (p *Processor) NextOpenPeriod(ctx context.Context, after time.Time) (engine.PayPeriod, error) {
	period := engine.PeriodFor(after, p.Config.Timezone)
	for {
		stored, err := p.Store.GetPeriod(ctx, period.Start)
		if err != nil {
			return engine.PayPeriod{}, err
		}
		if stored == nil || stored.Status == engine.PeriodStatusOpen {
			return period, nil
		}
		period = period.Next()
	}
}

// =============================================================================
// AGGREGATION
// =============================================================================

// SalesmanTotal is one salesman's line in a period summary.
type SalesmanTotal struct {
	SalesmanID   engine.SalesmanID
	Commission   engine.Money
	Adjustments  engine.Money
	Total        engine.Money
	BookingCount int
}

// Summary is the per-salesman breakdown plus grand total for a period.
type Summary struct {
	Period     engine.PayPeriod
	Totals     []SalesmanTotal
	GrandTotal engine.Money
}

// ComputePeriod aggregates live commission entries whose confirmation
// instant falls inside the period starting at weekStart, applies the
// period's adjustments, and returns per-salesman totals plus a grand
// total. Pure read: idempotent and retryable.
func (p *Processor) ComputePeriod(ctx context.Context, weekStart time.Time) (*Summary, error) {
	period := engine.PeriodFor(weekStart, p.Config.Timezone)
	if stored, err := p.Store.GetPeriod(ctx, period.Start); err != nil {
		return nil, fmt.Errorf("load period: %w", err)
	} else if stored != nil {
		period = *stored
	}

	entries, err := p.Store.ListEntries(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	adjustments, err := p.Store.ListAdjustments(ctx, period.Start)
	if err != nil {
		return nil, fmt.Errorf("load adjustments: %w", err)
	}

	bySalesman := make(map[engine.SalesmanID]*SalesmanTotal)
	line := func(id engine.SalesmanID) *SalesmanTotal {
		t, ok := bySalesman[id]
		if !ok {
			t = &SalesmanTotal{
				SalesmanID:  id,
				Commission:  engine.ZeroMoney(),
				Adjustments: engine.ZeroMoney(),
				Total:       engine.ZeroMoney(),
			}
			bySalesman[id] = t
		}
		return t
	}

	for _, e := range entries {
		if e.Voided {
			continue
		}
		t := line(e.SalesmanID)
		t.Commission = t.Commission.Add(e.Amount)
		t.BookingCount++
	}
	for _, a := range adjustments {
		t := line(a.SalesmanID)
		t.Adjustments = t.Adjustments.Add(a.Amount)
	}

	summary := &Summary{Period: period, GrandTotal: engine.ZeroMoney()}
	for _, t := range bySalesman {
		t.Total = t.Commission.Add(t.Adjustments)
		summary.Totals = append(summary.Totals, *t)
		summary.GrandTotal = summary.GrandTotal.Add(t.Total)
	}
	sort.Slice(summary.Totals, func(i, j int) bool {
		return summary.Totals[i].SalesmanID < summary.Totals[j].SalesmanID
	})
	return summary, nil
}

// =============================================================================
// FINALIZE - One-way open -> finalized
// =============================================================================

// Finalize locks the period starting at weekStart. The write lock
// serializes against every Guard-ed mutation for the same period; the
// re-aggregation under the lock is the authoritative snapshot emitted
// to the payroll export collaborator. There is no reopen path -
// corrections go through adjustments on a later period.
func (p *Processor) Finalize(ctx context.Context, weekStart time.Time, actor engine.Actor) (*Summary, error) {
	period := engine.PeriodFor(weekStart, p.Config.Timezone)
	g := p.gate(period.Start)
	g.Lock()
	defer g.Unlock()

	stored, err := p.Store.GetPeriod(ctx, period.Start)
	if err != nil {
		return nil, fmt.Errorf("load period: %w", err)
	}
	if stored != nil && stored.Status == engine.PeriodStatusFinalized {
		return nil, &engine.AlreadyFinalizedError{PeriodStart: period.Start}
	}
	if stored == nil {
		now := p.Now()
		period.CreatedAt = now
		stored = &period
	}

	summary, err := p.ComputePeriod(ctx, period.Start)
	if err != nil {
		return nil, err
	}

	now := p.Now()
	stored.Status = engine.PeriodStatusFinalized
	stored.FinalizedAt = &now
	stored.FinalizedBy = actor.ID
	if err := p.Store.SavePeriod(ctx, stored); err != nil {
		return nil, fmt.Errorf("save period: %w", err)
	}
	summary.Period = *stored

	totals := make(map[engine.SalesmanID]engine.Money, len(summary.Totals))
	for _, t := range summary.Totals {
		totals[t.SalesmanID] = t.Total
	}
	engine.Emit(p.Emitter, engine.PeriodFinalized{Period: *stored, PerSalesmanTotals: totals})
	engine.Emit(p.Emitter, engine.Mutation{
		Entity:    "pay_period",
		EntityID:  stored.Start.Format("2006-01-02"),
		Action:    "finalize",
		Actor:     actor,
		Timestamp: now,
		Before:    map[string]string{"status": string(engine.PeriodStatusOpen)},
		After:     map[string]string{"status": string(engine.PeriodStatusFinalized), "grand_total": summary.GrandTotal.String()},
	})
	return summary, nil
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// AdjustmentParams describes a manual payroll adjustment.
type AdjustmentParams struct {
	PeriodStart time.Time
	SalesmanID  engine.SalesmanID
	BookingID   engine.BookingID
	Type        engine.AdjustmentType
	Amount      engine.Money
	Reason      string
}

// AddAdjustment records an adjustment against an open period. Finalized
// periods reject with PeriodLockedError; the caller should target the
// next open period instead.
func (p *Processor) AddAdjustment(ctx context.Context, params AdjustmentParams, actor engine.Actor) (*engine.Adjustment, error) {
	if params.Reason == "" {
		return nil, &engine.ValidationError{Field: "reason", Message: "is required"}
	}
	if params.SalesmanID == "" {
		return nil, &engine.ValidationError{Field: "salesman_id", Message: "is required"}
	}

	var adj *engine.Adjustment
	err := p.Guard(ctx, params.PeriodStart, func(period engine.PayPeriod) error {
		adj = &engine.Adjustment{
			ID:          engine.AdjustmentID(p.NewID()),
			PeriodStart: period.Start,
			SalesmanID:  params.SalesmanID,
			BookingID:   params.BookingID,
			Type:        params.Type,
			Amount:      params.Amount,
			Reason:      params.Reason,
			CreatedBy:   actor.ID,
			CreatedAt:   p.Now(),
		}
		return p.Store.CreateAdjustment(ctx, adj)
	})
	if err != nil {
		return nil, err
	}

	engine.Emit(p.Emitter, engine.Mutation{
		Entity:    "adjustment",
		EntityID:  string(adj.ID),
		Action:    "adjust",
		Actor:     actor,
		Timestamp: adj.CreatedAt,
		After: map[string]string{
			"salesman": string(adj.SalesmanID),
			"type":     string(adj.Type),
			"amount":   adj.Amount.String(),
			"period":   adj.PeriodStart.Format("2006-01-02"),
		},
	})
	return adj, nil
}
