/*
Package slots computes bookable time slots. Slots are derived values:
working windows minus unavailability minus buffered bookings, sliced on
a fixed granularity grid. Nothing here is ever persisted - this replaces
the old strategy of materializing thousands of slot rows per salesman.

PERFORMANCE CONTRACT:

	One Generate call issues exactly three bulk fetches (working windows,
	blocks, bookings) and then runs O(windows + blocks + bookings)
	interval arithmetic. Cheap enough to run inline on every booking-page
	view.

CONCURRENCY:

	Generate is read-only and lock-free; it may serve a view that is
	microseconds stale. The booking manager re-validates inside its
	per-salesman critical section, so a stale view can only ever produce a
	ConflictError, never a double-booking.
*/
package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/booking-engine/calendar"
	"github.com/warp/booking-engine/engine"
)

// Generator computes slots for one salesman over a date range.
type Generator struct {
	Calendar *calendar.Service
	Store    engine.Store
	Config   engine.Config
}

func NewGenerator(cal *calendar.Service, store engine.Store, cfg engine.Config) *Generator {
	return &Generator{Calendar: cal, Store: store, Config: cfg}
}

// Generate returns the bookable slots of the given kind for a salesman
// in [from, to). kind == "" generates for all kinds, one pass per kind.
func (g *Generator) Generate(ctx context.Context, salesmanID engine.SalesmanID, from, to time.Time, kind engine.BookingKind) ([]engine.Slot, error) {
	if !from.Before(to) {
		return nil, &engine.ValidationError{Field: "to", Message: "must be after from"}
	}

	sm, err := g.Store.GetSalesman(ctx, salesmanID)
	if err != nil {
		return nil, fmt.Errorf("load salesman: %w", err)
	}
	if sm == nil {
		return nil, fmt.Errorf("salesman %s: %w", salesmanID, engine.ErrNotFound)
	}
	// Deactivated salesmen keep their record and history but offer no
	// future availability.
	if !sm.Active {
		return nil, nil
	}

	blocked, err := g.Calendar.Unavailability(ctx, salesmanID, from, to)
	if err != nil {
		return nil, err
	}

	occupied, err := g.occupiedIntervals(ctx, sm, from, to)
	if err != nil {
		return nil, err
	}

	kinds := []engine.BookingKind{kind}
	if kind == "" {
		kinds = []engine.BookingKind{engine.KindZoom, engine.KindInPerson}
	}

	var out []engine.Slot
	for _, k := range kinds {
		windows, err := g.Calendar.WorkingWindows(ctx, salesmanID, from, to, k)
		if err != nil {
			return nil, err
		}
		free := engine.SubtractIntervals(windows, blocked)
		free = engine.SubtractIntervals(free, occupied)

		origin := midnight(from, g.Config.Timezone)
		for _, iv := range engine.SliceOnGrid(free, g.Config.SlotWidth(), origin) {
			out = append(out, engine.Slot{
				SalesmanID: salesmanID,
				Start:      iv.Start,
				End:        iv.End,
				Kind:       k,
			})
		}
	}
	return out, nil
}

// occupiedIntervals returns the buffered intervals of every booking that
// holds the salesman's timeline. The fetch window is widened by the
// buffer so a booking just outside the range still shadows slots inside
// it.
func (g *Generator) occupiedIntervals(ctx context.Context, sm *engine.Salesman, from, to time.Time) ([]engine.Interval, error) {
	buffer := sm.Buffer(g.Config)
	widenedFrom := from.Add(-buffer)
	widenedTo := to.Add(buffer)

	bookings, err := g.Store.ListBookings(ctx, engine.BookingFilter{
		SalesmanID: &sm.ID,
		From:       &widenedFrom,
		To:         &widenedTo,
		Statuses:   []engine.BookingStatus{engine.StatusPending, engine.StatusConfirmed, engine.StatusCompleted},
	})
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	ivs := make([]engine.Interval, 0, len(bookings))
	for i := range bookings {
		ivs = append(ivs, bookings[i].BufferedInterval(buffer))
	}
	return engine.MergeIntervals(ivs), nil
}

// Covers reports whether the requested interval lies entirely within a
// generated slot run of the right kind. The booking manager calls this
// inside its critical section.
func (g *Generator) Covers(ctx context.Context, salesmanID engine.SalesmanID, start, end time.Time, kind engine.BookingKind) (bool, error) {
	generated, err := g.Generate(ctx, salesmanID, start, end.Add(g.Config.SlotWidth()), kind)
	if err != nil {
		return false, err
	}

	// Adjacent generated slots form a contiguous free run; the request
	// is valid when [start, end) is fully tiled by them.
	cursor := start
	for _, s := range generated {
		if s.Start.After(cursor) {
			break
		}
		if s.End.After(cursor) {
			cursor = s.End
		}
		if !cursor.Before(end) {
			return true, nil
		}
	}
	return !cursor.Before(end), nil
}

func midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
