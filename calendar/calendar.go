/*
Package calendar is the durable record of salesman availability: the
weekly working-hours template, one-off date overrides, unavailability
blocks, and company holidays.

PURPOSE:

	Pure read model for the slot generator plus the block/holiday
	mutations. Reads never raise business errors; block mutations enforce
	the no-self-overlap invariant and fail with ConflictError otherwise.

SEE ALSO:
  - slots/generator.go: consumes WorkingWindows and Unavailability
*/
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/booking-engine/engine"
)

// Service exposes the calendar read model and block mutations.
type Service struct {
	Store   engine.Store
	Config  engine.Config
	Emitter engine.Emitter
	NewID   engine.IDGenerator
	Now     engine.Clock
}

func NewService(store engine.Store, cfg engine.Config, em engine.Emitter) *Service {
	return &Service{
		Store:   store,
		Config:  cfg,
		Emitter: em,
		NewID:   engine.NewID,
		Now:     time.Now,
	}
}

// =============================================================================
// WORKING WINDOWS - Weekly template expanded over a date range
// =============================================================================

// WorkingWindows expands the salesman's weekly template across
// [from, to) in the business timezone, applies date overrides, skips
// holidays, and returns a merged, sorted interval list. Windows of a
// specific kind can be selected with kind != ""; the zero value selects
// all kinds.
func (s *Service) WorkingWindows(ctx context.Context, salesmanID engine.SalesmanID, from, to time.Time, kind engine.BookingKind) ([]engine.Interval, error) {
	sm, err := s.Store.GetSalesman(ctx, salesmanID)
	if err != nil {
		return nil, fmt.Errorf("load salesman: %w", err)
	}
	if sm == nil {
		return nil, fmt.Errorf("salesman %s: %w", salesmanID, engine.ErrNotFound)
	}

	holidays, err := s.Store.ListHolidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}

	loc := s.Config.Timezone
	var out []engine.Interval

	for day := startOfDay(from, loc); day.Before(to); day = day.AddDate(0, 0, 1) {
		if isHoliday(holidays, day) {
			continue
		}
		for _, w := range windowsForDate(sm, day) {
			if kind != "" && w.Kind != kind {
				continue
			}
			iv := engine.Interval{
				Start: day.Add(time.Duration(w.StartMin) * time.Minute),
				End:   day.Add(time.Duration(w.EndMin) * time.Minute),
			}
			// Clip to the requested range.
			if iv.Start.Before(from) {
				iv.Start = from
			}
			if iv.End.After(to) {
				iv.End = to
			}
			if !iv.IsZero() {
				out = append(out, iv)
			}
		}
	}
	return engine.MergeIntervals(out), nil
}

// windowsForDate returns the override windows when one exists for the
// date, otherwise the weekly template windows for that weekday.
func windowsForDate(sm *engine.Salesman, day time.Time) []engine.WorkingWindow {
	for _, ov := range sm.Overrides {
		if sameDate(ov.Date, day) {
			return ov.Windows
		}
	}
	var out []engine.WorkingWindow
	for _, w := range sm.Template {
		if w.Weekday == day.Weekday() {
			out = append(out, w)
		}
	}
	return out
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func isHoliday(holidays []engine.Holiday, day time.Time) bool {
	for _, h := range holidays {
		if h.Matches(day) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// =============================================================================
// UNAVAILABILITY
// =============================================================================

// Unavailability returns merged block intervals overlapping [from, to).
func (s *Service) Unavailability(ctx context.Context, salesmanID engine.SalesmanID, from, to time.Time) ([]engine.Interval, error) {
	blocks, err := s.Store.ListBlocks(ctx, salesmanID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	ivs := make([]engine.Interval, 0, len(blocks))
	for _, b := range blocks {
		ivs = append(ivs, b.Interval())
	}
	return engine.MergeIntervals(ivs), nil
}

// AddBlock records a new unavailability block. Overlap with an existing
// active block for the same salesman is rejected with ConflictError.
func (s *Service) AddBlock(ctx context.Context, salesmanID engine.SalesmanID, start, end time.Time, reason string, actor engine.Actor) (*engine.UnavailabilityBlock, error) {
	if !start.Before(end) {
		return nil, &engine.ValidationError{Field: "end", Message: "must be after start"}
	}
	sm, err := s.Store.GetSalesman(ctx, salesmanID)
	if err != nil {
		return nil, err
	}
	if sm == nil {
		return nil, fmt.Errorf("salesman %s: %w", salesmanID, engine.ErrNotFound)
	}

	existing, err := s.Store.ListBlocks(ctx, salesmanID, start, end)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, &engine.ConflictError{
			SalesmanID: salesmanID,
			Start:      start,
			End:        end,
			Reason:     "overlapping_block",
		}
	}

	block := &engine.UnavailabilityBlock{
		ID:         engine.BlockID(s.NewID()),
		SalesmanID: salesmanID,
		Start:      start,
		End:        end,
		Reason:     reason,
		CreatedBy:  actor.ID,
		CreatedAt:  s.Now(),
	}
	if err := s.Store.AddBlock(ctx, block); err != nil {
		return nil, err
	}

	engine.Emit(s.Emitter, engine.Mutation{
		Entity:    "block",
		EntityID:  string(block.ID),
		Action:    "create",
		Actor:     actor,
		Timestamp: block.CreatedAt,
		After: map[string]string{
			"salesman": string(salesmanID),
			"start":    start.Format(time.RFC3339),
			"end":      end.Format(time.RFC3339),
			"reason":   reason,
		},
	})
	return block, nil
}

// RemoveBlock deletes a block by ID.
func (s *Service) RemoveBlock(ctx context.Context, id engine.BlockID, actor engine.Actor) error {
	block, err := s.Store.GetBlock(ctx, id)
	if err != nil {
		return err
	}
	if block == nil {
		return fmt.Errorf("block %s: %w", id, engine.ErrNotFound)
	}
	if err := s.Store.DeleteBlock(ctx, id); err != nil {
		return err
	}

	engine.Emit(s.Emitter, engine.Mutation{
		Entity:    "block",
		EntityID:  string(id),
		Action:    "delete",
		Actor:     actor,
		Timestamp: s.Now(),
		Before: map[string]string{
			"salesman": string(block.SalesmanID),
			"start":    block.Start.Format(time.RFC3339),
			"end":      block.End.Format(time.RFC3339),
		},
	})
	return nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (s *Service) AddHoliday(ctx context.Context, name string, date time.Time, recurring bool, actor engine.Actor) (*engine.Holiday, error) {
	if name == "" {
		return nil, &engine.ValidationError{Field: "name", Message: "is required"}
	}
	h := &engine.Holiday{
		ID:        s.NewID(),
		Name:      name,
		Date:      startOfDay(date, s.Config.Timezone),
		Recurring: recurring,
		CreatedAt: s.Now(),
	}
	if err := s.Store.AddHoliday(ctx, h); err != nil {
		return nil, err
	}
	engine.Emit(s.Emitter, engine.Mutation{
		Entity:    "holiday",
		EntityID:  h.ID,
		Action:    "create",
		Actor:     actor,
		Timestamp: h.CreatedAt,
		After:     map[string]string{"name": name, "date": h.Date.Format("2006-01-02")},
	})
	return h, nil
}

func (s *Service) RemoveHoliday(ctx context.Context, id string, actor engine.Actor) error {
	if err := s.Store.DeleteHoliday(ctx, id); err != nil {
		return err
	}
	engine.Emit(s.Emitter, engine.Mutation{
		Entity:    "holiday",
		EntityID:  id,
		Action:    "delete",
		Actor:     actor,
		Timestamp: s.Now(),
	})
	return nil
}
