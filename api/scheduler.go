/*
scheduler.go - Background housekeeping scheduler

PURPOSE:

	Periodically sweeps the booking table and the period table:
	- Marks confirmed bookings whose end instant has passed as completed.
	  Commission is unaffected; the entry was created at confirmation.
	- Ensures a row exists for the current pay period so payroll screens
	  always have something to show.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Completed sweeps are idempotent; a missed tick is caught by the next
  - Start/Stop with a WaitGroup so shutdown drains the in-flight sweep

USAGE:

	scheduler := NewHousekeepingScheduler(store, cfg, mgr, proc)
	scheduler.Start()
	// ... later
	scheduler.Stop()

SEE ALSO:
  - booking/manager.go: Complete transition
  - payroll/processor.go: period rows
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/engine"
	"github.com/warp/booking-engine/payroll"
)

// HousekeepingScheduler completes past bookings and keeps the current
// period row present.
type HousekeepingScheduler struct {
	Store         engine.Store
	Config        engine.Config
	Bookings      *booking.Manager
	Payroll       *payroll.Processor
	CheckInterval time.Duration
	Enabled       bool
	Now           engine.Clock

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewHousekeepingScheduler creates a new scheduler.
func NewHousekeepingScheduler(store engine.Store, cfg engine.Config, mgr *booking.Manager, proc *payroll.Processor) *HousekeepingScheduler {
	return &HousekeepingScheduler{
		Store:         store,
		Config:        cfg,
		Bookings:      mgr,
		Payroll:       proc,
		CheckInterval: 15 * time.Minute,
		Enabled:       true,
		Now:           time.Now,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (hs *HousekeepingScheduler) Start() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if !hs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	hs.ticker = time.NewTicker(hs.CheckInterval)
	hs.wg.Add(1)

	go hs.run()

	log.Printf("[Scheduler] Started with check interval: %v", hs.CheckInterval)
}

// Stop stops the scheduler and waits for the in-flight sweep.
func (hs *HousekeepingScheduler) Stop() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.ticker != nil {
		hs.ticker.Stop()
		close(hs.stop)
		hs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (hs *HousekeepingScheduler) run() {
	defer hs.wg.Done()

	// Run immediately on start
	hs.sweep()

	for {
		select {
		case <-hs.ticker.C:
			hs.sweep()
		case <-hs.stop:
			return
		}
	}
}

func (hs *HousekeepingScheduler) sweep() {
	ctx := context.Background()
	now := hs.Now()

	completed := hs.completePastBookings(ctx, now)
	hs.ensureCurrentPeriod(ctx, now)

	if completed > 0 {
		log.Printf("[Scheduler] Completed %d past bookings", completed)
	}
}

// completePastBookings transitions confirmed bookings whose end has
// passed to completed. The lookback window is generous; the sweep is
// idempotent so re-scanning already-completed ranges is harmless.
func (hs *HousekeepingScheduler) completePastBookings(ctx context.Context, now time.Time) int {
	from := now.AddDate(0, 0, -30)
	bookings, err := hs.Store.ListBookings(ctx, engine.BookingFilter{
		From:     &from,
		To:       &now,
		Statuses: []engine.BookingStatus{engine.StatusConfirmed},
	})
	if err != nil {
		log.Printf("[Scheduler] Error listing bookings: %v", err)
		return 0
	}

	count := 0
	for i := range bookings {
		b := &bookings[i]
		if b.End.After(now) {
			continue
		}
		if _, err := hs.Bookings.Complete(ctx, b.ID, engine.SystemActor); err != nil {
			log.Printf("[Scheduler] Error completing booking %s: %v", b.ID, err)
			continue
		}
		count++
	}
	return count
}

// ensureCurrentPeriod creates the open row for the period containing
// now, if absent.
func (hs *HousekeepingScheduler) ensureCurrentPeriod(ctx context.Context, now time.Time) {
	period := engine.PeriodFor(now, hs.Config.Timezone)
	stored, err := hs.Store.GetPeriod(ctx, period.Start)
	if err != nil {
		log.Printf("[Scheduler] Error loading period: %v", err)
		return
	}
	if stored != nil {
		return
	}
	period.CreatedAt = now
	if err := hs.Store.SavePeriod(ctx, &period); err != nil {
		log.Printf("[Scheduler] Error creating period row: %v", err)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (hs *HousekeepingScheduler) RunNow() {
	hs.sweep()
}
