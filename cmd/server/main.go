/*
main.go - Application entry point

PURPOSE:

	Initializes and starts the booking and payroll engine server. Handles
	configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
 1. Parse command-line flags
 2. Initialize SQLite store
 3. Wire domain components (calendar, slots, booking, commission, payroll)
 4. Configure HTTP router and housekeeping scheduler
 5. Start server with graceful shutdown

COMMAND-LINE FLAGS:

	-port          HTTP server port (default: 8080)
	-db            SQLite database path (default: bookings.db)
	               Use ":memory:" for in-memory database
	-tz            Business timezone (default: America/New_York)
	-slot-minutes  Slot granularity (default: 30)
	-buffer        Default buffer minutes between bookings (default: 15)
	-rate          Default commission rate (default: 50.00)
	-min-advance   Minimum booking advance, hours (default: 2)
	-max-advance   Maximum booking advance, days (default: 90)

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM:
	1. Stop accepting new connections
	2. Wait for active requests to complete (30s timeout)
	3. Stop the housekeeping scheduler
	4. Close database connection
	5. Exit

EXAMPLES:

	# Run with file database
	./server -db="./data/bookings.db"

	# Run in UTC with hour-long slots
	./server -tz=UTC -slot-minutes=60

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/booking-engine/api"
	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/calendar"
	"github.com/warp/booking-engine/commission"
	"github.com/warp/booking-engine/engine"
	"github.com/warp/booking-engine/payroll"
	"github.com/warp/booking-engine/slots"
	"github.com/warp/booking-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "bookings.db", "SQLite database path")
	tzName := flag.String("tz", "America/New_York", "business timezone")
	slotMinutes := flag.Int("slot-minutes", 30, "slot granularity in minutes")
	bufferMinutes := flag.Int("buffer", 15, "default buffer minutes between bookings")
	defaultRate := flag.String("rate", "50.00", "default commission rate")
	minAdvance := flag.Int("min-advance", 2, "minimum booking advance in hours")
	maxAdvance := flag.Int("max-advance", 90, "maximum booking advance in days")
	flag.Parse()

	loc, err := time.LoadLocation(*tzName)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", *tzName, err)
	}

	cfg := engine.Config{
		Timezone:              loc,
		SlotMinutes:           *slotMinutes,
		DefaultBufferMinutes:  *bufferMinutes,
		DefaultCommissionRate: engine.MustParseMoney(*defaultRate),
		MinAdvanceHours:       *minAdvance,
		MaxAdvanceDays:        *maxAdvance,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Events: process log is the audit trail of last resort; external
	// consumers (email dispatch, payroll export) subscribe upstream.
	emitter := engine.MultiEmitter{engine.LogEmitter{}}

	// Wire domain components
	cal := calendar.NewService(store, cfg, emitter)
	gen := slots.NewGenerator(cal, store, cfg)
	proc := payroll.NewProcessor(store, cfg, emitter)
	ledger := commission.NewLedger(store, cfg, proc, emitter)
	mgr := booking.NewManager(store, cfg, gen, ledger, proc, emitter)

	handler := api.NewHandler(store, cfg, cal, gen, mgr, ledger, proc)
	router := api.NewRouter(handler)

	scheduler := api.NewHousekeepingScheduler(store, cfg, mgr, proc)
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
