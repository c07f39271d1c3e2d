/*
events.go - Event emission toward external collaborators

PURPOSE:

	Every mutating operation emits events consumed by collaborators the
	engine does not own: email/reminder dispatch, payroll export, and the
	audit log. Delivery is at-least-once from the consumer's point of
	view; consumers dedupe by booking ID + status (or period start).

DESIGN:

	Emission is explicit - each mutating operation calls Emit itself, so
	correctness never depends on whether a listener is attached. A nil
	Emitter is valid and drops everything.
*/
package engine

import (
	"log"
	"sync"
	"time"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

type Event interface {
	EventName() string
}

// BookingConfirmed is consumed by email/reminder dispatch.
type BookingConfirmed struct {
	Booking Booking
}

func (BookingConfirmed) EventName() string { return "booking_confirmed" }

// BookingCancelled is consumed by email/reminder dispatch.
type BookingCancelled struct {
	Booking Booking
}

func (BookingCancelled) EventName() string { return "booking_cancelled" }

// PeriodFinalized is consumed by the payroll export/report collaborator.
type PeriodFinalized struct {
	Period            PayPeriod
	PerSalesmanTotals map[SalesmanID]Money
}

func (PeriodFinalized) EventName() string { return "period_finalized" }

// Mutation records a state transition for the audit log: the what-changed
// record, not the decision logic.
type Mutation struct {
	Entity    string // "booking", "block", "commission_entry", "adjustment", "pay_period", ...
	EntityID  string
	Action    string // "create", "confirm", "cancel", "complete", "finalize", "adjust", "delete"
	Actor     Actor
	Timestamp time.Time
	Before    map[string]string
	After     map[string]string
}

func (Mutation) EventName() string { return "mutation" }

// =============================================================================
// EMITTER
// =============================================================================

// Emitter receives events from mutating operations. Implementations
// must not block the caller for long; slow sinks should buffer.
type Emitter interface {
	Emit(e Event)
}

// Emit is a nil-safe helper so components don't have to check.
func Emit(em Emitter, e Event) {
	if em != nil {
		em.Emit(e)
	}
}

// MultiEmitter fans out to several sinks.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(e Event) {
	for _, em := range m {
		if em != nil {
			em.Emit(e)
		}
	}
}

// LogEmitter writes events to the process log. Used as the default sink
// in development and as the audit trail of last resort.
type LogEmitter struct{}

func (LogEmitter) Emit(e Event) {
	switch ev := e.(type) {
	case Mutation:
		log.Printf("[Event] %s %s %s by %s", ev.Action, ev.Entity, ev.EntityID, ev.Actor.ID)
	default:
		log.Printf("[Event] %s", e.EventName())
	}
}

// CollectingEmitter records events in order. Test helper; safe for
// concurrent emitters.
type CollectingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (c *CollectingEmitter) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// All returns a copy of the collected events.
func (c *CollectingEmitter) All() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Named returns the collected events with the given name.
func (c *CollectingEmitter) Named(name string) []Event {
	var out []Event
	for _, e := range c.All() {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}
