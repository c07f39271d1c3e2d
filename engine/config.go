package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// CONFIG - Deployment configuration supplied by the operator
// =============================================================================

// Config carries the deployment-level knobs the engine needs. Loaded
// once at startup (flags in cmd/server) and passed explicitly; there is
// no mutable global configuration.
type Config struct {
	// Timezone is the single business timezone. All inputs are assumed
	// normalized to it before reaching the engine.
	Timezone *time.Location

	// SlotMinutes is the slot granularity for generated slots.
	SlotMinutes int

	// DefaultBufferMinutes applies to salesmen without an override.
	DefaultBufferMinutes int

	// DefaultCommissionRate applies when no rate record matches.
	DefaultCommissionRate Money

	// MinAdvanceHours rejects bookings starting sooner than this.
	MinAdvanceHours int

	// MaxAdvanceDays rejects bookings starting further out than this.
	MaxAdvanceDays int
}

// DefaultConfig mirrors the shipped deployment defaults.
func DefaultConfig() Config {
	return Config{
		Timezone:              time.UTC,
		SlotMinutes:           30,
		DefaultBufferMinutes:  15,
		DefaultCommissionRate: MustParseMoney("50.00"),
		MinAdvanceHours:       2,
		MaxAdvanceDays:        90,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Timezone == nil {
		return fmt.Errorf("config: timezone is required")
	}
	if c.SlotMinutes <= 0 {
		return fmt.Errorf("config: slot granularity must be positive, got %d", c.SlotMinutes)
	}
	if c.DefaultBufferMinutes < 0 {
		return fmt.Errorf("config: default buffer must not be negative, got %d", c.DefaultBufferMinutes)
	}
	if c.DefaultCommissionRate.IsNegative() {
		return fmt.Errorf("config: default commission rate must not be negative")
	}
	return nil
}

// SlotWidth returns the slot granularity as a duration.
func (c Config) SlotWidth() time.Duration {
	return time.Duration(c.SlotMinutes) * time.Minute
}

// Clock abstracts time.Now so tests can pin the current instant.
type Clock func() time.Time
