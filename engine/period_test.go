package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/engine"
)

// 2024-06-07 is a Friday.
var friday = time.Date(2024, time.June, 7, 0, 0, 0, 0, time.UTC)

// =============================================================================
// BOUNDARY MATH
// =============================================================================

func TestPeriodFor_FridayStartsItsOwnPeriod(t *testing.T) {
	// GIVEN: An instant on Friday morning
	// WHEN: Resolving its pay period
	// THEN: The period starts that same Friday at midnight

	p := engine.PeriodFor(friday.Add(9*time.Hour), time.UTC)

	assert.Equal(t, friday, p.Start)
	assert.Equal(t, friday.AddDate(0, 0, 7).Add(-time.Nanosecond), p.End)
	assert.Equal(t, engine.PeriodStatusOpen, p.Status)
}

func TestPeriodFor_MidWeekRollsBackToFriday(t *testing.T) {
	// GIVEN: Instants on every day of the Jun 07 - Jun 13 period
	// WHEN: Resolving their pay periods
	// THEN: All resolve to the period starting Friday Jun 07

	for d := 0; d < 7; d++ {
		instant := friday.AddDate(0, 0, d).Add(12 * time.Hour)
		p := engine.PeriodFor(instant, time.UTC)
		assert.Equal(t, friday, p.Start, "day offset %d", d)
	}
}

func TestPeriodFor_ThursdayNightVsFridayMorning(t *testing.T) {
	// GIVEN: The last nanosecond of Thursday and the first of Friday
	// WHEN: Resolving pay periods
	// THEN: They land in adjacent periods

	thursdayNight := friday.AddDate(0, 0, 7).Add(-time.Nanosecond)
	fridayMorning := friday.AddDate(0, 0, 7)

	assert.Equal(t, friday, engine.PeriodFor(thursdayNight, time.UTC).Start)
	assert.Equal(t, friday.AddDate(0, 0, 7), engine.PeriodFor(fridayMorning, time.UTC).Start)
}

func TestPeriodFor_BusinessTimezone(t *testing.T) {
	// GIVEN: An instant that is Thursday evening in New York but already
	//        Friday in UTC
	// WHEN: Resolving with the business timezone
	// THEN: The period is computed on the New York wall clock

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-06-14 01:00 UTC = 2024-06-13 21:00 EDT (a Thursday).
	instant := time.Date(2024, time.June, 14, 1, 0, 0, 0, time.UTC)
	p := engine.PeriodFor(instant, ny)

	assert.Equal(t, time.Date(2024, time.June, 7, 0, 0, 0, 0, ny), p.Start)
}

// =============================================================================
// CONTAINS / NEIGHBORS
// =============================================================================

func TestPayPeriod_Contains(t *testing.T) {
	p := engine.PeriodFor(friday, time.UTC)

	assert.True(t, p.Contains(p.Start), "period start is inside")
	assert.True(t, p.Contains(p.End), "period end is inside")
	assert.False(t, p.Contains(p.Start.Add(-time.Nanosecond)))
	assert.False(t, p.Contains(p.End.Add(time.Nanosecond)))
}

func TestPayPeriod_NextAndPrevious(t *testing.T) {
	p := engine.PeriodFor(friday, time.UTC)

	next := p.Next()
	assert.Equal(t, friday.AddDate(0, 0, 7), next.Start)
	assert.Equal(t, p.End.Add(time.Nanosecond), next.Start, "periods tile with no gap")

	prev := p.Previous()
	assert.Equal(t, friday.AddDate(0, 0, -7), prev.Start)
}

func TestPayPeriod_Label(t *testing.T) {
	p := engine.PeriodFor(friday, time.UTC)
	assert.Equal(t, "Week of Jun 07 - Jun 13, 2024", p.Label())
}
