package engine

import "time"

// =============================================================================
// PAY PERIOD MATH - Friday 00:00 through Thursday 23:59:59 (business tz)
// =============================================================================

// PeriodFor returns the pay period containing t, in the given business
// timezone. Periods always start on a Friday at midnight and end just
// before the following Friday; End is the last representable instant of
// Thursday so that Contains is a simple range check.
func PeriodFor(t time.Time, loc *time.Location) PayPeriod {
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	// Days since the most recent Friday.
	sinceFriday := (int(day.Weekday()) - int(time.Friday) + 7) % 7
	start := day.AddDate(0, 0, -sinceFriday)
	return PayPeriod{
		Start:  start,
		End:    start.AddDate(0, 0, 7).Add(-time.Nanosecond),
		Status: PeriodStatusOpen,
	}
}

// Contains reports whether t falls inside the period.
func (p PayPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Next returns the following period.
func (p PayPeriod) Next() PayPeriod {
	start := p.Start.AddDate(0, 0, 7)
	return PayPeriod{
		Start:  start,
		End:    start.AddDate(0, 0, 7).Add(-time.Nanosecond),
		Status: PeriodStatusOpen,
	}
}

// Previous returns the preceding period.
func (p PayPeriod) Previous() PayPeriod {
	start := p.Start.AddDate(0, 0, -7)
	return PayPeriod{
		Start:  start,
		End:    start.AddDate(0, 0, 7).Add(-time.Nanosecond),
		Status: PeriodStatusOpen,
	}
}

// Label renders the period the way payroll screens show it,
// e.g. "Week of Jun 07 - Jun 13, 2024".
func (p PayPeriod) Label() string {
	return "Week of " + p.Start.Format("Jan 02") + " - " + p.End.Format("Jan 02, 2006")
}
