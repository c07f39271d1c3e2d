/*
rates.go - Commission rate history and resolution

PURPOSE:

	The commission rate is not a mutable global. It is an append-only
	history of timestamped RateRecords, and EffectiveRate is a pure
	function of (salesman, kind, instant) over that history. Entries
	snapshot the resolved rate at confirmation time, so later records
	never retroactively alter existing entries.

RESOLUTION ORDER (most specific wins):
 1. salesman + kind
 2. salesman
 3. kind (e.g. zoom vs in-person defaults)
 4. global
 5. deployment default from Config
    Within each tier, the latest record with EffectiveFrom <= instant wins.
*/
package engine

import (
	"sort"
	"time"
)

// RateRecord is one immutable entry in the rate history.
type RateRecord struct {
	ID            string
	SalesmanID    *SalesmanID  // nil = applies to all salesmen
	Kind          *BookingKind // nil = applies to all kinds
	Rate          Money
	EffectiveFrom time.Time
	CreatedBy     string
	CreatedAt     time.Time
}

// RateSchedule resolves effective rates over a record history.
type RateSchedule struct {
	records []RateRecord
	def     Money
}

// NewRateSchedule builds a schedule over the given history. The records
// slice is copied and sorted; def is the deployment default rate.
func NewRateSchedule(records []RateRecord, def Money) *RateSchedule {
	rs := &RateSchedule{records: append([]RateRecord(nil), records...), def: def}
	sort.Slice(rs.records, func(i, j int) bool {
		return rs.records[i].EffectiveFrom.Before(rs.records[j].EffectiveFrom)
	})
	return rs
}

// EffectiveRate resolves the rate for a salesman and booking kind at an
// instant. Pure: the same inputs always yield the same rate.
func (rs *RateSchedule) EffectiveRate(salesmanID SalesmanID, kind BookingKind, at time.Time) Money {
	type match struct {
		found bool
		rate  Money
	}
	var bySalesmanKind, bySalesman, byKind, global match

	for _, r := range rs.records {
		if r.EffectiveFrom.After(at) {
			break
		}
		matchesSalesman := r.SalesmanID != nil && *r.SalesmanID == salesmanID
		matchesKind := r.Kind != nil && *r.Kind == kind
		switch {
		case r.SalesmanID != nil && r.Kind != nil:
			if matchesSalesman && matchesKind {
				bySalesmanKind = match{true, r.Rate}
			}
		case r.SalesmanID != nil:
			if matchesSalesman {
				bySalesman = match{true, r.Rate}
			}
		case r.Kind != nil:
			if matchesKind {
				byKind = match{true, r.Rate}
			}
		default:
			global = match{true, r.Rate}
		}
	}

	for _, m := range []match{bySalesmanKind, bySalesman, byKind, global} {
		if m.found {
			return m.rate
		}
	}
	return rs.def
}
