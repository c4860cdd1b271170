package assignment

import (
	"time"

	"github.com/zulandar/assignyard/internal/clock"
)

// Range is a half-open [Start, End) interval used for overlap checks. Its
// bounds may fall outside the day when derived from a workload.
type Range struct {
	Start clock.Time
	End   clock.Time
}

// Overlaps reports whether a and b intersect. Touching ends do not.
func (a Range) Overlaps(b Range) bool {
	return max(a.Start, b.Start) < min(a.End, b.End)
}

// EffectiveRange returns the slot a row occupies for overlap checks. A
// missing bound is derived from the other bound and a non-zero workload, and
// otherwise defaults to the day boundary.
func EffectiveRange(r *Row) Range {
	start, hasStart := r.PlannedStartTime.Get()
	end, hasEnd := r.PlannedEndTime.Get()
	workload, hasWorkload := r.PlannedWorkload.Get()
	hasWorkload = hasWorkload && workload != 0

	rg := Range{Start: clock.StartOfDay, End: clock.EndOfDay}
	switch {
	case hasStart:
		rg.Start = start
	case hasWorkload && hasEnd:
		rg.Start = end.Offset(-workload)
	}
	switch {
	case hasEnd:
		rg.End = end
	case hasWorkload && hasStart:
		rg.End = start.Offset(workload)
	}
	return rg
}

// Collide reports whether a and b claim the same resource on the same day:
// same non-empty date, same resource (or neither has one), neither
// cancelled.
func Collide(a, b *Row) bool {
	if !activeRow(a) || !activeRow(b) {
		return false
	}
	if !a.PlannedDate.Valid || !b.PlannedDate.Valid || !sameDay(a.PlannedDate.Value, b.PlannedDate.Value) {
		return false
	}
	switch {
	case a.Resource.Valid && b.Resource.Valid:
		return a.Resource.Value.ID == b.Resource.Value.ID
	case !a.Resource.Valid && !b.Resource.Valid:
		return true
	}
	return false
}

// ValidateOverlaps flags every pair of colliding rows whose effective ranges
// intersect with OverlappingError on the planned date, and clears the flag
// on every other row. It reports whether any overlap was found.
func ValidateOverlaps(rows []*Row) bool {
	flagged := make([]bool, len(rows))
	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			if !Collide(rows[i], rows[j]) {
				continue
			}
			if EffectiveRange(rows[i]).Overlaps(EffectiveRange(rows[j])) {
				flagged[i] = true
				flagged[j] = true
			}
		}
	}
	found := false
	for i, r := range rows {
		r.PlannedDate.mark(OverlappingError, flagged[i])
		found = found || flagged[i]
	}
	return found
}

// ValidateRange flags the start time with RangeError when both ends are set
// and start is not before end, and clears it otherwise. It reports whether
// the range is valid.
func ValidateRange(r *Row) bool {
	start, hasStart := r.PlannedStartTime.Get()
	end, hasEnd := r.PlannedEndTime.Get()
	bad := hasStart && hasEnd && start >= end
	r.PlannedStartTime.mark(RangeError, bad)
	return !bad
}

func activeRow(r *Row) bool {
	st, _ := r.Status.Get()
	return st.Active()
}

func sameDay(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}
