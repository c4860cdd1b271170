package assignment

import "github.com/zulandar/assignyard/internal/clock"

// Reconcile recomputes the time fields that depend on the one just edited,
// so that end = start + workload holds whenever all three can be derived.
// The edited field is never rewritten, and the start time is only derived
// when the start itself was erased. Computed times that leave the day fall
// back to clock.EndOfDay. Reconcile returns the fields whose value changed.
//
//	workload set    -> end = start + workload        (needs start)
//	workload erased -> workload = end - start        (needs start, end; cleared if <= 0)
//	start set       -> end = start + workload        (needs workload)
//	start erased    -> start = end - workload        (needs end, workload)
//	end set         -> workload = end - start        (needs start; cleared if <= 0)
//	end erased      -> end = start + workload        (needs start, workload)
func Reconcile(r *Row, edited FieldName) []FieldName {
	start, hasStart := r.PlannedStartTime.Get()
	end, hasEnd := r.PlannedEndTime.Get()
	workload, hasWorkload := r.PlannedWorkload.Get()

	before := *r
	switch edited {
	case FieldPlannedWorkload:
		if hasWorkload {
			if hasStart {
				r.PlannedEndTime.Set(endOf(start, workload))
			}
		} else if hasStart && hasEnd {
			setDuration(r, start, end)
		}
	case FieldPlannedStartTime:
		if hasStart {
			if hasWorkload {
				r.PlannedEndTime.Set(endOf(start, workload))
			}
		} else if hasEnd && hasWorkload {
			s, ok := end.SubHours(workload)
			if !ok {
				s = clock.EndOfDay
			}
			r.PlannedStartTime.Set(s)
		}
	case FieldPlannedEndTime:
		if hasEnd {
			if hasStart {
				setDuration(r, start, end)
			}
		} else if hasStart && hasWorkload {
			r.PlannedEndTime.Set(endOf(start, workload))
		}
	}
	return changed(&before, r)
}

func endOf(start clock.Time, workload float64) clock.Time {
	e, ok := start.AddHours(workload)
	if !ok {
		return clock.EndOfDay
	}
	return e
}

func setDuration(r *Row, start, end clock.Time) {
	if d := clock.Hours(start, end); d > 0 {
		r.PlannedWorkload.Set(d)
		return
	}
	r.PlannedWorkload.Clear()
}

func changed(before, after *Row) []FieldName {
	var out []FieldName
	if before.PlannedStartTime.Value != after.PlannedStartTime.Value || before.PlannedStartTime.Valid != after.PlannedStartTime.Valid {
		out = append(out, FieldPlannedStartTime)
	}
	if before.PlannedEndTime.Value != after.PlannedEndTime.Value || before.PlannedEndTime.Valid != after.PlannedEndTime.Valid {
		out = append(out, FieldPlannedEndTime)
	}
	if before.PlannedWorkload.Value != after.PlannedWorkload.Value || before.PlannedWorkload.Valid != after.PlannedWorkload.Valid {
		out = append(out, FieldPlannedWorkload)
	}
	return out
}
