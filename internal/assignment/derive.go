package assignment

// HasSlot reports whether r carries enough data to be a real scheduled
// slot: a resource, a date, and a workload or both ends of the time range.
// A zero workload does not count.
func HasSlot(r *Row) bool {
	if !r.Resource.Valid || !r.PlannedDate.Valid {
		return false
	}
	start := r.PlannedStartTime.Valid
	end := r.PlannedEndTime.Valid
	workload := r.PlannedWorkload.Valid && r.PlannedWorkload.Value != 0
	return (start && end) || (start && workload) || (end && workload) || workload
}

// DeriveStatus sets the status editability of r. A row holding a real slot
// gets an editable status, promoted from Draft (or unset) to Planned. Any
// other row is forced back to Draft, Cancelled excepted, and locked.
func DeriveStatus(r *Row) {
	st, ok := r.Status.Get()
	if HasSlot(r) {
		r.Status.Editable = true
		if !ok || st == StatusUnset || st == StatusDraft {
			r.Status.Set(StatusPlanned)
		}
		return
	}
	if st != StatusCancelled {
		r.Status.Set(StatusDraft)
	}
	r.Status.Editable = false
}
