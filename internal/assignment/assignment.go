// Package assignment holds the pure business rules for planned assignment
// rows: time/workload reconciliation, status derivation, and the overlap and
// time-range validators. Nothing here performs I/O.
package assignment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/assignyard/internal/clock"
)

// Ref is an opaque reference to a resource or company.
type Ref struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Assignment is one scheduled occurrence of work as exchanged with the host.
// A nil ID means the assignment has not been persisted yet.
type Assignment struct {
	ID                   *uuid.UUID  `json:"id"`
	PlannedDate          *time.Time  `json:"plannedDate"`
	PlannedStartTime     *clock.Time `json:"plannedStartTime"`
	PlannedEndTime       *clock.Time `json:"plannedEndTime"`
	PlannedWorkload      *float64    `json:"plannedWorkload"`
	Resource             *Ref        `json:"resource"`
	ResourceCompany      *Ref        `json:"resourceCompany"`
	Status               Status      `json:"status"`
	InitStatus           Status      `json:"initStatus"`
	CountOfInterventions *int        `json:"countOfInterventions"`
}

// FieldName identifies an edited field.
type FieldName string

const (
	FieldPlannedDate      FieldName = "plannedDate"
	FieldPlannedStartTime FieldName = "plannedStartTime"
	FieldPlannedEndTime   FieldName = "plannedEndTime"
	FieldPlannedWorkload  FieldName = "plannedWorkload"
	FieldResource         FieldName = "resource"
	FieldStatus           FieldName = "status"
)

// Row is the editable form of an Assignment.
type Row struct {
	ID                   *uuid.UUID
	PlannedDate          Field[time.Time]
	PlannedStartTime     Field[clock.Time]
	PlannedEndTime       Field[clock.Time]
	PlannedWorkload      Field[float64]
	Resource             Field[Ref]
	ResourceCompany      Field[Ref]
	CountOfInterventions Field[int]
	Status               Field[Status]
	InitStatus           Status
}

// NewRow returns a blank row: every input enabled except status and the
// intervention counter, status Draft.
func NewRow() *Row {
	r := &Row{}
	r.SetEditable(true)
	r.Status.Set(StatusDraft)
	return r
}

// FromAssignment builds a row from a. The legacy all-zero id is dropped.
func FromAssignment(a Assignment) *Row {
	r := NewRow()
	if a.ID != nil && *a.ID != uuid.Nil {
		id := *a.ID
		r.ID = &id
	}
	r.PlannedDate.SetPtr(a.PlannedDate)
	r.PlannedStartTime.SetPtr(a.PlannedStartTime)
	r.PlannedEndTime.SetPtr(a.PlannedEndTime)
	r.PlannedWorkload.SetPtr(a.PlannedWorkload)
	r.Resource.SetPtr(a.Resource)
	r.ResourceCompany.SetPtr(a.ResourceCompany)
	r.CountOfInterventions.SetPtr(a.CountOfInterventions)
	if a.Status != StatusUnset {
		r.Status.Set(a.Status)
	}
	r.InitStatus = a.Status
	return r
}

// Assignment returns the raw values of r, including disabled fields.
func (r *Row) Assignment() Assignment {
	a := Assignment{
		PlannedDate:          r.PlannedDate.Ptr(),
		PlannedStartTime:     r.PlannedStartTime.Ptr(),
		PlannedEndTime:       r.PlannedEndTime.Ptr(),
		PlannedWorkload:      r.PlannedWorkload.Ptr(),
		Resource:             r.Resource.Ptr(),
		ResourceCompany:      r.ResourceCompany.Ptr(),
		CountOfInterventions: r.CountOfInterventions.Ptr(),
		InitStatus:           r.InitStatus,
	}
	if r.ID != nil {
		id := *r.ID
		a.ID = &id
	}
	if st, ok := r.Status.Get(); ok {
		a.Status = st
	}
	return a
}

// Clone returns a deep copy of r.
func (r *Row) Clone() *Row {
	c := *r
	if r.ID != nil {
		id := *r.ID
		c.ID = &id
	}
	return &c
}

// SetEditable toggles every user input of the row. Status is left disabled;
// its editability is owned by DeriveStatus.
func (r *Row) SetEditable(on bool) {
	r.PlannedDate.Editable = on
	r.PlannedStartTime.Editable = on
	r.PlannedEndTime.Editable = on
	r.PlannedWorkload.Editable = on
	r.Resource.Editable = on
	r.ResourceCompany.Editable = on
	r.CountOfInterventions.Editable = false
	r.Status.Editable = false
}

// Editable reports whether the given field accepts user input.
func (r *Row) Editable(f FieldName) bool {
	switch f {
	case FieldPlannedDate:
		return r.PlannedDate.Editable
	case FieldPlannedStartTime:
		return r.PlannedStartTime.Editable
	case FieldPlannedEndTime:
		return r.PlannedEndTime.Editable
	case FieldPlannedWorkload:
		return r.PlannedWorkload.Editable
	case FieldResource:
		return r.Resource.Editable
	case FieldStatus:
		return r.Status.Editable
	}
	return false
}

// Invalid reports whether any field of r carries a validation error.
func (r *Row) Invalid() bool {
	return r.PlannedDate.Errors != 0 || r.PlannedStartTime.Errors != 0
}

// Change is a single user edit. A nil value erases the field.
type Change struct {
	Field FieldName
	value any
}

// SetDate sets the planned date.
func SetDate(d time.Time) Change { return Change{Field: FieldPlannedDate, value: d} }

// SetStartTime sets the planned start time.
func SetStartTime(t clock.Time) Change { return Change{Field: FieldPlannedStartTime, value: t} }

// SetEndTime sets the planned end time.
func SetEndTime(t clock.Time) Change { return Change{Field: FieldPlannedEndTime, value: t} }

// SetWorkload sets the planned workload in hours.
func SetWorkload(h float64) Change { return Change{Field: FieldPlannedWorkload, value: h} }

// SetResource assigns a resource.
func SetResource(ref Ref) Change { return Change{Field: FieldResource, value: ref} }

// SetStatus sets the status.
func SetStatus(s Status) Change { return Change{Field: FieldStatus, value: s} }

// Erase empties f.
func Erase(f FieldName) Change { return Change{Field: f} }

// Erases reports whether the change empties its field.
func (c Change) Erases() bool { return c.value == nil }

// ParseChange builds a change from a field name and its text form, as sent
// by forms and edit scripts. An empty value erases the field. Dates use
// YYYY-MM-DD, times HH:MM, workload decimal hours, resource its id.
func ParseChange(field FieldName, value string) (Change, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if field == FieldStatus {
			return Change{}, fmt.Errorf("assignment: status cannot be erased")
		}
		if !knownField(field) {
			return Change{}, fmt.Errorf("assignment: unknown field %q", field)
		}
		return Erase(field), nil
	}
	switch field {
	case FieldPlannedDate:
		d, err := time.Parse(time.DateOnly, value)
		if err != nil {
			return Change{}, fmt.Errorf("assignment: invalid date %q: %w", value, err)
		}
		return SetDate(d), nil
	case FieldPlannedStartTime, FieldPlannedEndTime:
		t, err := clock.Parse(value)
		if err != nil {
			return Change{}, err
		}
		return Change{Field: field, value: t}, nil
	case FieldPlannedWorkload:
		h, err := strconv.ParseFloat(value, 64)
		if err != nil || !validWorkload(h) {
			return Change{}, fmt.Errorf("assignment: invalid workload %q", value)
		}
		return SetWorkload(h), nil
	case FieldResource:
		return SetResource(Ref{ID: value}), nil
	case FieldStatus:
		st, err := ParseStatus(value)
		if err != nil {
			return Change{}, err
		}
		return SetStatus(st), nil
	}
	return Change{}, fmt.Errorf("assignment: unknown field %q", field)
}

func knownField(f FieldName) bool {
	switch f {
	case FieldPlannedDate, FieldPlannedStartTime, FieldPlannedEndTime,
		FieldPlannedWorkload, FieldResource, FieldStatus:
		return true
	}
	return false
}

// Apply writes the change into r without any reconciliation.
func (r *Row) Apply(c Change) error {
	if !knownField(c.Field) {
		return fmt.Errorf("assignment: unknown field %q", c.Field)
	}
	var ok bool
	switch c.Field {
	case FieldPlannedDate:
		ok = applyValue(&r.PlannedDate, c.value)
	case FieldPlannedStartTime:
		ok = applyValue(&r.PlannedStartTime, c.value)
	case FieldPlannedEndTime:
		ok = applyValue(&r.PlannedEndTime, c.value)
	case FieldPlannedWorkload:
		if h, isFloat := c.value.(float64); isFloat && !validWorkload(h) {
			return fmt.Errorf("assignment: invalid workload %v", h)
		}
		ok = applyValue(&r.PlannedWorkload, c.value)
	case FieldResource:
		ok = applyValue(&r.Resource, c.value)
	case FieldStatus:
		ok = applyValue(&r.Status, c.value)
	}
	if !ok {
		return fmt.Errorf("assignment: value %v does not fit field %q", c.value, c.Field)
	}
	return nil
}

// validWorkload reports whether h is a finite, non-negative number of hours.
func validWorkload(h float64) bool {
	return h >= 0 && !math.IsNaN(h) && !math.IsInf(h, 0)
}

func applyValue[T any](f *Field[T], v any) bool {
	if v == nil {
		f.Clear()
		return true
	}
	t, ok := v.(T)
	if !ok {
		return false
	}
	f.Set(t)
	return true
}
