// Package editor manages the ordered list of assignment rows attached to one
// intervention: loading, per-field edits with reconciliation, row
// insert/delete, and the value handed back to the host on save.
//
// An Editor is not safe for concurrent use. Every operation runs to
// completion (edit, reconcile, derive status, validate, refresh) before the
// next one starts; callers sharing an editor across goroutines serialize
// access themselves.
package editor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zulandar/assignyard/internal/assignment"
)

var (
	ErrIndexOutOfRange = errors.New("editor: row index out of range")
	ErrStaleRow        = errors.New("editor: row is no longer part of the editor")
	ErrReadOnly        = errors.New("editor: read-only")
	ErrNoLookup        = errors.New("editor: no resource lookup configured")
)

// Column names, in display order.
const (
	ColumnDateResource = "date_resource"
	ColumnTimeRange    = "time_range"
	ColumnStatus       = "status"
	ColumnAction       = "action"
)

// Company is the company owning the assigned resources.
type Company struct {
	assignment.Ref
	DefaultIntervener *assignment.Ref `json:"defaultIntervener,omitempty"`
}

// Job is the job an intervention belongs to.
type Job struct {
	ID                   string
	ClosedForOperations  bool
	BlockedForTimesheets bool
}

// Context is the data the host supplies around the row list.
type Context struct {
	Site             *assignment.Ref
	Project          *assignment.Ref
	Job              *Job
	Resource         *assignment.Ref // intervener contact of an external company
	ResourceCompany  *Company
	ManagedCompanyID string
	AdvancedPlanning bool
}

// HistoryEvent is fired when the user asks for the history of a row.
type HistoryEvent struct {
	Index      int
	Assignment assignment.Assignment
}

// Opts holds parameters for creating an Editor.
type Opts struct {
	Context   Context
	Data      []assignment.Assignment
	Lookup    ResourceLookup
	OnRefresh func(rows []assignment.Row)
	OnHistory func(HistoryEvent)
}

// Editor edits an in-memory list of assignment rows.
type Editor struct {
	ctx       Context
	rows      []*assignment.Row
	deleted   []uuid.UUID
	managed   bool
	readOnly  bool
	scope     *scope
	lookup    ResourceLookup
	onRefresh func([]assignment.Row)
	onHistory func(HistoryEvent)
}

// New loads opts.Data into a new editor. Missing data yields a single blank
// Draft row carrying the context resource and company.
func New(opts Opts) *Editor {
	e := &Editor{
		ctx:       opts.Context,
		lookup:    opts.Lookup,
		onRefresh: opts.OnRefresh,
		onHistory: opts.OnHistory,
	}
	e.managed = isManaged(e.ctx)
	e.readOnly = jobInvalid(e.ctx.Job, e.managed)

	if len(opts.Data) == 0 {
		r := assignment.NewRow()
		r.Resource.SetPtr(e.ctx.Resource)
		r.ResourceCompany.SetPtr(companyRef(e.ctx.ResourceCompany))
		e.rows = []*assignment.Row{r}
	} else {
		for _, a := range opts.Data {
			e.rows = append(e.rows, assignment.FromAssignment(a))
		}
	}
	for _, r := range e.rows {
		assignment.DeriveStatus(r)
		if e.readOnly {
			r.SetEditable(false)
		}
	}

	e.rewatch()
	e.refresh()
	return e
}

// Close ends the editor's observation scope. Handles taken before Close
// become stale.
func (e *Editor) Close() {
	if e.scope != nil {
		e.scope.cancel()
	}
}

// Len returns the number of rows.
func (e *Editor) Len() int { return len(e.rows) }

// Managed reports whether the resource company is the managed company.
func (e *Editor) Managed() bool { return e.managed }

// CanAddNew reports whether rows may be added, deleted or edited.
func (e *Editor) CanAddNew() bool { return !e.readOnly }

// Context returns the current host context.
func (e *Editor) Context() Context { return e.ctx }

// Columns returns the visible columns. Status shows only under advanced
// planning for the managed company; the action column follows advanced
// planning alone.
func (e *Editor) Columns() []string {
	cols := []string{ColumnDateResource, ColumnTimeRange}
	if e.ctx.AdvancedPlanning {
		if e.managed {
			cols = append(cols, ColumnStatus)
		}
		cols = append(cols, ColumnAction)
	}
	return cols
}

// Rows returns a copy of every row, including field state and errors.
func (e *Editor) Rows() []assignment.Row {
	out := make([]assignment.Row, len(e.rows))
	for i, r := range e.rows {
		out[i] = *r.Clone()
	}
	return out
}

// Apply edits one field of the row at index.
func (e *Editor) Apply(index int, c assignment.Change) error {
	h, err := e.Handle(index)
	if err != nil {
		return err
	}
	return h.Apply(c)
}

// onFieldChanged runs the reactive pipeline for one edit: reconcile the
// time family, derive status, validate every row, refresh the view.
func (e *Editor) onFieldChanged(r *assignment.Row, field assignment.FieldName) {
	if field != assignment.FieldStatus {
		switch field {
		case assignment.FieldResource:
			if !r.Resource.Valid {
				r.CountOfInterventions.Set(0)
			}
		case assignment.FieldPlannedDate:
		default:
			assignment.Reconcile(r, field)
		}
		if e.ctx.AdvancedPlanning && e.managed {
			assignment.DeriveStatus(r)
		}
	}
	e.refresh()
}

// AddRow inserts a row after index, cloning the resource, intervention
// counter, workload and time range of the row at index. Date and status are
// not copied.
func (e *Editor) AddRow(after int) error {
	if err := e.check(after); err != nil {
		return err
	}
	if e.readOnly {
		return fmt.Errorf("%w: cannot add rows", ErrReadOnly)
	}
	prev := e.rows[after]
	r := assignment.NewRow()
	copyValue(&r.Resource, prev.Resource)
	copyValue(&r.CountOfInterventions, prev.CountOfInterventions)
	copyValue(&r.PlannedWorkload, prev.PlannedWorkload)
	copyValue(&r.PlannedStartTime, prev.PlannedStartTime)
	copyValue(&r.PlannedEndTime, prev.PlannedEndTime)

	e.rows = append(e.rows, nil)
	copy(e.rows[after+2:], e.rows[after+1:])
	e.rows[after+1] = r

	e.rewatch()
	e.refresh()
	return nil
}

// DeleteRow removes the row at index. Under the managed company a row that
// was loaded InProgress or Completed is cancelled in place instead. Removing
// the last row leaves one blank row behind.
func (e *Editor) DeleteRow(index int) error {
	if err := e.check(index); err != nil {
		return err
	}
	if e.readOnly {
		return fmt.Errorf("%w: cannot delete rows", ErrReadOnly)
	}
	r := e.rows[index]
	if e.managed && (r.InitStatus == assignment.StatusInProgress || r.InitStatus == assignment.StatusCompleted) {
		r.Status.Set(assignment.StatusCancelled)
		e.refresh()
		return nil
	}

	if r.ID != nil {
		e.deleted = append(e.deleted, *r.ID)
	}
	e.rows = append(e.rows[:index], e.rows[index+1:]...)
	if len(e.rows) == 0 {
		e.rows = []*assignment.Row{assignment.NewRow()}
	}
	e.rewatch()
	e.refresh()
	return nil
}

// DeletedIDs returns the ids of persisted rows removed so far.
func (e *Editor) DeletedIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), e.deleted...)
}

// Value returns the rows as they should be saved. Rows of an external
// company take the context resource; every row takes the context company;
// status is NotApplicable outside the managed company and defaults to Draft
// inside it.
func (e *Editor) Value() []assignment.Assignment {
	out := make([]assignment.Assignment, len(e.rows))
	for i, r := range e.rows {
		a := r.Assignment()
		if !e.managed {
			a.Resource = cloneRef(e.ctx.Resource)
		}
		a.ResourceCompany = cloneRef(companyRef(e.ctx.ResourceCompany))
		switch {
		case !e.managed:
			a.Status = assignment.StatusNotApplicable
		case a.Status == assignment.StatusUnset:
			a.Status = assignment.StatusDraft
		}
		out[i] = a
	}
	return out
}

// IsEmpty reports whether the editor holds a single row with nothing
// planned on it.
func (e *Editor) IsEmpty() bool {
	if len(e.rows) != 1 {
		return false
	}
	r := e.rows[0]
	return !(r.PlannedDate.Valid || r.PlannedStartTime.Valid || r.PlannedWorkload.Valid ||
		(r.Resource.Valid && e.managed))
}

// Invalid reports whether any row carries a validation error.
func (e *Editor) Invalid() bool {
	for _, r := range e.rows {
		if r.Invalid() {
			return true
		}
	}
	return false
}

// Overlapping reports whether any two rows collide.
func (e *Editor) Overlapping() bool {
	for _, r := range e.rows {
		if r.PlannedDate.Errors.Has(assignment.OverlappingError) {
			return true
		}
	}
	return false
}

// RequestHistory fires a history event for the row at index.
func (e *Editor) RequestHistory(index int) error {
	if err := e.check(index); err != nil {
		return err
	}
	if e.onHistory != nil {
		e.onHistory(HistoryEvent{Index: index, Assignment: e.rows[index].Assignment()})
	}
	return nil
}

// SetResourceCompany switches the company owning the resources. The managed
// company assigns its default intervener to every row, resetting the
// intervention counter to 0 when it has none; any other company empties the
// resource and intervention counter of every row.
func (e *Editor) SetResourceCompany(c *Company) {
	wasReadOnly := e.readOnly
	e.ctx.ResourceCompany = c
	e.managed = isManaged(e.ctx)
	e.readOnly = jobInvalid(e.ctx.Job, e.managed)

	for _, r := range e.rows {
		r.ResourceCompany.SetPtr(companyRef(c))
		if e.managed {
			r.Resource.SetPtr(c.DefaultIntervener)
			if !r.Resource.Valid {
				r.CountOfInterventions.Set(0)
			}
		} else {
			r.Resource.Clear()
			r.CountOfInterventions.Clear()
		}
		if e.ctx.AdvancedPlanning && e.managed {
			assignment.DeriveStatus(r)
		}
	}
	e.applyAccess(wasReadOnly)
	e.refresh()
}

// SetJob switches the job. A job closed for operations, or blocked for
// timesheets under the managed company, makes the editor read-only.
func (e *Editor) SetJob(j *Job) {
	wasReadOnly := e.readOnly
	e.ctx.Job = j
	e.readOnly = jobInvalid(j, e.managed)
	e.applyAccess(wasReadOnly)
	e.refresh()
}

func (e *Editor) applyAccess(wasReadOnly bool) {
	switch {
	case e.readOnly:
		for _, r := range e.rows {
			r.SetEditable(false)
		}
	case wasReadOnly:
		for _, r := range e.rows {
			r.SetEditable(true)
			assignment.DeriveStatus(r)
		}
	}
}

// refresh re-validates every row and pushes the view.
func (e *Editor) refresh() {
	for _, r := range e.rows {
		assignment.ValidateRange(r)
	}
	assignment.ValidateOverlaps(e.rows)
	if e.onRefresh != nil {
		e.onRefresh(e.Rows())
	}
}

func (e *Editor) check(index int) error {
	if index < 0 || index >= len(e.rows) {
		return fmt.Errorf("%w: %d (have %d rows)", ErrIndexOutOfRange, index, len(e.rows))
	}
	return nil
}

func isManaged(ctx Context) bool {
	return ctx.ResourceCompany != nil && ctx.ResourceCompany.ID == ctx.ManagedCompanyID
}

func jobInvalid(j *Job, managed bool) bool {
	return j != nil && (j.ClosedForOperations || (j.BlockedForTimesheets && managed))
}

func companyRef(c *Company) *assignment.Ref {
	if c == nil {
		return nil
	}
	return &c.Ref
}

func cloneRef(r *assignment.Ref) *assignment.Ref {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func copyValue[T any](dst *assignment.Field[T], src assignment.Field[T]) {
	dst.Value = src.Value
	dst.Valid = src.Valid
}
