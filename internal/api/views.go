package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/assignyard/internal/assignment"
	"github.com/zulandar/assignyard/internal/editor"
	"github.com/zulandar/assignyard/internal/session"
)

// fieldView is the JSON form of one field: nil value when unset.
type fieldView struct {
	Value    any      `json:"value"`
	Editable bool     `json:"editable"`
	Errors   []string `json:"errors,omitempty"`
}

func fieldOf[T any](f assignment.Field[T]) fieldView {
	v := fieldView{Editable: f.Editable, Errors: f.Errors.Names()}
	if f.Valid {
		v.Value = f.Value
	}
	return v
}

func dateField(f assignment.Field[time.Time]) fieldView {
	v := fieldOf(f)
	if f.Valid {
		v.Value = f.Value.Format(time.DateOnly)
	}
	return v
}

type rowView struct {
	ID                   *uuid.UUID        `json:"id"`
	InitStatus           assignment.Status `json:"initStatus"`
	PlannedDate          fieldView         `json:"plannedDate"`
	PlannedStartTime     fieldView         `json:"plannedStartTime"`
	PlannedEndTime       fieldView         `json:"plannedEndTime"`
	PlannedWorkload      fieldView         `json:"plannedWorkload"`
	Resource             fieldView         `json:"resource"`
	ResourceCompany      fieldView         `json:"resourceCompany"`
	Status               fieldView         `json:"status"`
	CountOfInterventions fieldView         `json:"countOfInterventions"`
}

func rowOf(r assignment.Row) rowView {
	return rowView{
		ID:                   r.ID,
		InitStatus:           r.InitStatus,
		PlannedDate:          dateField(r.PlannedDate),
		PlannedStartTime:     fieldOf(r.PlannedStartTime),
		PlannedEndTime:       fieldOf(r.PlannedEndTime),
		PlannedWorkload:      fieldOf(r.PlannedWorkload),
		Resource:             fieldOf(r.Resource),
		ResourceCompany:      fieldOf(r.ResourceCompany),
		Status:               fieldOf(r.Status),
		CountOfInterventions: fieldOf(r.CountOfInterventions),
	}
}

type sessionView struct {
	Session         string          `json:"session"`
	Intervention    string          `json:"intervention"`
	Columns         []string        `json:"columns"`
	CanAddNew       bool            `json:"can_add_new"`
	Managed         bool            `json:"managed"`
	Invalid         bool            `json:"invalid"`
	Overlapping     bool            `json:"overlapping"`
	Empty           bool            `json:"empty"`
	Deleted         []uuid.UUID     `json:"deleted"`
	Rows            []rowView       `json:"rows"`
	ResourceCompany *editor.Company `json:"resource_company"`
}

// viewOf renders the session. It must run inside Session.Do.
func viewOf(s *session.Session, e *editor.Editor) sessionView {
	rows := e.Rows()
	v := sessionView{
		Session:         s.ID,
		Intervention:    s.InterventionID,
		Columns:         e.Columns(),
		CanAddNew:       e.CanAddNew(),
		Managed:         e.Managed(),
		Invalid:         e.Invalid(),
		Overlapping:     e.Overlapping(),
		Empty:           e.IsEmpty(),
		Deleted:         e.DeletedIDs(),
		Rows:            make([]rowView, len(rows)),
		ResourceCompany: e.Context().ResourceCompany,
	}
	if v.Deleted == nil {
		v.Deleted = []uuid.UUID{}
	}
	for i, r := range rows {
		v.Rows[i] = rowOf(r)
	}
	return v
}
