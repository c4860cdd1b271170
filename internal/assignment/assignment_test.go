package assignment

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/assignyard/internal/clock"
)

func TestParseStatus(t *testing.T) {
	for _, st := range []Status{StatusDraft, StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled, StatusNotApplicable} {
		got, err := ParseStatus(st.String())
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", st, err)
		}
		if got != st {
			t.Errorf("ParseStatus(%q) = %v, want %v", st.String(), got, st)
		}
	}
	if got, _ := ParseStatus("NotApplicable"); got != StatusNotApplicable {
		t.Errorf("NotApplicable alias = %v", got)
	}
	if _, err := ParseStatus("Archived"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestStatus_JSON(t *testing.T) {
	b, err := json.Marshal(StatusInProgress)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"InProgress"` {
		t.Errorf("marshal = %s", b)
	}
	var st Status
	if err := json.Unmarshal([]byte(`"Cancelled"`), &st); err != nil || st != StatusCancelled {
		t.Errorf("unmarshal = %v, %v", st, err)
	}
}

func TestFromAssignment_DropsLegacyZeroID(t *testing.T) {
	zero := uuid.Nil
	r := FromAssignment(Assignment{ID: &zero, Status: StatusPlanned})
	if r.ID != nil {
		t.Errorf("ID = %v, want nil", r.ID)
	}
	if r.InitStatus != StatusPlanned {
		t.Errorf("InitStatus = %v, want Planned", r.InitStatus)
	}
}

func TestFromAssignment_RoundTrip(t *testing.T) {
	id := uuid.New()
	date := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	start := clock.MustParse("08:00")
	workload := 4.0
	in := Assignment{
		ID:               &id,
		PlannedDate:      &date,
		PlannedStartTime: &start,
		PlannedWorkload:  &workload,
		Resource:         &Ref{ID: "res-1", Name: "Ada"},
		Status:           StatusInProgress,
	}
	out := FromAssignment(in).Assignment()
	if out.ID == nil || *out.ID != id {
		t.Errorf("ID = %v, want %v", out.ID, id)
	}
	if out.PlannedEndTime != nil {
		t.Errorf("PlannedEndTime = %v, want nil", out.PlannedEndTime)
	}
	if out.PlannedStartTime == nil || *out.PlannedStartTime != start {
		t.Errorf("PlannedStartTime = %v", out.PlannedStartTime)
	}
	if out.Resource == nil || out.Resource.Name != "Ada" {
		t.Errorf("Resource = %+v", out.Resource)
	}
	if out.Status != StatusInProgress || out.InitStatus != StatusInProgress {
		t.Errorf("Status = %v / %v", out.Status, out.InitStatus)
	}
}

func TestNewRow_Defaults(t *testing.T) {
	r := NewRow()
	if r.Status.Value != StatusDraft {
		t.Errorf("status = %v, want Draft", r.Status.Value)
	}
	if r.Status.Editable || r.CountOfInterventions.Editable {
		t.Error("status and counter should start disabled")
	}
	if !r.PlannedDate.Editable || !r.PlannedWorkload.Editable {
		t.Error("inputs should start enabled")
	}
}

func TestRowApply_RejectsNonFiniteWorkload(t *testing.T) {
	for _, h := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.5} {
		r := NewRow()
		if err := r.Apply(SetWorkload(h)); err == nil {
			t.Errorf("Apply(SetWorkload(%v)) succeeded, want error", h)
		}
		if r.PlannedWorkload.Valid {
			t.Errorf("workload set to %v after rejected edit", r.PlannedWorkload.Value)
		}
	}
}

func TestParseChange(t *testing.T) {
	tests := []struct {
		field     FieldName
		value     string
		wantErase bool
		wantErr   string
	}{
		{FieldPlannedDate, "2026-03-02", false, ""},
		{FieldPlannedDate, "02/03/2026", false, "invalid date"},
		{FieldPlannedStartTime, "09:00", false, ""},
		{FieldPlannedEndTime, "", true, ""},
		{FieldPlannedWorkload, "2.5", false, ""},
		{FieldPlannedWorkload, "-1", false, "invalid workload"},
		{FieldPlannedWorkload, "NaN", false, "invalid workload"},
		{FieldPlannedWorkload, "Inf", false, "invalid workload"},
		{FieldPlannedWorkload, "+Inf", false, "invalid workload"},
		{FieldPlannedWorkload, "-Inf", false, "invalid workload"},
		{FieldResource, "res-9", false, ""},
		{FieldStatus, "Planned", false, ""},
		{FieldStatus, "", false, "cannot be erased"},
		{"color", "red", false, "unknown field"},
		{"color", "", false, "unknown field"},
	}
	for _, tt := range tests {
		t.Run(string(tt.field)+"="+tt.value, func(t *testing.T) {
			c, err := ParseChange(tt.field, tt.value)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Erases() != tt.wantErase {
				t.Errorf("Erases = %v, want %v", c.Erases(), tt.wantErase)
			}
			if err := NewRow().Apply(c); err != nil {
				t.Errorf("Apply: %v", err)
			}
		})
	}
}

func TestApply(t *testing.T) {
	r := NewRow()
	if err := r.Apply(SetWorkload(3)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !r.PlannedWorkload.Valid || r.PlannedWorkload.Value != 3 {
		t.Errorf("workload = %+v", r.PlannedWorkload)
	}
	if err := r.Apply(Erase(FieldPlannedWorkload)); err != nil {
		t.Fatalf("Apply erase: %v", err)
	}
	if r.PlannedWorkload.Valid {
		t.Error("workload should be erased")
	}
	if err := r.Apply(Change{Field: FieldPlannedWorkload, value: "three"}); err == nil {
		t.Error("expected type mismatch error")
	}
}

func TestErrors_Names(t *testing.T) {
	e := RangeError | OverlappingError
	if got := e.String(); got != "range,overlapping" {
		t.Errorf("String = %q", got)
	}
	if Errors(0).Has(0) {
		t.Error("empty set should not report Has(0)")
	}
}
