package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Notify(_ context.Context, e Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestFormat_Saved(t *testing.T) {
	f := Format(Event{Kind: KindSaved, InterventionID: "int-1", Saved: 3, Deleted: 1})
	if f.Title != "Assignments saved for int-1" {
		t.Errorf("Title = %q", f.Title)
	}
	if f.Body != "3 row(s) saved, 1 deleted." {
		t.Errorf("Body = %q", f.Body)
	}
	if f.Color != "#36a64f" {
		t.Errorf("Color = %q, want #36a64f", f.Color)
	}
	if len(f.Fields) != 2 {
		t.Errorf("len(Fields) = %d, want 2", len(f.Fields))
	}
}

func TestFormat_SavedWithCancelled(t *testing.T) {
	f := Format(Event{Kind: KindSaved, InterventionID: "int-1", Saved: 2, Cancelled: 1})
	if f.Color != "#e8a317" {
		t.Errorf("Color = %q, want #e8a317", f.Color)
	}
	last := f.Fields[len(f.Fields)-1]
	if last.Name != "Cancelled" || last.Value != "1" {
		t.Errorf("last field = %+v, want Cancelled=1", last)
	}
}

func TestFormat_HistoryRequested(t *testing.T) {
	f := Format(Event{Kind: KindHistoryRequested, InterventionID: "int-1", Status: "Planned"})
	if !strings.Contains(f.Body, "unsaved row") || !strings.Contains(f.Body, "Planned") {
		t.Errorf("Body = %q", f.Body)
	}
}

func TestMulti_TriesAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a, b, c := &recorder{}, &recorder{err: boom}, &recorder{}
	err := Multi{a, b, c}.Notify(context.Background(), Event{Kind: KindSaved})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if len(a.got) != 1 || len(b.got) != 1 || len(c.got) != 1 {
		t.Errorf("deliveries = %d/%d/%d, want 1 each", len(a.got), len(b.got), len(c.got))
	}
}

func TestMulti_Empty(t *testing.T) {
	if err := (Multi{}).Notify(context.Background(), Event{}); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestSend_SwallowsErrors(t *testing.T) {
	r := &recorder{err: errors.New("down")}
	Send(context.Background(), r, Event{Kind: KindSaved, InterventionID: "int-1"})
	Send(context.Background(), nil, Event{})
	if len(r.got) != 1 {
		t.Errorf("deliveries = %d, want 1", len(r.got))
	}
	if err := (Nop{}).Notify(context.Background(), Event{}); err != nil {
		t.Errorf("Nop = %v", err)
	}
}
