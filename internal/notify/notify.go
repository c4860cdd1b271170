// Package notify forwards assignment events to chat platforms.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Kind identifies an event.
type Kind string

const (
	KindSaved            Kind = "saved"
	KindHistoryRequested Kind = "history_requested"
)

// Event describes something that happened to the assignments of one
// intervention.
type Event struct {
	Kind           Kind
	InterventionID string
	AssignmentID   string // history requests only
	Status         string // history requests only
	Saved          int
	Deleted        int
	Cancelled      int
}

// Field is one key/value line of a formatted event.
type Field struct {
	Name  string
	Value string
	Short bool
}

// FormattedEvent is the platform-neutral rendering of an Event.
type FormattedEvent struct {
	Title  string
	Body   string
	Color  string // hex, e.g. "#36a64f"
	Fields []Field
}

// Format renders e for posting.
func Format(e Event) FormattedEvent {
	switch e.Kind {
	case KindSaved:
		f := FormattedEvent{
			Title: fmt.Sprintf("Assignments saved for %s", e.InterventionID),
			Body:  fmt.Sprintf("%d row(s) saved, %d deleted.", e.Saved, e.Deleted),
			Color: "#36a64f",
			Fields: []Field{
				{Name: "Saved", Value: fmt.Sprint(e.Saved), Short: true},
				{Name: "Deleted", Value: fmt.Sprint(e.Deleted), Short: true},
			},
		}
		if e.Cancelled > 0 {
			f.Color = "#e8a317"
			f.Fields = append(f.Fields, Field{Name: "Cancelled", Value: fmt.Sprint(e.Cancelled), Short: true})
		}
		return f
	case KindHistoryRequested:
		id := e.AssignmentID
		if id == "" {
			id = "unsaved row"
		}
		return FormattedEvent{
			Title: fmt.Sprintf("History requested on %s", e.InterventionID),
			Body:  fmt.Sprintf("Assignment %s (%s)", id, e.Status),
			Color: "#439fe0",
		}
	}
	return FormattedEvent{Title: string(e.Kind), Body: e.InterventionID}
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Multi fans an event out to every notifier. All notifiers are tried; their
// errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Send notifies n and logs a failure instead of returning it.
func Send(ctx context.Context, n Notifier, e Event) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, e); err != nil {
		log.Printf("notify: %s on %s: %v", e.Kind, e.InterventionID, err)
	}
}
