package assignment

import "fmt"

// Status is the lifecycle state of an assignment.
type Status int

const (
	StatusUnset Status = iota
	StatusDraft
	StatusPlanned
	StatusInProgress
	StatusCompleted
	StatusCancelled
	StatusNotApplicable
)

var statusNames = map[Status]string{
	StatusUnset:         "",
	StatusDraft:         "Draft",
	StatusPlanned:       "Planned",
	StatusInProgress:    "InProgress",
	StatusCompleted:     "Completed",
	StatusCancelled:     "Cancelled",
	StatusNotApplicable: "NA",
}

// Selectable lists the statuses a user may pick for an editable row, in
// display order.
var Selectable = []Status{StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled, StatusDraft}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus maps a wire name to a Status. "NotApplicable" is accepted as
// an alias of "NA".
func ParseStatus(s string) (Status, error) {
	if s == "NotApplicable" {
		return StatusNotApplicable, nil
	}
	for st, n := range statusNames {
		if n == s {
			return st, nil
		}
	}
	return StatusUnset, fmt.Errorf("assignment: unknown status %q", s)
}

// Active reports whether the status takes part in overlap checks.
func (s Status) Active() bool {
	return s != StatusCancelled
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
