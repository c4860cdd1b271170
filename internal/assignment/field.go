package assignment

import "strings"

// Errors is the set of validation errors attached to a field.
type Errors uint8

const (
	// RangeError marks a start time that is not before the end time.
	RangeError Errors = 1 << iota
	// OverlappingError marks a row colliding with another row.
	OverlappingError
)

// Has reports whether all of e are set.
func (s Errors) Has(e Errors) bool { return s&e == e && e != 0 }

// Names returns the wire names of the set errors.
func (s Errors) Names() []string {
	var names []string
	if s.Has(RangeError) {
		names = append(names, "range")
	}
	if s.Has(OverlappingError) {
		names = append(names, "overlapping")
	}
	return names
}

func (s Errors) String() string { return strings.Join(s.Names(), ",") }

// Field is one editable value of a row. Valid is false when the value is
// empty; Editable mirrors the enabled state of the input.
type Field[T any] struct {
	Value    T
	Valid    bool
	Editable bool
	Errors   Errors
}

// Get returns the value and whether it is present.
func (f Field[T]) Get() (T, bool) { return f.Value, f.Valid }

// Set stores v and marks the field present.
func (f *Field[T]) Set(v T) {
	f.Value = v
	f.Valid = true
}

// Clear empties the field.
func (f *Field[T]) Clear() {
	var zero T
	f.Value = zero
	f.Valid = false
}

// SetPtr stores *p, or clears the field when p is nil.
func (f *Field[T]) SetPtr(p *T) {
	if p == nil {
		f.Clear()
		return
	}
	f.Set(*p)
}

// Ptr returns a pointer to a copy of the value, or nil when empty.
func (f Field[T]) Ptr() *T {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

func (f *Field[T]) mark(e Errors, on bool) {
	if on {
		f.Errors |= e
	} else {
		f.Errors &^= e
	}
}
