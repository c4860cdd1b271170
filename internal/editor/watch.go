package editor

import (
	"context"
	"fmt"

	"github.com/zulandar/assignyard/internal/assignment"
)

// scope is the observation of field edits over one composition of the row
// list. It is cancelled and replaced whenever rows are added or removed, so
// an edit routed through an older scope never reaches a removed row.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	rows   map[*assignment.Row]struct{}
}

func (s *scope) accepts(r *assignment.Row) bool {
	if s.ctx.Err() != nil {
		return false
	}
	_, ok := s.rows[r]
	return ok
}

// rewatch cancels the current scope and subscribes a fresh one to the
// current rows.
func (e *Editor) rewatch() {
	if e.scope != nil {
		e.scope.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &scope{ctx: ctx, cancel: cancel, rows: make(map[*assignment.Row]struct{}, len(e.rows))}
	for _, r := range e.rows {
		s.rows[r] = struct{}{}
	}
	e.scope = s
}

// Handle addresses one row through the scope that was current when the
// handle was taken.
type Handle struct {
	e     *Editor
	row   *assignment.Row
	scope *scope
}

// Handle returns a handle on the row at index. It goes stale as soon as the
// row set changes.
func (e *Editor) Handle(index int) (Handle, error) {
	if err := e.check(index); err != nil {
		return Handle{}, err
	}
	return Handle{e: e, row: e.rows[index], scope: e.scope}, nil
}

// Stale reports whether the handle's scope has been replaced.
func (h Handle) Stale() bool {
	return h.scope == nil || !h.scope.accepts(h.row)
}

// Apply writes c into the row and runs the edit pipeline.
func (h Handle) Apply(c assignment.Change) error {
	if h.Stale() {
		return ErrStaleRow
	}
	if h.e.readOnly {
		return fmt.Errorf("%w: editing is disabled", ErrReadOnly)
	}
	if !h.row.Editable(c.Field) {
		return fmt.Errorf("%w: field %s is disabled", ErrReadOnly, c.Field)
	}
	if err := h.row.Apply(c); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	h.e.onFieldChanged(h.row, c.Field)
	return nil
}
