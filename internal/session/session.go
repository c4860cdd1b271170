// Package session keeps the open editors of the HTTP API, one per editing
// session, and expires the idle ones.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/robfig/cron/v3"
	"github.com/zulandar/assignyard/internal/editor"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// Session is one open editor. The editor is only reachable through Do,
// which serializes access.
type Session struct {
	ID             string
	InterventionID string

	mu       sync.Mutex
	ed       *editor.Editor
	closed   bool
	lastUsed time.Time
	history  []editor.HistoryEvent
	now      func() time.Time
}

// Do runs fn with exclusive access to the session's editor. Once the
// session is closed Do returns ErrNotFound without calling fn.
func (s *Session) Do(fn func(*editor.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: %s", ErrNotFound, s.ID)
	}
	s.lastUsed = s.now()
	return fn(s.ed)
}

// TakeHistory returns and clears the history requests fired since the last
// call.
func (s *Session) TakeHistory() []editor.HistoryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.history
	s.history = nil
	return out
}

// expire closes the session if it has not been used since cutoff. The
// check and the close happen under one lock, so a session in use is never
// expired.
func (s *Session) expire(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.lastUsed.Before(cutoff) {
		return false
	}
	s.shut()
	return true
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shut()
}

// shut closes the editor. Callers hold s.mu.
func (s *Session) shut() {
	if s.closed {
		return
	}
	s.closed = true
	s.ed.Close()
}

// Registry holds open sessions.
type Registry struct {
	sessions *xsync.Map[string, *Session]
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry returns a registry whose sessions expire after ttl without use.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		sessions: xsync.NewMap[string, *Session](),
		ttl:      ttl,
		now:      time.Now,
	}
}

// GenerateID creates a session ID in ses-xxxxxxxxxxxx format (12-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate ID: %w", err)
	}
	return "ses-" + hex.EncodeToString(b), nil
}

// Open creates an editor from opts and registers it under a new session.
// History requests fired by the editor are queued on the session.
func (r *Registry) Open(interventionID string, opts editor.Opts) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:             id,
		InterventionID: interventionID,
		lastUsed:       r.now(),
		now:            r.now,
	}
	onHistory := opts.OnHistory
	opts.OnHistory = func(ev editor.HistoryEvent) {
		// Runs inside Do, with s.mu held.
		s.history = append(s.history, ev)
		if onHistory != nil {
			onHistory(ev)
		}
	}
	s.ed = editor.New(opts)
	if _, loaded := r.sessions.LoadOrStore(id, s); loaded {
		s.ed.Close()
		return nil, fmt.Errorf("session: id collision on %s", id)
	}
	return s, nil
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.sessions.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Close removes the session and closes its editor.
func (r *Registry) Close(id string) error {
	s, ok := r.sessions.LoadAndDelete(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.close()
	return nil
}

// Commit runs fn with exclusive access to the session's editor and closes
// the session when fn succeeds, before the lock is released. Callers
// waiting on the same session then get ErrNotFound instead of editing a
// list that is already persisted. When fn fails the session stays open.
func (r *Registry) Commit(id string, fn func(*editor.Editor) error) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.lastUsed = s.now()
	if err := fn(s.ed); err != nil {
		s.mu.Unlock()
		return err
	}
	s.shut()
	s.mu.Unlock()
	r.remove(s)
	return nil
}

// remove drops s from the registry unless its id has been reused.
func (r *Registry) remove(s *Session) {
	r.sessions.Compute(s.ID, func(old *Session, loaded bool) (*Session, xsync.ComputeOp) {
		if loaded && old == s {
			return nil, xsync.DeleteOp
		}
		return old, xsync.CancelOp
	})
}

// Len returns the number of open sessions.
func (r *Registry) Len() int { return r.sessions.Size() }

// Sweep closes every session idle for longer than the TTL and returns how
// many were closed.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	var expired []*Session
	r.sessions.Range(func(_ string, s *Session) bool {
		if s.expire(cutoff) {
			expired = append(expired, s)
		}
		return true
	})
	for _, s := range expired {
		r.remove(s)
	}
	return len(expired)
}

// StartSweeper runs Sweep on a standard 5-field cron schedule until ctx is
// cancelled.
func (r *Registry) StartSweeper(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if n := r.Sweep(); n > 0 {
			log.Printf("session sweep: closed %d idle session(s), %d open", n, r.Len())
		}
	}); err != nil {
		return fmt.Errorf("session: sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}
