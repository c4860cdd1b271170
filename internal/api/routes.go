package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/assignyard/internal/assignment"
	"github.com/zulandar/assignyard/internal/editor"
	"github.com/zulandar/assignyard/internal/notify"
	"github.com/zulandar/assignyard/internal/session"
	"github.com/zulandar/assignyard/internal/store"
)

// errInvalid refuses a save while rows carry validation errors.
var errInvalid = errors.New("api: assignments have validation errors")

// registerRoutes sets up all API routes on the Gin router.
func (s *server) registerRoutes(router *gin.Engine) {
	api := router.Group("/api")

	api.POST("/interventions/:id/sessions", s.handleOpen)
	api.GET("/resources", s.handleResources)

	sess := api.Group("/sessions/:sid")
	sess.GET("", s.handleView)
	sess.DELETE("", s.handleDiscard)
	sess.PUT("/company", s.handleCompany)
	sess.POST("/save", s.handleSave)
	sess.GET("/interveners", s.handleInterveners)
	sess.PATCH("/rows/:index", s.handleEdit)
	sess.POST("/rows/:index/after", s.handleAddRow)
	sess.DELETE("/rows/:index", s.handleDeleteRow)
	sess.POST("/rows/:index/history", s.handleHistory)
}

// writeError maps err to a status code and a JSON body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var bad badRequest
	switch {
	case errors.As(err, &bad):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, editor.ErrIndexOutOfRange):
		status = http.StatusNotFound
	case errors.Is(err, editor.ErrStaleRow),
		errors.Is(err, editor.ErrReadOnly):
		status = http.StatusConflict
	case errors.Is(err, errInvalid):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func badRequestf(format string, args ...any) error {
	return badRequest{fmt.Errorf(format, args...)}
}

// withSession runs fn on the session named in the path and answers with the
// session view.
func (s *server) withSession(c *gin.Context, status int, fn func(*editor.Editor) error) {
	sess, err := s.opts.Sessions.Get(c.Param("sid"))
	if err != nil {
		writeError(c, err)
		return
	}
	var view sessionView
	err = sess.Do(func(e *editor.Editor) error {
		if err := fn(e); err != nil {
			return err
		}
		view = viewOf(sess, e)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, view)
}

func rowIndex(c *gin.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, badRequestf("api: invalid row index %q", c.Param("index"))
	}
	return i, nil
}

func (s *server) handleOpen(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	iv, err := s.opts.Store.Intervention(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := s.opts.Store.Load(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	sess, err := s.opts.Sessions.Open(id, editor.Opts{
		Context: store.EditorContext(iv, s.opts.ManagedCompanyID, s.opts.AdvancedPlanning),
		Data:    data,
		Lookup:  s.opts.Lookup,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	var view sessionView
	_ = sess.Do(func(e *editor.Editor) error {
		view = viewOf(sess, e)
		return nil
	})
	c.JSON(http.StatusCreated, view)
}

func (s *server) handleView(c *gin.Context) {
	s.withSession(c, http.StatusOK, func(*editor.Editor) error { return nil })
}

func (s *server) handleDiscard(c *gin.Context) {
	if err := s.opts.Sessions.Close(c.Param("sid")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type editRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// parseEdit turns a JSON edit into a change. Null, missing and empty values
// erase; resources may be sent as an id or as {"id", "name"}.
func parseEdit(req editRequest) (assignment.Change, error) {
	field := assignment.FieldName(req.Field)
	raw := strings.TrimSpace(string(req.Value))
	if raw == "" || raw == "null" {
		c, err := assignment.ParseChange(field, "")
		if err != nil {
			return c, badRequest{err}
		}
		return c, nil
	}
	if field == assignment.FieldResource && strings.HasPrefix(raw, "{") {
		var ref assignment.Ref
		if err := json.Unmarshal(req.Value, &ref); err != nil {
			return assignment.Change{}, badRequestf("api: invalid resource: %v", err)
		}
		if ref.ID == "" {
			return assignment.Erase(field), nil
		}
		return assignment.SetResource(ref), nil
	}

	text := raw
	var str string
	if err := json.Unmarshal(req.Value, &str); err == nil {
		text = str
	}
	c, err := assignment.ParseChange(field, text)
	if err != nil {
		return c, badRequest{err}
	}
	return c, nil
}

func (s *server) handleEdit(c *gin.Context) {
	index, err := rowIndex(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequestf("api: invalid body: %v", err))
		return
	}
	change, err := parseEdit(req)
	if err != nil {
		s.metrics.edits.WithLabelValues(req.Field, "rejected").Inc()
		writeError(c, err)
		return
	}
	s.withSession(c, http.StatusOK, func(e *editor.Editor) error {
		err := e.Apply(index, change)
		s.metrics.edits.WithLabelValues(string(change.Field), outcome(err)).Inc()
		return err
	})
}

func (s *server) handleAddRow(c *gin.Context) {
	index, err := rowIndex(c)
	if err != nil {
		writeError(c, err)
		return
	}
	s.withSession(c, http.StatusCreated, func(e *editor.Editor) error {
		return e.AddRow(index)
	})
}

func (s *server) handleDeleteRow(c *gin.Context) {
	index, err := rowIndex(c)
	if err != nil {
		writeError(c, err)
		return
	}
	s.withSession(c, http.StatusOK, func(e *editor.Editor) error {
		return e.DeleteRow(index)
	})
}

func (s *server) handleHistory(c *gin.Context) {
	index, err := rowIndex(c)
	if err != nil {
		writeError(c, err)
		return
	}
	sess, err := s.opts.Sessions.Get(c.Param("sid"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := sess.Do(func(e *editor.Editor) error { return e.RequestHistory(index) }); err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	var events []gin.H
	for _, ev := range sess.TakeHistory() {
		if err := s.opts.Store.RecordHistoryRequest(ctx, sess.InterventionID, ev.Assignment); err != nil {
			writeError(c, err)
			return
		}
		var assignmentID string
		if ev.Assignment.ID != nil {
			assignmentID = ev.Assignment.ID.String()
		}
		notify.Send(ctx, s.opts.Notifier, notify.Event{
			Kind:           notify.KindHistoryRequested,
			InterventionID: sess.InterventionID,
			AssignmentID:   assignmentID,
			Status:         ev.Assignment.Status.String(),
		})
		if assignmentID == "" {
			continue
		}
		history, err := s.opts.Store.History(ctx, assignmentID)
		if err != nil {
			writeError(c, err)
			return
		}
		for _, h := range history {
			events = append(events, gin.H{
				"kind":       h.Kind,
				"status":     h.Status,
				"created_at": h.CreatedAt,
			})
		}
	}
	if events == nil {
		events = []gin.H{}
	}
	c.JSON(http.StatusAccepted, gin.H{"index": index, "events": events})
}

type companyRequest struct {
	ID string `json:"id"`
}

func (s *server) handleCompany(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequestf("api: invalid body: %v", err))
		return
	}
	var company *editor.Company
	if req.ID != "" {
		var err error
		company, err = s.opts.Store.Company(c.Request.Context(), req.ID)
		if err != nil {
			writeError(c, err)
			return
		}
	}
	s.withSession(c, http.StatusOK, func(e *editor.Editor) error {
		e.SetResourceCompany(company)
		return nil
	})
}

func (s *server) handleSave(c *gin.Context) {
	sid := c.Param("sid")
	sess, err := s.opts.Sessions.Get(sid)
	if err != nil {
		writeError(c, err)
		return
	}

	// The session closes once the rows are persisted, so edits racing the
	// save fail with not found instead of being silently dropped.
	ctx := c.Request.Context()
	var res store.SaveResult
	err = s.opts.Sessions.Commit(sid, func(e *editor.Editor) error {
		if e.Invalid() {
			return errInvalid
		}
		var err error
		res, err = s.opts.Store.Save(ctx, sess.InterventionID, e.Value(), e.DeletedIDs())
		return err
	})
	switch {
	case errors.Is(err, errInvalid):
		s.metrics.saves.WithLabelValues("invalid").Inc()
	case errors.Is(err, session.ErrNotFound):
	default:
		s.metrics.saves.WithLabelValues(outcome(err)).Inc()
	}
	if err != nil {
		writeError(c, err)
		return
	}

	notify.Send(ctx, s.opts.Notifier, notify.Event{
		Kind:           notify.KindSaved,
		InterventionID: sess.InterventionID,
		Saved:          res.Saved,
		Deleted:        res.Deleted,
		Cancelled:      res.Cancelled,
	})
	c.JSON(http.StatusOK, gin.H{
		"saved":     res.Saved,
		"deleted":   res.Deleted,
		"cancelled": res.Cancelled,
		"ids":       res.IDs,
	})
}

func (s *server) handleInterveners(c *gin.Context) {
	offset, limit, err := paging(c)
	if err != nil {
		writeError(c, err)
		return
	}
	sess, err := s.opts.Sessions.Get(c.Param("sid"))
	if err != nil {
		writeError(c, err)
		return
	}
	var ch <-chan editor.LookupResult
	if err := sess.Do(func(e *editor.Editor) error {
		ch = e.Interveners(c.Request.Context(), offset, s.opts.Lookup.PageSize(limit), c.Query("q"))
		return nil
	}); err != nil {
		writeError(c, err)
		return
	}
	res := <-ch
	s.metrics.lookups.WithLabelValues(outcome(res.Err)).Inc()
	if res.Err != nil {
		writeError(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, res.Page)
}

func (s *server) handleResources(c *gin.Context) {
	company := c.Query("company")
	if company == "" {
		writeError(c, badRequestf("api: company is required"))
		return
	}
	offset, limit, err := paging(c)
	if err != nil {
		writeError(c, err)
		return
	}
	page, err := s.opts.Lookup.Resources(c.Request.Context(), editor.LookupRequest{
		Offset:    offset,
		PageSize:  limit,
		Query:     c.Query("q"),
		SiteID:    c.Query("site"),
		CompanyID: company,
		ProjectID: c.Query("project"),
	})
	s.metrics.lookups.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func paging(c *gin.Context) (offset, limit int, err error) {
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, badRequestf("api: invalid offset %q", v)
		}
	}
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, badRequestf("api: invalid limit %q", v)
		}
	}
	return offset, limit, nil
}
