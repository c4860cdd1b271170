// Package store loads and saves the assignment list of an intervention.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zulandar/assignyard/internal/assignment"
	"github.com/zulandar/assignyard/internal/clock"
	"github.com/zulandar/assignyard/internal/editor"
	"github.com/zulandar/assignyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when an intervention or company does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps a GORM connection.
type Store struct {
	db *gorm.DB
}

// New returns a store over db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Intervention fetches an intervention with its site, job, project,
// resource and resource company.
func (s *Store) Intervention(ctx context.Context, id string) (*models.Intervention, error) {
	var iv models.Intervention
	err := s.db.WithContext(ctx).
		Preload("Site").
		Preload("Job").
		Preload("Project").
		Preload("Resource").
		Preload("ResourceCompany.DefaultIntervener").
		First(&iv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: intervention %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get intervention %s: %w", id, err)
	}
	return &iv, nil
}

// Company fetches a company with its default intervener.
func (s *Store) Company(ctx context.Context, id string) (*editor.Company, error) {
	var c models.Company
	err := s.db.WithContext(ctx).Preload("DefaultIntervener").First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: company %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get company %s: %w", id, err)
	}
	return companyOf(&c), nil
}

// EditorContext builds the editor context of an intervention.
func EditorContext(iv *models.Intervention, managedCompanyID string, advanced bool) editor.Context {
	ctx := editor.Context{
		Site:             &assignment.Ref{ID: iv.SiteID, Name: iv.Site.Name},
		ManagedCompanyID: managedCompanyID,
		AdvancedPlanning: advanced,
	}
	if iv.Project != nil {
		ctx.Project = &assignment.Ref{ID: iv.Project.ID, Name: iv.Project.Name}
	}
	if iv.Job != nil {
		ctx.Job = &editor.Job{
			ID:                   iv.Job.ID,
			ClosedForOperations:  iv.Job.ClosedForOperations,
			BlockedForTimesheets: iv.Job.BlockedForTimesheets,
		}
	}
	if iv.Resource != nil {
		ctx.Resource = &assignment.Ref{ID: iv.Resource.ID, Name: iv.Resource.Name}
	}
	if iv.ResourceCompany != nil {
		ctx.ResourceCompany = companyOf(iv.ResourceCompany)
	}
	return ctx
}

func companyOf(c *models.Company) *editor.Company {
	out := &editor.Company{Ref: assignment.Ref{ID: c.ID, Name: c.Name}}
	if c.DefaultIntervener != nil {
		out.DefaultIntervener = &assignment.Ref{ID: c.DefaultIntervener.ID, Name: c.DefaultIntervener.Name}
	}
	return out
}

// Load returns the assignments of an intervention in their stored order.
// CountOfInterventions is the number of distinct interventions each
// resource is assigned to.
func (s *Store) Load(ctx context.Context, interventionID string) ([]assignment.Assignment, error) {
	var recs []models.AssignmentRecord
	err := s.db.WithContext(ctx).
		Preload("Resource").
		Where("intervention_id = ?", interventionID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("store: load assignments of %s: %w", interventionID, err)
	}

	counts, err := s.interventionCounts(ctx, recs)
	if err != nil {
		return nil, err
	}

	out := make([]assignment.Assignment, 0, len(recs))
	for i := range recs {
		a, err := fromRecord(&recs[i])
		if err != nil {
			return nil, fmt.Errorf("store: assignment %s: %w", recs[i].ID, err)
		}
		if a.Resource != nil {
			n := counts[a.Resource.ID]
			a.CountOfInterventions = &n
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) interventionCounts(ctx context.Context, recs []models.AssignmentRecord) (map[string]int, error) {
	var ids []string
	for _, r := range recs {
		if r.ResourceID != nil {
			ids = append(ids, *r.ResourceID)
		}
	}
	counts := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	var rows []struct {
		ResourceID string
		N          int
	}
	err := s.db.WithContext(ctx).
		Model(&models.AssignmentRecord{}).
		Select("resource_id, COUNT(DISTINCT intervention_id) AS n").
		Where("resource_id IN ?", ids).
		Group("resource_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: count interventions: %w", err)
	}
	for _, r := range rows {
		counts[r.ResourceID] = r.N
	}
	return counts, nil
}

func fromRecord(r *models.AssignmentRecord) (assignment.Assignment, error) {
	var a assignment.Assignment
	if id, err := uuid.Parse(r.ID); err == nil {
		a.ID = &id
	}
	if r.PlannedDate != nil {
		d := *r.PlannedDate
		a.PlannedDate = &d
	}
	var err error
	if a.PlannedStartTime, err = parseClock(r.PlannedStartTime); err != nil {
		return a, err
	}
	if a.PlannedEndTime, err = parseClock(r.PlannedEndTime); err != nil {
		return a, err
	}
	if r.PlannedWorkload != nil {
		w := *r.PlannedWorkload
		a.PlannedWorkload = &w
	}
	if r.ResourceID != nil {
		ref := &assignment.Ref{ID: *r.ResourceID}
		if r.Resource != nil {
			ref.Name = r.Resource.Name
		}
		a.Resource = ref
	}
	if r.ResourceCompanyID != nil {
		a.ResourceCompany = &assignment.Ref{ID: *r.ResourceCompanyID}
	}
	if a.Status, err = assignment.ParseStatus(r.Status); err != nil {
		return a, err
	}
	a.InitStatus = a.Status
	return a, nil
}

func parseClock(s *string) (*clock.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := clock.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveResult summarizes one Save.
type SaveResult struct {
	Saved     int
	Deleted   int
	Cancelled int
	IDs       []uuid.UUID
}

// Save replaces the stored list of an intervention with rows, in order, and
// deletes the given ids. Rows without an id get a fresh one. Everything runs
// in one transaction.
func (s *Store) Save(ctx context.Context, interventionID string, rows []assignment.Assignment, deleted []uuid.UUID) (SaveResult, error) {
	var res SaveResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(deleted) > 0 {
			ids := make([]string, len(deleted))
			for i, id := range deleted {
				ids[i] = id.String()
			}
			del := tx.Where("intervention_id = ? AND id IN ?", interventionID, ids).Delete(&models.AssignmentRecord{})
			if del.Error != nil {
				return fmt.Errorf("store: delete assignments: %w", del.Error)
			}
			res.Deleted = int(del.RowsAffected)
			for _, id := range ids {
				if err := recordEvent(tx, interventionID, id, models.EventDeleted, ""); err != nil {
					return err
				}
			}
		}

		for i, a := range rows {
			id := uuid.New()
			if a.ID != nil && *a.ID != uuid.Nil {
				id = *a.ID
			}
			rec := toRecord(interventionID, i, id, a)
			err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
			if err != nil {
				return fmt.Errorf("store: save assignment %s: %w", rec.ID, err)
			}
			kind := models.EventSaved
			if a.Status == assignment.StatusCancelled && a.InitStatus != assignment.StatusCancelled {
				kind = models.EventCancelled
				res.Cancelled++
			}
			if err := recordEvent(tx, interventionID, rec.ID, kind, rec.Status); err != nil {
				return err
			}
			res.Saved++
			res.IDs = append(res.IDs, id)
		}

		if len(rows) > 0 && rows[0].ResourceCompany != nil {
			err := tx.Model(&models.Intervention{}).
				Where("id = ?", interventionID).
				Update("resource_company_id", rows[0].ResourceCompany.ID).Error
			if err != nil {
				return fmt.Errorf("store: update intervention %s: %w", interventionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return SaveResult{}, err
	}
	return res, nil
}

func toRecord(interventionID string, pos int, id uuid.UUID, a assignment.Assignment) models.AssignmentRecord {
	rec := models.AssignmentRecord{
		ID:             id.String(),
		InterventionID: interventionID,
		Position:       pos,
		Status:         a.Status.String(),
	}
	if a.PlannedDate != nil {
		d := *a.PlannedDate
		rec.PlannedDate = &d
	}
	if a.PlannedStartTime != nil {
		s := a.PlannedStartTime.String()
		rec.PlannedStartTime = &s
	}
	if a.PlannedEndTime != nil {
		s := a.PlannedEndTime.String()
		rec.PlannedEndTime = &s
	}
	if a.PlannedWorkload != nil {
		w := *a.PlannedWorkload
		rec.PlannedWorkload = &w
	}
	if a.Resource != nil {
		r := a.Resource.ID
		rec.ResourceID = &r
	}
	if a.ResourceCompany != nil {
		c := a.ResourceCompany.ID
		rec.ResourceCompanyID = &c
	}
	return rec
}

func recordEvent(tx *gorm.DB, interventionID, assignmentID, kind, status string) error {
	ev := models.AssignmentEvent{
		AssignmentID:   assignmentID,
		InterventionID: interventionID,
		Kind:           kind,
		Status:         status,
	}
	if err := tx.Create(&ev).Error; err != nil {
		return fmt.Errorf("store: record %s event: %w", kind, err)
	}
	return nil
}

// RecordHistoryRequest logs that the history of an assignment was requested.
func (s *Store) RecordHistoryRequest(ctx context.Context, interventionID string, a assignment.Assignment) error {
	var id string
	if a.ID != nil {
		id = a.ID.String()
	}
	return recordEvent(s.db.WithContext(ctx), interventionID, id, models.EventHistoryRequested, a.Status.String())
}

// History returns the events of one assignment, oldest first.
func (s *Store) History(ctx context.Context, assignmentID string) ([]models.AssignmentEvent, error) {
	var evs []models.AssignmentEvent
	err := s.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&evs).Error
	if err != nil {
		return nil, fmt.Errorf("store: history of %s: %w", assignmentID, err)
	}
	return evs, nil
}
