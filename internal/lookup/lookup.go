// Package lookup serves paged resource searches from the database.
package lookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/zulandar/assignyard/internal/assignment"
	"github.com/zulandar/assignyard/internal/editor"
	"github.com/zulandar/assignyard/internal/models"
	"gorm.io/gorm"
)

// Resources implements editor.ResourceLookup over GORM.
type Resources struct {
	db          *gorm.DB
	defaultSize int
	maxSize     int
}

// New returns a lookup over db. Page sizes of zero or less fall back to
// defaultSize; larger ones are clamped to maxSize.
func New(db *gorm.DB, defaultSize, maxSize int) *Resources {
	if defaultSize <= 0 {
		defaultSize = 20
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	return &Resources{db: db, defaultSize: defaultSize, maxSize: maxSize}
}

// PageSize clamps a requested page size.
func (l *Resources) PageSize(n int) int {
	switch {
	case n <= 0:
		return l.defaultSize
	case n > l.maxSize:
		return l.maxSize
	}
	return n
}

// Resources returns active resources of req.CompanyID, ordered by name. Site
// and project narrow the search when set; resources without a project are
// available to every project.
func (l *Resources) Resources(ctx context.Context, req editor.LookupRequest) (editor.Page, error) {
	q := l.db.WithContext(ctx).Model(&models.Resource{}).
		Where("company_id = ? AND active = ?", req.CompanyID, true)
	if req.SiteID != "" {
		q = q.Where("site_id = ?", req.SiteID)
	}
	if req.ProjectID != "" {
		q = q.Where("(project_id = ? OR project_id IS NULL)", req.ProjectID)
	}
	if s := strings.TrimSpace(req.Query); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+escapeLike(strings.ToLower(s))+"%")
	}

	q = q.Session(&gorm.Session{})

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return editor.Page{}, fmt.Errorf("lookup: count resources: %w", err)
	}

	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	var recs []models.Resource
	err := q.Order("name ASC").Order("id ASC").
		Offset(offset).
		Limit(l.PageSize(req.PageSize)).
		Find(&recs).Error
	if err != nil {
		return editor.Page{}, fmt.Errorf("lookup: list resources: %w", err)
	}

	page := editor.Page{Count: count, Items: make([]assignment.Ref, len(recs))}
	for i, r := range recs {
		page.Items[i] = assignment.Ref{ID: r.ID, Name: r.Name}
	}
	return page, nil
}

// escapeLike drops the LIKE wildcards from user input.
func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}
