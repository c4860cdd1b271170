package db

import (
	"fmt"
	"time"

	"github.com/zulandar/assignyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Company{},
		&models.Site{},
		&models.Project{},
		&models.Resource{},
		&models.Job{},
		&models.Intervention{},
		&models.AssignmentRecord{},
		&models.AssignmentEvent{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Seed inserts a small demo data set owned by managedCompanyID. Rows that
// already exist are left untouched.
func Seed(db *gorm.DB, managedCompanyID string) error {
	ada := "res-ada"
	proj := "proj-north"
	jobOpen, jobClosed := "job-open", "job-closed"
	ext := "cmp-external"
	extContact := "res-ext"
	managed := managedCompanyID

	records := []interface{}{
		&models.Site{ID: "site-north", Name: "North depot"},
		&models.Project{ID: proj, Name: "North extension", SiteID: "site-north"},
		&models.Resource{ID: ada, Name: "Ada Byron", CompanyID: managed, SiteID: "site-north", Active: true},
		&models.Resource{ID: "res-bob", Name: "Bob Marsh", CompanyID: managed, SiteID: "site-north", Active: true},
		&models.Resource{ID: "res-cyd", Name: "Cyd Reyes", CompanyID: managed, SiteID: "site-north", ProjectID: &proj, Active: true},
		&models.Resource{ID: extContact, Name: "Eli Contractor", CompanyID: ext, SiteID: "site-north", Active: true},
		&models.Company{ID: managed, Name: "Managed company", DefaultIntervenerID: &ada},
		&models.Company{ID: ext, Name: "External contractor"},
		&models.Job{ID: jobOpen, Name: "Open job"},
		&models.Job{ID: jobClosed, Name: "Closed job", ClosedForOperations: true},
		&models.Job{ID: "job-blocked", Name: "Blocked job", BlockedForTimesheets: true},
		&models.Intervention{ID: "int-1", Title: "Replace pump", SiteID: "site-north", JobID: &jobOpen, ProjectID: &proj, ResourceCompanyID: &managed},
		&models.Intervention{ID: "int-2", Title: "Annual inspection", SiteID: "site-north", JobID: &jobOpen, ResourceID: &extContact, ResourceCompanyID: &ext},
		&models.Intervention{ID: "int-3", Title: "Paint gates", SiteID: "site-north", JobID: &jobClosed, ResourceCompanyID: &managed},
	}

	day := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	start, end := "08:00", "12:00"
	workload := 4.0
	records = append(records,
		&models.AssignmentRecord{
			ID: "6f1c2b8e-0d4a-4c1e-9a57-3b2d1e0f9a01", InterventionID: "int-1", Position: 0,
			PlannedDate: &day, PlannedStartTime: &start, PlannedEndTime: &end, PlannedWorkload: &workload,
			ResourceID: &ada, ResourceCompanyID: &managed, Status: "Planned",
		},
		&models.AssignmentRecord{
			ID: "6f1c2b8e-0d4a-4c1e-9a57-3b2d1e0f9a02", InterventionID: "int-3", Position: 0,
			PlannedDate: &day, PlannedStartTime: &start, PlannedEndTime: &end, PlannedWorkload: &workload,
			ResourceID: &ada, ResourceCompanyID: &managed, Status: "InProgress",
		},
	)

	return db.Transaction(func(tx *gorm.DB) error {
		for _, r := range records {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(r).Error; err != nil {
				return fmt.Errorf("db: seed %T: %w", r, err)
			}
		}
		return nil
	})
}
