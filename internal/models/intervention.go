package models

import "time"

// Intervention is a unit of work on a site whose assignments are edited
// together.
type Intervention struct {
	ID                string  `gorm:"primaryKey;size:64"`
	Title             string  `gorm:"size:255;not null"`
	SiteID            string  `gorm:"size:64;index"`
	JobID             *string `gorm:"size:64"`
	ProjectID         *string `gorm:"size:64"`
	ResourceID        *string `gorm:"size:64"`
	ResourceCompanyID *string `gorm:"size:64;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Site            Site               `gorm:"foreignKey:SiteID"`
	Job             *Job               `gorm:"foreignKey:JobID"`
	Project         *Project           `gorm:"foreignKey:ProjectID"`
	Resource        *Resource          `gorm:"foreignKey:ResourceID"`
	ResourceCompany *Company           `gorm:"foreignKey:ResourceCompanyID"`
	Assignments     []AssignmentRecord `gorm:"foreignKey:InterventionID"`
}

// AssignmentRecord is the stored form of one planned assignment. Times are
// kept as "HH:MM" strings.
type AssignmentRecord struct {
	ID                string `gorm:"primaryKey;size:36"`
	InterventionID    string `gorm:"size:64;index;not null"`
	Position          int
	PlannedDate       *time.Time `gorm:"index"`
	PlannedStartTime  *string    `gorm:"size:5"`
	PlannedEndTime    *string    `gorm:"size:5"`
	PlannedWorkload   *float64
	ResourceID        *string `gorm:"size:64;index"`
	ResourceCompanyID *string `gorm:"size:64"`
	Status            string  `gorm:"size:16;default:Draft;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Resource *Resource `gorm:"foreignKey:ResourceID"`
}

// TableName keeps the table name short.
func (AssignmentRecord) TableName() string { return "assignments" }

// Assignment event kinds.
const (
	EventHistoryRequested = "history_requested"
	EventSaved            = "saved"
	EventDeleted          = "deleted"
	EventCancelled        = "cancelled"
)

// AssignmentEvent is one entry of an assignment's history.
type AssignmentEvent struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	AssignmentID   string `gorm:"size:36;index"`
	InterventionID string `gorm:"size:64;index"`
	Kind           string `gorm:"size:32"`
	Status         string `gorm:"size:16"`
	Note           string `gorm:"type:text"`
	CreatedAt      time.Time
}
