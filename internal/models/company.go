package models

import "time"

// Company owns assignable resources. DefaultIntervenerID is assigned to
// every row when the company is picked for an intervention.
type Company struct {
	ID                  string  `gorm:"primaryKey;size:64"`
	Name                string  `gorm:"size:128;not null"`
	DefaultIntervenerID *string `gorm:"size:64"`
	CreatedAt           time.Time

	DefaultIntervener *Resource `gorm:"foreignKey:DefaultIntervenerID"`
}

// Site is a location where interventions take place.
type Site struct {
	ID   string `gorm:"primaryKey;size:64"`
	Name string `gorm:"size:128;not null"`
}

// Project groups interventions on a site.
type Project struct {
	ID     string `gorm:"primaryKey;size:64"`
	Name   string `gorm:"size:128;not null"`
	SiteID string `gorm:"size:64;index"`
}

// Resource is a person or crew that can be assigned to an intervention.
// A nil ProjectID makes the resource available to every project on its site.
type Resource struct {
	ID        string  `gorm:"primaryKey;size:64"`
	Name      string  `gorm:"size:128;not null;index"`
	CompanyID string  `gorm:"size:64;index"`
	SiteID    string  `gorm:"size:64;index"`
	ProjectID *string `gorm:"size:64;index"`
	Active    bool    `gorm:"default:true"`
}

// Job is the accounting job an intervention is booked against.
type Job struct {
	ID                   string `gorm:"primaryKey;size:64"`
	Name                 string `gorm:"size:128"`
	ClosedForOperations  bool   `gorm:"default:false"`
	BlockedForTimesheets bool   `gorm:"default:false"`
}
