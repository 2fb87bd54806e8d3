package domain

import (
	"fmt"
	"strings"
	"time"
)

// LocationDescriptor identifies the facility or area stamped on a tracking point.
type LocationDescriptor struct {
	Name         string
	City         string
	FacilityType string
}

func (l LocationDescriptor) String() string {
	if l.City == "" {
		return l.Name
	}
	return fmt.Sprintf("%s, %s", l.Name, l.City)
}

// TrackingPoint is an append-only location/status snapshot in a package's journey.
// Sequence values are gap-free from 1 per package and at most one point is active
// at any time.
type TrackingPoint struct {
	ID           string        `gorm:"type:uuid;primaryKey"`
	PackageID    string        `gorm:"type:uuid;not null"`
	Location     string        `gorm:"type:varchar(200);not null"`
	City         string        `gorm:"type:varchar(120)"`
	FacilityType string        `gorm:"type:varchar(40)"`
	Status       PackageStatus `gorm:"type:varchar(30);not null"`
	Timestamp    time.Time     `gorm:"not null"`
	Sequence     int           `gorm:"not null"`
	IsMilestone  bool          `gorm:"not null;default:false"`
	IsActive     bool          `gorm:"not null;default:false"`
	Source       string        `gorm:"type:varchar(40)"`
	Confidence   float64       `gorm:"not null;default:1"`
	CreatedBy    string        `gorm:"type:varchar(120)"`
	CreatedAt    time.Time
}

func (t *TrackingPoint) Validate() error {
	if strings.TrimSpace(t.PackageID) == "" {
		return fmt.Errorf("%w: package id is required", ErrValidation)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("%w: invalid package status %q", ErrValidation, t.Status)
	}
	if t.Sequence < 1 {
		return fmt.Errorf("%w: sequence must be >= 1", ErrValidation)
	}
	return nil
}
