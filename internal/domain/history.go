package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntityType distinguishes history entries by the kind of entity they audit.
type EntityType string

const (
	EntityPackage EntityType = "package"
	EntityGroup   EntityType = "group"
)

func (e EntityType) String() string { return string(e) }

func (e EntityType) IsValid() bool {
	return e == EntityPackage || e == EntityGroup
}

// StatusCategory is a coarse classification of a status change used for
// reporting and impact assessment.
type StatusCategory string

const (
	CategoryDelivery   StatusCategory = "DELIVERY"
	CategoryException  StatusCategory = "EXCEPTION"
	CategoryTransit    StatusCategory = "TRANSIT"
	CategoryProcessing StatusCategory = "PROCESSING"
)

func (c StatusCategory) String() string { return string(c) }

// CategoryForPackageStatus maps a package status to its reporting category.
// Group status changes are not differentiated and classify as PROCESSING.
func CategoryForPackageStatus(s PackageStatus) StatusCategory {
	switch s {
	case PackageDelivered, PackageOutForDelivery:
		return CategoryDelivery
	case PackageException, PackageDelayed, PackageLost, PackageReturned:
		return CategoryException
	case PackageInTransit, PackageDispatched, PackageShipped:
		return CategoryTransit
	default:
		return CategoryProcessing
	}
}

// ImpactLevel grades how disruptive a status change is for downstream operations.
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "LOW"
	ImpactMedium ImpactLevel = "MEDIUM"
	ImpactHigh   ImpactLevel = "HIGH"
)

// ImpactForCategory derives the operational impact of a status category.
func ImpactForCategory(c StatusCategory) ImpactLevel {
	switch c {
	case CategoryException:
		return ImpactHigh
	case CategoryDelivery:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// StatusHistoryEntry is an immutable audit record of one status transition.
// Entries are never updated or deleted outside of rollback compensation.
type StatusHistoryEntry struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	EntityID       string         `gorm:"type:uuid;not null"`
	EntityType     EntityType     `gorm:"type:varchar(10);not null"`
	PreviousStatus string         `gorm:"type:varchar(30);not null"`
	NewStatus      string         `gorm:"type:varchar(30);not null"`
	StatusCategory StatusCategory `gorm:"type:varchar(15);not null"`
	ImpactLevel    ImpactLevel    `gorm:"type:varchar(10);not null"`
	Actor          string         `gorm:"type:varchar(120);not null"`
	Reason         string         `gorm:"type:text"`
	Location       string         `gorm:"type:varchar(200)"`
	Metadata       string         `gorm:"type:jsonb"`
	Timestamp      time.Time      `gorm:"not null"`
	CreatedAt      time.Time
}

func (h *StatusHistoryEntry) Validate() error {
	if strings.TrimSpace(h.EntityID) == "" {
		return fmt.Errorf("%w: entity id is required", ErrValidation)
	}
	if !h.EntityType.IsValid() {
		return fmt.Errorf("%w: invalid entity type %q", ErrValidation, h.EntityType)
	}
	if strings.TrimSpace(h.NewStatus) == "" {
		return fmt.Errorf("%w: new status is required", ErrValidation)
	}
	if strings.TrimSpace(h.Actor) == "" {
		return fmt.Errorf("%w: actor is required", ErrValidation)
	}
	return nil
}
