package domain

import (
	"fmt"
	"strings"
	"time"
)

// PackageStatus represents the lifecycle state of a single shipment package.
type PackageStatus string

const (
	PackagePending          PackageStatus = "PENDING"
	PackageProcessing       PackageStatus = "PROCESSING"
	PackageReadyForGrouping PackageStatus = "READY_FOR_GROUPING"
	PackageGrouped          PackageStatus = "GROUPED"
	PackageGroupConfirmed   PackageStatus = "GROUP_CONFIRMED"
	PackageDispatched       PackageStatus = "DISPATCHED"
	PackageShipped          PackageStatus = "SHIPPED"
	PackageInTransit        PackageStatus = "IN_TRANSIT"
	PackageOutForDelivery   PackageStatus = "OUT_FOR_DELIVERY"
	PackageDelivered        PackageStatus = "DELIVERED"
	PackageDelayed          PackageStatus = "DELAYED"
	PackageReturned         PackageStatus = "RETURNED"
	PackageLost             PackageStatus = "LOST"
	PackageException        PackageStatus = "EXCEPTION"
	PackageCancelled        PackageStatus = "CANCELLED"
)

func (s PackageStatus) String() string { return string(s) }

func (s PackageStatus) IsValid() bool {
	switch s {
	case PackagePending, PackageProcessing, PackageReadyForGrouping, PackageGrouped,
		PackageGroupConfirmed, PackageDispatched, PackageShipped, PackageInTransit,
		PackageOutForDelivery, PackageDelivered, PackageDelayed, PackageReturned,
		PackageLost, PackageException, PackageCancelled:
		return true
	}
	return false
}

// IsMilestone reports whether the status marks a customer-visible journey milestone.
func (s PackageStatus) IsMilestone() bool {
	switch s {
	case PackageDispatched, PackageInTransit, PackageOutForDelivery, PackageDelivered:
		return true
	}
	return false
}

func ParsePackageStatusFromString(s string) (PackageStatus, error) {
	st := PackageStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid package status %q", ErrValidation, s)
	}
	return st, nil
}

// PackagePriority represents handling priority for a package.
type PackagePriority string

const (
	PriorityUrgent   PackagePriority = "URGENT"
	PriorityStandard PackagePriority = "STANDARD"
	PriorityEconomy  PackagePriority = "ECONOMY"
)

func (p PackagePriority) String() string { return string(p) }

// Package is the core domain entity for a single shipment unit.
type Package struct {
	ID              string          `gorm:"type:uuid;primaryKey"`
	TrackingNumber  string          `gorm:"type:varchar(40);not null"`
	CustomerID      string          `gorm:"type:uuid;not null"`
	GroupID         *string         `gorm:"type:uuid"`
	Status          PackageStatus   `gorm:"type:varchar(30);not null"`
	Priority        PackagePriority `gorm:"type:varchar(10);not null;default:'STANDARD'"`
	SpecialHandling bool            `gorm:"not null;default:false"`
	DestinationCity string          `gorm:"type:varchar(120);not null"`
	WeightKg        float64         `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p *Package) Validate() error {
	if strings.TrimSpace(p.TrackingNumber) == "" {
		return fmt.Errorf("%w: tracking number is required", ErrValidation)
	}
	if strings.TrimSpace(p.CustomerID) == "" {
		return fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("%w: invalid package status %q", ErrValidation, p.Status)
	}
	if strings.TrimSpace(p.DestinationCity) == "" {
		return fmt.Errorf("%w: destination city is required", ErrValidation)
	}
	return nil
}
