package domain

import (
	"fmt"
	"strings"
	"time"
)

// GroupStatus represents the lifecycle state of a package group moving together.
type GroupStatus string

const (
	GroupDraft               GroupStatus = "DRAFT"
	GroupPendingConfirmation GroupStatus = "PENDING_CONFIRMATION"
	GroupConfirmed           GroupStatus = "CONFIRMED"
	GroupAssigned            GroupStatus = "ASSIGNED"
	GroupLoading             GroupStatus = "LOADING"
	GroupDispatched          GroupStatus = "DISPATCHED"
	GroupInTransit           GroupStatus = "IN_TRANSIT"
	GroupDelivering          GroupStatus = "DELIVERING"
	GroupCompleted           GroupStatus = "COMPLETED"
	GroupCancelled           GroupStatus = "CANCELLED"
	GroupDelayed             GroupStatus = "DELAYED"
	GroupException           GroupStatus = "EXCEPTION"
	GroupReturned            GroupStatus = "RETURNED"
)

func (s GroupStatus) String() string { return string(s) }

func (s GroupStatus) IsValid() bool {
	switch s {
	case GroupDraft, GroupPendingConfirmation, GroupConfirmed, GroupAssigned,
		GroupLoading, GroupDispatched, GroupInTransit, GroupDelivering,
		GroupCompleted, GroupCancelled, GroupDelayed, GroupException, GroupReturned:
		return true
	}
	return false
}

func ParseGroupStatusFromString(s string) (GroupStatus, error) {
	st := GroupStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid group status %q", ErrValidation, s)
	}
	return st, nil
}

// PackageGroup is a batch of packages dispatched and routed together.
type PackageGroup struct {
	ID           string      `gorm:"type:uuid;primaryKey"`
	Name         string      `gorm:"type:varchar(120);not null"`
	Route        string      `gorm:"type:varchar(200)"`
	Status       GroupStatus `gorm:"type:varchar(30);not null"`
	DriverID     *string     `gorm:"type:uuid"`
	PackageCount int         `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (g *PackageGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: group name is required", ErrValidation)
	}
	if !g.Status.IsValid() {
		return fmt.Errorf("%w: invalid group status %q", ErrValidation, g.Status)
	}
	return nil
}
