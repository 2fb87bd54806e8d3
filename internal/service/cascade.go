package service

import (
	"context"
	"fmt"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
	"github.com/Kaeytee/warehouse-sub003/internal/notify"
)

// CascadePackageStatus maps a group status to the package status its member
// packages receive when the change cascades. Total over all group statuses.
func CascadePackageStatus(status domain.GroupStatus) domain.PackageStatus {
	switch status {
	case domain.GroupDraft, domain.GroupPendingConfirmation:
		return domain.PackageGrouped
	case domain.GroupConfirmed, domain.GroupAssigned, domain.GroupLoading:
		return domain.PackageGroupConfirmed
	case domain.GroupDispatched:
		return domain.PackageDispatched
	case domain.GroupInTransit:
		return domain.PackageInTransit
	case domain.GroupDelivering:
		return domain.PackageOutForDelivery
	case domain.GroupCompleted:
		return domain.PackageDelivered
	case domain.GroupCancelled:
		return domain.PackageCancelled
	case domain.GroupDelayed:
		return domain.PackageDelayed
	case domain.GroupException:
		return domain.PackageException
	case domain.GroupReturned:
		return domain.PackageReturned
	default:
		return domain.PackageException
	}
}

type cascadeOutcome struct {
	warnings        []string
	trackingPoints  int
	historyEntries  int
	customerUpdates []notify.CustomerUpdate
}

// cascadeGroup applies the mapped package status to every member package of
// the group. Member failures degrade to warnings and members are processed
// sequentially, since groups rarely hold more than a few dozen packages.
func (s *StatusUpdateService) cascadeGroup(
	ctx context.Context,
	op itemOp,
	group *domain.PackageGroup,
	target domain.GroupStatus,
) cascadeOutcome {
	var out cascadeOutcome

	members, err := s.packages.ListByGroupID(ctx, group.ID)
	if err != nil {
		out.warnings = append(out.warnings,
			fmt.Sprintf("cascade skipped for group %s: %v", group.ID, err))
		return out
	}
	if len(members) == 0 {
		return out
	}

	mapped := CascadePackageStatus(target)
	for i := range members {
		memberOp := op
		memberOp.targetID = members[i].ID
		memberOp.targetType = TargetPackage
		memberOp.newStatus = string(mapped)
		memberOp.cascade = false
		memberOp.source = "cascade"

		memberOutcome := s.applySafely(ctx, s.updateSinglePackage, memberOp)
		if !memberOutcome.item.Success {
			out.warnings = append(out.warnings,
				fmt.Sprintf("cascade: package %s: %s", members[i].ID, memberOutcome.item.Error))
			continue
		}

		out.trackingPoints += memberOutcome.trackingPoints
		out.historyEntries += memberOutcome.historyEntries
		out.customerUpdates = append(out.customerUpdates, memberOutcome.customerUpdates...)
	}

	return out
}
