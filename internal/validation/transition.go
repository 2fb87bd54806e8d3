package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
)

// TransitionContext carries the entity state the rule table evaluates against.
type TransitionContext struct {
	EntityType      domain.EntityType
	CurrentStatus   string
	Priority        domain.PackagePriority
	SpecialHandling bool
	PriorChanges    int
}

// Result is the outcome of a transition check.
type Result struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

// Validator checks whether a proposed status transition is allowed.
type Validator interface {
	ValidateTransition(ctx context.Context, tc TransitionContext, newStatus, actorRole, reason string) (Result, error)
}

// RuleTable validates status transitions against static lifecycle rules.
type RuleTable struct{}

var _ Validator = (*RuleTable)(nil)

func NewRuleTable() *RuleTable {
	return &RuleTable{}
}

var packageTransitions = map[domain.PackageStatus][]domain.PackageStatus{
	domain.PackagePending:          {domain.PackageProcessing, domain.PackageCancelled, domain.PackageException},
	domain.PackageProcessing:       {domain.PackageReadyForGrouping, domain.PackageCancelled, domain.PackageException, domain.PackageDelayed},
	domain.PackageReadyForGrouping: {domain.PackageGrouped, domain.PackageCancelled, domain.PackageException},
	domain.PackageGrouped:          {domain.PackageGroupConfirmed, domain.PackageReadyForGrouping, domain.PackageCancelled, domain.PackageException},
	domain.PackageGroupConfirmed:   {domain.PackageDispatched, domain.PackageGrouped, domain.PackageCancelled, domain.PackageException},
	domain.PackageDispatched:       {domain.PackageShipped, domain.PackageInTransit, domain.PackageDelayed, domain.PackageException},
	domain.PackageShipped:          {domain.PackageInTransit, domain.PackageDelayed, domain.PackageException},
	domain.PackageInTransit:        {domain.PackageOutForDelivery, domain.PackageDelayed, domain.PackageException, domain.PackageLost},
	domain.PackageOutForDelivery:   {domain.PackageDelivered, domain.PackageDelayed, domain.PackageException, domain.PackageReturned},
	domain.PackageDelivered:        {domain.PackageReturned},
	domain.PackageDelayed:          {domain.PackageInTransit, domain.PackageOutForDelivery, domain.PackageException, domain.PackageLost, domain.PackageReturned},
	domain.PackageException:        {domain.PackageInTransit, domain.PackageReturned, domain.PackageCancelled, domain.PackageLost, domain.PackageDelayed},
	domain.PackageReturned:         {},
	domain.PackageLost:             {},
	domain.PackageCancelled:        {},
}

var groupTransitions = map[domain.GroupStatus][]domain.GroupStatus{
	domain.GroupDraft:               {domain.GroupPendingConfirmation, domain.GroupCancelled},
	domain.GroupPendingConfirmation: {domain.GroupConfirmed, domain.GroupDraft, domain.GroupCancelled},
	domain.GroupConfirmed:           {domain.GroupAssigned, domain.GroupCancelled, domain.GroupException},
	domain.GroupAssigned:            {domain.GroupLoading, domain.GroupConfirmed, domain.GroupCancelled, domain.GroupException},
	domain.GroupLoading:             {domain.GroupDispatched, domain.GroupDelayed, domain.GroupException, domain.GroupCancelled},
	domain.GroupDispatched:          {domain.GroupInTransit, domain.GroupDelayed, domain.GroupException},
	domain.GroupInTransit:           {domain.GroupDelivering, domain.GroupDelayed, domain.GroupException},
	domain.GroupDelivering:          {domain.GroupCompleted, domain.GroupDelayed, domain.GroupException, domain.GroupReturned},
	domain.GroupDelayed:             {domain.GroupInTransit, domain.GroupDelivering, domain.GroupException, domain.GroupReturned},
	domain.GroupException:           {domain.GroupInTransit, domain.GroupDelivering, domain.GroupReturned, domain.GroupCancelled, domain.GroupDelayed},
	domain.GroupCompleted:           {},
	domain.GroupCancelled:           {},
	domain.GroupReturned:            {},
}

// ValidateTransition checks a proposed status change against the lifecycle rule
// table. Warnings never make a transition invalid on their own.
func (v *RuleTable) ValidateTransition(
	ctx context.Context,
	tc TransitionContext,
	newStatus string,
	actorRole string,
	reason string,
) (Result, error) {
	if ctx != nil && ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	switch tc.EntityType {
	case domain.EntityPackage:
		return v.validatePackage(tc, newStatus, reason), nil
	case domain.EntityGroup:
		return v.validateGroup(tc, newStatus, reason), nil
	default:
		return Result{
			Errors: []string{fmt.Sprintf("unknown entity type %q", tc.EntityType)},
		}, nil
	}
}

func (v *RuleTable) validatePackage(tc TransitionContext, newStatus, reason string) Result {
	var res Result

	current, err := domain.ParsePackageStatusFromString(tc.CurrentStatus)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("current status %q is not a package status", tc.CurrentStatus))
		return res
	}
	target, err := domain.ParsePackageStatusFromString(newStatus)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%q is not a package status", newStatus))
		return res
	}

	if current == target {
		res.Errors = append(res.Errors, fmt.Sprintf("package is already %s", current))
		return res
	}

	allowed := packageTransitions[current]
	if !containsPackageStatus(allowed, target) {
		if len(allowed) == 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("%s is a terminal status", current))
		} else {
			res.Errors = append(res.Errors, fmt.Sprintf("transition %s -> %s is not allowed", current, target))
		}
		return res
	}

	res.IsValid = true
	if needsReason(string(target)) && strings.TrimSpace(reason) == "" {
		res.Warnings = append(res.Warnings, fmt.Sprintf("a reason is recommended when moving to %s", target))
	}
	if tc.SpecialHandling && target == domain.PackageOutForDelivery {
		res.Warnings = append(res.Warnings, "special handling package: verify delivery instructions")
	}
	if tc.Priority == domain.PriorityUrgent && target == domain.PackageDelayed {
		res.Warnings = append(res.Warnings, "urgent package marked delayed")
	}
	return res
}

func (v *RuleTable) validateGroup(tc TransitionContext, newStatus, reason string) Result {
	var res Result

	current, err := domain.ParseGroupStatusFromString(tc.CurrentStatus)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("current status %q is not a group status", tc.CurrentStatus))
		return res
	}
	target, err := domain.ParseGroupStatusFromString(newStatus)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%q is not a group status", newStatus))
		return res
	}

	if current == target {
		res.Errors = append(res.Errors, fmt.Sprintf("group is already %s", current))
		return res
	}

	allowed := groupTransitions[current]
	if !containsGroupStatus(allowed, target) {
		if len(allowed) == 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("%s is a terminal status", current))
		} else {
			res.Errors = append(res.Errors, fmt.Sprintf("transition %s -> %s is not allowed", current, target))
		}
		return res
	}

	res.IsValid = true
	if needsReason(string(target)) && strings.TrimSpace(reason) == "" {
		res.Warnings = append(res.Warnings, fmt.Sprintf("a reason is recommended when moving to %s", target))
	}
	return res
}

func needsReason(status string) bool {
	switch status {
	case string(domain.PackageException), string(domain.PackageDelayed),
		string(domain.PackageCancelled), string(domain.PackageReturned),
		string(domain.PackageLost):
		return true
	}
	return false
}

func containsPackageStatus(list []domain.PackageStatus, s domain.PackageStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsGroupStatus(list []domain.GroupStatus, s domain.GroupStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
