package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
	"github.com/Kaeytee/warehouse-sub003/internal/location"
	"github.com/Kaeytee/warehouse-sub003/internal/notify"
	"github.com/Kaeytee/warehouse-sub003/internal/observability"
	"github.com/Kaeytee/warehouse-sub003/internal/queue"
	"github.com/Kaeytee/warehouse-sub003/internal/repository"
	"github.com/Kaeytee/warehouse-sub003/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultTrackingSource = "status_update"

// DedupStore is the idempotency ledger for caller-supplied batch ids.
// Claim returns false when the batch id was already processed.
type DedupStore interface {
	Claim(ctx context.Context, batchID string) (bool, error)
}

// StatusUpdateService orchestrates lifecycle status changes for packages and
// package groups: validation, persistence, tracking-point and history
// derivation, group-to-package cascading, and customer notification, with
// per-item failure isolation.
type StatusUpdateService struct {
	packages  repository.PackageRepository
	groups    repository.GroupRepository
	tracking  repository.TrackingRepository
	history   repository.HistoryRepository
	validator validation.Validator
	locations location.Resolver
	notifier  notify.Notifier
	dedup     DedupStore
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
	newID     func() string
}

func NewStatusUpdateService(
	packages repository.PackageRepository,
	groups repository.GroupRepository,
	tracking repository.TrackingRepository,
	history repository.HistoryRepository,
	validator validation.Validator,
	locations location.Resolver,
	notifier notify.Notifier,
	logger *zap.Logger,
) (*StatusUpdateService, error) {
	if packages == nil {
		return nil, fmt.Errorf("package repository is required")
	}
	if groups == nil {
		return nil, fmt.Errorf("group repository is required")
	}
	if tracking == nil {
		return nil, fmt.Errorf("tracking repository is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history repository is required")
	}
	if validator == nil {
		return nil, fmt.Errorf("transition validator is required")
	}
	if locations == nil {
		return nil, fmt.Errorf("location resolver is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StatusUpdateService{
		packages:  packages,
		groups:    groups,
		tracking:  tracking,
		history:   history,
		validator: validator,
		locations: locations,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// SetDedupStore enables at-most-once handling of caller-supplied batch ids.
func (s *StatusUpdateService) SetDedupStore(store DedupStore) {
	if s == nil {
		return
	}
	s.dedup = store
}

func (s *StatusUpdateService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// itemOp is the per-target unit of work derived from a request.
type itemOp struct {
	targetID   string
	targetType TargetType
	newStatus  string
	batchID    string
	conf       BatchUpdateConfig

	performedBy string
	actorRole   string
	reason      string
	notes       string
	location    string
	source      string
	metadata    map[string]string

	skipValidation bool
	forceUpdate    bool
	cascade        bool
}

// itemOutcome carries one item's result plus the side effects the batch
// accumulator needs (counters, cascade warnings, affected customers).
type itemOutcome struct {
	item            ItemResult
	trackingPoints  int
	historyEntries  int
	globalWarnings  []string
	customerUpdates []notify.CustomerUpdate
}

// batchState is the accumulator for one call. In parallel mode it is only
// written from merge, after each chunk's goroutines have finished, so item
// order always follows the input order.
type batchState struct {
	res       *StatusUpdateResult
	customers map[string]*notify.CustomerUpdate
	order     []string
}

func newBatchState(res *StatusUpdateResult) *batchState {
	return &batchState{
		res:       res,
		customers: make(map[string]*notify.CustomerUpdate),
	}
}

func (b *batchState) merge(o itemOutcome) {
	b.res.Results = append(b.res.Results, o.item)
	if o.item.Success {
		b.res.Successful++
	} else {
		b.res.Failed++
	}
	b.res.Warnings += len(o.item.Warnings)
	b.res.TrackingPointsCreated += o.trackingPoints
	b.res.StatusHistoryEntries += o.historyEntries

	if len(o.globalWarnings) > 0 {
		b.res.GlobalWarnings = append(b.res.GlobalWarnings, o.globalWarnings...)
		b.res.Warnings += len(o.globalWarnings)
	}

	for _, cu := range o.customerUpdates {
		existing, ok := b.customers[cu.CustomerID]
		if !ok {
			clone := cu
			b.customers[cu.CustomerID] = &clone
			b.order = append(b.order, cu.CustomerID)
			continue
		}
		existing.PackageIDs = append(existing.PackageIDs, cu.PackageIDs...)
		if queue.PriorityValue(cu.Priority) > queue.PriorityValue(existing.Priority) {
			existing.Priority = cu.Priority
		}
	}
}

// ExecuteStatusUpdate applies one status change to every target in the
// request and returns a complete per-item result. Nothing escapes as a panic;
// the worst case is an all-failed result with a single global error.
func (s *StatusUpdateService) ExecuteStatusUpdate(
	ctx context.Context,
	req StatusUpdateRequest,
	cfg *BatchUpdateConfig,
) (result StatusUpdateResult) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := s.now()
	conf := resolveConfig(cfg)

	clientBatchID := strings.TrimSpace(req.BatchID) != ""
	batchID := strings.TrimSpace(req.BatchID)
	if batchID == "" {
		batchID = s.newID()
	}

	ctx = observability.WithBatchID(ctx, batchID)
	log := observability.WithContextLogger(s.logger, ctx)

	result = StatusUpdateResult{
		BatchID:        batchID,
		TotalRequested: len(req.TargetIDs),
		PerformedBy:    req.PerformedBy,
		Timestamp:      start.UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			result.Results = result.Results[:0]
			for _, id := range req.TargetIDs {
				result.Results = append(result.Results, ItemResult{
					TargetID:   id,
					TargetType: req.TargetType,
					Error:      "internal error",
				})
			}
			result.Successful = 0
			result.Failed = len(req.TargetIDs)
			result.Success = false
			result.GlobalErrors = append(result.GlobalErrors, fmt.Sprintf("internal error: %v", r))
			result.ExecutionTime = s.now().Sub(start)

			log.Error("status update batch aborted by panic",
				zap.Any("panic", r),
			)
		}
	}()

	if failures := validateRequest(req); len(failures) > 0 {
		result.ValidationFailures = failures
		result.GlobalErrors = append(result.GlobalErrors, "request validation failed")
		result.ExecutionTime = s.now().Sub(start)
		return result
	}

	if clientBatchID && s.dedup != nil {
		fresh, err := s.dedup.Claim(ctx, batchID)
		if err != nil {
			result.GlobalWarnings = append(result.GlobalWarnings,
				fmt.Sprintf("idempotency ledger unavailable: %v", err))
			result.Warnings++
		} else if !fresh {
			result.GlobalErrors = append(result.GlobalErrors, domain.ErrDuplicateBatch.Error())
			result.ValidationFailures = append(result.ValidationFailures,
				fmt.Sprintf("batch %s was already processed", batchID))
			result.ExecutionTime = s.now().Sub(start)
			return result
		}
	}

	apply := s.updateSinglePackage
	if req.TargetType == TargetGroup {
		apply = s.updateSingleGroup
	}

	state := newBatchState(&result)
	s.runBatch(ctx, req, conf, batchID, state, apply)

	result.AffectedCustomers = append([]string(nil), state.order...)
	if req.NotifyCustomers {
		s.dispatchNotifications(ctx, req, conf, batchID, state)
	}

	result.Success = result.Failed == 0
	result.ExecutionTime = s.now().Sub(start)

	if s.metrics != nil {
		s.metrics.ObserveBatch(string(req.TargetType), result.Successful, result.Failed, result.ExecutionTime)
		s.metrics.AddTrackingPoints(result.TrackingPointsCreated)
		s.metrics.AddHistoryEntries(result.StatusHistoryEntries)
	}

	log.Info("status update batch completed",
		zap.String("targetType", string(req.TargetType)),
		zap.String("newStatus", req.NewStatus),
		zap.Int("totalRequested", result.TotalRequested),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
		zap.Int("trackingPoints", result.TrackingPointsCreated),
		zap.Int("historyEntries", result.StatusHistoryEntries),
		zap.Int("notificationsSent", result.NotificationsSent),
		zap.Duration("executionTime", result.ExecutionTime),
	)

	return result
}

// BatchUpdateGroupStatus is a convenience wrapper over ExecuteStatusUpdate
// with cascading and customer notification defaulted on.
func (s *StatusUpdateService) BatchUpdateGroupStatus(
	ctx context.Context,
	groupIDs []string,
	status domain.GroupStatus,
	performedBy string,
	reason string,
	scheduledFor string,
) StatusUpdateResult {
	return s.ExecuteStatusUpdate(ctx, StatusUpdateRequest{
		TargetType:       TargetGroup,
		TargetIDs:        groupIDs,
		NewStatus:        string(status),
		PerformedBy:      performedBy,
		Reason:           reason,
		ScheduledFor:     scheduledFor,
		CascadeToRelated: true,
		NotifyCustomers:  true,
		Source:           "group_batch_update",
	}, nil)
}

// runBatch dispatches all target ids through apply. Large batches in parallel
// mode are split into contiguous chunks of MaxBatchSize; chunks run one after
// another while items inside a chunk run concurrently, which bounds in-flight
// work to MaxBatchSize.
func (s *StatusUpdateService) runBatch(
	ctx context.Context,
	req StatusUpdateRequest,
	conf BatchUpdateConfig,
	batchID string,
	state *batchState,
	apply func(ctx context.Context, op itemOp) itemOutcome,
) {
	ids := req.TargetIDs

	if conf.ParallelProcessing && len(ids) > conf.MaxBatchSize {
		for offset := 0; offset < len(ids); offset += conf.MaxBatchSize {
			if reason, stop := s.stopReason(ctx, conf, state.res); stop {
				s.failRemaining(req, state, ids[offset:], reason)
				return
			}

			end := offset + conf.MaxBatchSize
			if end > len(ids) {
				end = len(ids)
			}
			chunk := ids[offset:end]

			outcomes := make([]itemOutcome, len(chunk))
			var g errgroup.Group
			for i, id := range chunk {
				i, id := i, id
				g.Go(func() error {
					outcomes[i] = s.applySafely(ctx, apply, s.opFor(req, conf, batchID, id))
					return nil
				})
			}
			_ = g.Wait()

			for i := range outcomes {
				state.merge(outcomes[i])
			}
		}
		return
	}

	for i, id := range ids {
		if reason, stop := s.stopReason(ctx, conf, state.res); stop {
			s.failRemaining(req, state, ids[i:], reason)
			return
		}
		state.merge(s.applySafely(ctx, apply, s.opFor(req, conf, batchID, id)))
	}
}

// stopReason reports whether the batch must stop issuing new item updates.
func (s *StatusUpdateService) stopReason(ctx context.Context, conf BatchUpdateConfig, res *StatusUpdateResult) (string, bool) {
	if ctx.Err() != nil {
		return "cancelled", true
	}
	if !conf.ContinueOnError && res.Failed > 0 {
		return "skipped: batch aborted after earlier failure", true
	}
	return "", false
}

func (s *StatusUpdateService) failRemaining(req StatusUpdateRequest, state *batchState, remaining []string, reason string) {
	for _, id := range remaining {
		state.merge(itemOutcome{item: ItemResult{
			TargetID:   id,
			TargetType: req.TargetType,
			Error:      reason,
		}})
	}
}

func (s *StatusUpdateService) opFor(req StatusUpdateRequest, conf BatchUpdateConfig, batchID, targetID string) itemOp {
	return itemOp{
		targetID:       targetID,
		targetType:     req.TargetType,
		newStatus:      strings.TrimSpace(req.NewStatus),
		batchID:        batchID,
		conf:           conf,
		performedBy:    req.PerformedBy,
		actorRole:      req.ActorRole,
		reason:         req.Reason,
		notes:          req.Notes,
		location:       req.Location,
		source:         req.Source,
		metadata:       req.Metadata,
		skipValidation: req.SkipValidation,
		forceUpdate:    req.ForceUpdate,
		cascade:        req.CascadeToRelated,
	}
}

// applySafely isolates one item: a panic inside the item update becomes a
// failed result entry and never reaches sibling items.
func (s *StatusUpdateService) applySafely(
	ctx context.Context,
	apply func(ctx context.Context, op itemOp) itemOutcome,
	op itemOp,
) (out itemOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = itemOutcome{item: ItemResult{
				TargetID:   op.targetID,
				TargetType: op.targetType,
				Error:      fmt.Sprintf("internal error: %v", r),
			}}
			observability.WithContextLogger(s.logger, ctx).Error("item update panicked",
				zap.String("targetId", op.targetID),
				zap.Any("panic", r),
			)
		}
	}()

	return apply(ctx, op)
}

func (s *StatusUpdateService) updateSinglePackage(ctx context.Context, op itemOp) itemOutcome {
	item := ItemResult{TargetID: op.targetID, TargetType: op.targetType}

	pkg, err := s.packages.GetByID(ctx, op.targetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			item.Error = "not found"
		} else {
			item.Error = fmt.Sprintf("failed to load package: %v", err)
		}
		return itemOutcome{item: item}
	}

	target, err := domain.ParsePackageStatusFromString(op.newStatus)
	if err != nil {
		item.Error = fmt.Sprintf("invalid package status %q", op.newStatus)
		return itemOutcome{item: item}
	}

	prev := pkg.Status

	if !op.skipValidation {
		warnings, failure := s.checkTransition(ctx, validation.TransitionContext{
			EntityType:      domain.EntityPackage,
			CurrentStatus:   string(prev),
			Priority:        pkg.Priority,
			SpecialHandling: pkg.SpecialHandling,
			PriorChanges:    s.priorChanges(ctx, domain.EntityPackage, pkg.ID),
		}, op)
		item.Warnings = append(item.Warnings, warnings...)
		if failure != "" {
			item.Error = failure
			return itemOutcome{item: item}
		}
	}

	if err := s.packages.UpdateStatus(ctx, pkg.ID, target); err != nil {
		item.Error = fmt.Sprintf("failed to persist status: %v", err)
		return itemOutcome{item: item}
	}

	var outcome itemOutcome
	now := s.now().UTC()
	loc := s.locations.Resolve(ctx, target, pkg.DestinationCity)
	locationName := loc.String()
	if strings.TrimSpace(op.location) != "" {
		locationName = op.location
	}

	trackingPointID := ""
	trackingErr := error(nil)
	point := &domain.TrackingPoint{
		ID:           s.newID(),
		PackageID:    pkg.ID,
		Location:     locationName,
		City:         loc.City,
		FacilityType: loc.FacilityType,
		Status:       target,
		Timestamp:    now,
		IsMilestone:  target.IsMilestone(),
		IsActive:     true,
		Source:       sourceOrDefault(op.source),
		Confidence:   1,
		CreatedBy:    op.performedBy,
	}
	if appendErr := s.tracking.Append(ctx, point); appendErr != nil {
		trackingErr = fmt.Errorf("failed to append tracking point: %w", appendErr)
	} else {
		trackingPointID = point.ID
		outcome.trackingPoints = 1
	}
	if trackingErr != nil {
		if op.conf.RollbackOnFailure {
			return itemOutcome{item: s.rollbackPackage(ctx, item, pkg.ID, prev, trackingPointID, "", trackingErr)}
		}
		item.Warnings = append(item.Warnings, fmt.Sprintf("tracking point not recorded: %v", trackingErr))
	}

	category := domain.CategoryForPackageStatus(target)
	entry := &domain.StatusHistoryEntry{
		ID:             s.newID(),
		EntityID:       pkg.ID,
		EntityType:     domain.EntityPackage,
		PreviousStatus: string(prev),
		NewStatus:      string(target),
		StatusCategory: category,
		ImpactLevel:    domain.ImpactForCategory(category),
		Actor:          op.performedBy,
		Reason:         op.reason,
		Location:       locationName,
		Metadata:       s.historyMetadata(op),
		Timestamp:      now,
	}
	if histErr := s.history.Append(ctx, entry); histErr != nil {
		if op.conf.RollbackOnFailure {
			return itemOutcome{item: s.rollbackPackage(ctx, item, pkg.ID, prev, trackingPointID, "",
				fmt.Errorf("failed to append history entry: %w", histErr))}
		}
		item.Warnings = append(item.Warnings, fmt.Sprintf("history entry not recorded: %v", histErr))
	} else {
		outcome.historyEntries = 1
	}

	item.Success = true
	item.PreviousStatus = string(prev)
	item.NewStatus = string(target)
	item.TrackingPointsCreated = outcome.trackingPoints

	outcome.item = item
	outcome.customerUpdates = []notify.CustomerUpdate{{
		CustomerID: pkg.CustomerID,
		PackageIDs: []string{pkg.ID},
		Priority:   pkg.Priority,
	}}
	return outcome
}

func (s *StatusUpdateService) updateSingleGroup(ctx context.Context, op itemOp) itemOutcome {
	item := ItemResult{TargetID: op.targetID, TargetType: op.targetType}

	group, err := s.groups.GetByID(ctx, op.targetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			item.Error = "not found"
		} else {
			item.Error = fmt.Sprintf("failed to load group: %v", err)
		}
		return itemOutcome{item: item}
	}

	target, err := domain.ParseGroupStatusFromString(op.newStatus)
	if err != nil {
		item.Error = fmt.Sprintf("invalid group status %q", op.newStatus)
		return itemOutcome{item: item}
	}

	prev := group.Status

	if !op.skipValidation {
		warnings, failure := s.checkTransition(ctx, validation.TransitionContext{
			EntityType:    domain.EntityGroup,
			CurrentStatus: string(prev),
			PriorChanges:  s.priorChanges(ctx, domain.EntityGroup, group.ID),
		}, op)
		item.Warnings = append(item.Warnings, warnings...)
		if failure != "" {
			item.Error = failure
			return itemOutcome{item: item}
		}
	}

	if err := s.groups.UpdateStatus(ctx, group.ID, target); err != nil {
		item.Error = fmt.Sprintf("failed to persist status: %v", err)
		return itemOutcome{item: item}
	}

	var outcome itemOutcome
	now := s.now().UTC()
	entry := &domain.StatusHistoryEntry{
		ID:             s.newID(),
		EntityID:       group.ID,
		EntityType:     domain.EntityGroup,
		PreviousStatus: string(prev),
		NewStatus:      string(target),
		StatusCategory: domain.CategoryProcessing,
		ImpactLevel:    domain.ImpactForCategory(domain.CategoryProcessing),
		Actor:          op.performedBy,
		Reason:         op.reason,
		Location:       op.location,
		Metadata:       s.historyMetadata(op),
		Timestamp:      now,
	}
	if histErr := s.history.Append(ctx, entry); histErr != nil {
		if op.conf.RollbackOnFailure {
			var comp error
			comp = multierr.Append(comp, s.groups.UpdateStatus(ctx, group.ID, prev))
			if comp != nil {
				item.Error = fmt.Sprintf("failed to append history entry: %v (rollback incomplete: %v)", histErr, comp)
			} else {
				item.Error = fmt.Sprintf("failed to append history entry: %v (rolled back)", histErr)
			}
			return itemOutcome{item: item}
		}
		item.Warnings = append(item.Warnings, fmt.Sprintf("history entry not recorded: %v", histErr))
	} else {
		outcome.historyEntries = 1
	}

	item.Success = true
	item.PreviousStatus = string(prev)
	item.NewStatus = string(target)
	outcome.item = item

	// Cascade failures never fail the group item; they surface as batch-level
	// warnings.
	if op.cascade {
		cascaded := s.cascadeGroup(ctx, op, group, target)
		outcome.globalWarnings = append(outcome.globalWarnings, cascaded.warnings...)
		outcome.trackingPoints += cascaded.trackingPoints
		outcome.historyEntries += cascaded.historyEntries
		outcome.customerUpdates = append(outcome.customerUpdates, cascaded.customerUpdates...)
	}

	return outcome
}

// checkTransition runs the validator and folds in ForceUpdate and the
// configured validation level. A non-empty failure string fails the item.
func (s *StatusUpdateService) checkTransition(ctx context.Context, tc validation.TransitionContext, op itemOp) ([]string, string) {
	res, err := s.validator.ValidateTransition(ctx, tc, op.newStatus, op.actorRole, op.reason)
	if err != nil {
		return nil, fmt.Sprintf("transition validation failed: %v", err)
	}

	warnings := res.Warnings
	if op.conf.ValidationLevel == ValidationLenient {
		warnings = nil
	}

	if !res.IsValid {
		if op.forceUpdate {
			warnings = append(warnings, fmt.Sprintf("forced update: %s", strings.Join(res.Errors, "; ")))
			return warnings, ""
		}
		return warnings, strings.Join(res.Errors, "; ")
	}

	if op.conf.ValidationLevel == ValidationStrict && len(warnings) > 0 && !op.forceUpdate {
		return warnings, fmt.Sprintf("strict validation: %s", strings.Join(warnings, "; "))
	}

	return warnings, ""
}

func (s *StatusUpdateService) priorChanges(ctx context.Context, entityType domain.EntityType, entityID string) int {
	count, err := s.history.CountForEntity(ctx, entityType, entityID)
	if err != nil {
		return 0
	}
	return int(count)
}

// rollbackPackage reverts a package item after a partial failure: delete the
// records written so far and restore the previous status.
func (s *StatusUpdateService) rollbackPackage(
	ctx context.Context,
	item ItemResult,
	packageID string,
	prev domain.PackageStatus,
	trackingPointID string,
	historyEntryID string,
	cause error,
) ItemResult {
	var comp error
	if trackingPointID != "" {
		comp = multierr.Append(comp, s.tracking.DeleteByID(ctx, trackingPointID))
	}
	if historyEntryID != "" {
		comp = multierr.Append(comp, s.history.DeleteByID(ctx, historyEntryID))
	}
	comp = multierr.Append(comp, s.packages.UpdateStatus(ctx, packageID, prev))

	item.Success = false
	item.TrackingPointsCreated = 0
	if comp != nil {
		item.Error = fmt.Sprintf("%v (rollback incomplete: %v)", cause, comp)
	} else {
		item.Error = fmt.Sprintf("%v (rolled back)", cause)
	}
	return item
}

func (s *StatusUpdateService) historyMetadata(op itemOp) string {
	if len(op.metadata) == 0 && op.notes == "" && op.source == "" && op.batchID == "" {
		return ""
	}

	payload := make(map[string]string, len(op.metadata)+3)
	for k, v := range op.metadata {
		payload[k] = v
	}
	if op.notes != "" {
		payload["notes"] = op.notes
	}
	if op.source != "" {
		payload["source"] = op.source
	}
	if op.batchID != "" {
		payload["batchId"] = op.batchID
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (s *StatusUpdateService) dispatchNotifications(
	ctx context.Context,
	req StatusUpdateRequest,
	conf BatchUpdateConfig,
	batchID string,
	state *batchState,
) {
	res := state.res

	if s.notifier == nil {
		res.GlobalWarnings = append(res.GlobalWarnings, "notifications requested but no notifier configured")
		res.Warnings++
		return
	}
	if len(state.order) == 0 {
		return
	}

	customers := make([]notify.CustomerUpdate, 0, len(state.order))
	for _, customerID := range state.order {
		cu := state.customers[customerID]
		if conf.NotificationBatching {
			customers = append(customers, *cu)
			continue
		}
		// Unbatched mode sends one notification per package.
		for _, pkgID := range cu.PackageIDs {
			customers = append(customers, notify.CustomerUpdate{
				CustomerID: cu.CustomerID,
				PackageIDs: []string{pkgID},
				Priority:   cu.Priority,
			})
		}
	}

	sent, err := s.notifier.Notify(ctx, notify.BatchSummary{
		BatchID:     batchID,
		NewStatus:   req.NewStatus,
		PerformedBy: req.PerformedBy,
		Successful:  res.Successful,
		Failed:      res.Failed,
		Customers:   customers,
	})
	res.NotificationsSent = sent
	if err != nil {
		res.GlobalWarnings = append(res.GlobalWarnings, fmt.Sprintf("notification dispatch degraded: %v", err))
		res.Warnings++
	}
}

func sourceOrDefault(source string) string {
	if strings.TrimSpace(source) == "" {
		return defaultTrackingSource
	}
	return source
}
