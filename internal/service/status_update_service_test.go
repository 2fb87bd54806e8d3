package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
	"github.com/Kaeytee/warehouse-sub003/internal/location"
	"github.com/Kaeytee/warehouse-sub003/internal/notify"
	"github.com/Kaeytee/warehouse-sub003/internal/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memState struct {
	mu       sync.Mutex
	packages map[string]*domain.Package
	groups   map[string]*domain.PackageGroup
	points   []domain.TrackingPoint
	entries  []domain.StatusHistoryEntry
}

func newMemState() *memState {
	return &memState{
		packages: make(map[string]*domain.Package),
		groups:   make(map[string]*domain.PackageGroup),
	}
}

func (s *memState) addPackage(pkg domain.Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := pkg
	s.packages[pkg.ID] = &copied
}

func (s *memState) addGroup(group domain.PackageGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := group
	s.groups[group.ID] = &copied
}

func (s *memState) packageStatus(id string) domain.PackageStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pkg, ok := s.packages[id]; ok {
		return pkg.Status
	}
	return ""
}

func (s *memState) pointsForPackage(id string) []domain.TrackingPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TrackingPoint
	for _, p := range s.points {
		if p.PackageID == id {
			out = append(out, p)
		}
	}
	return out
}

func (s *memState) entriesForEntity(id string) []domain.StatusHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StatusHistoryEntry
	for _, e := range s.entries {
		if e.EntityID == id {
			out = append(out, e)
		}
	}
	return out
}

type fakePackageRepo struct {
	state          *memState
	getByIDFn      func(ctx context.Context, id string) (*domain.Package, error)
	updateStatusFn func(ctx context.Context, id string, status domain.PackageStatus) error
}

func (r *fakePackageRepo) Create(ctx context.Context, pkg *domain.Package) error {
	r.state.addPackage(*pkg)
	return nil
}

func (r *fakePackageRepo) GetByID(ctx context.Context, id string) (*domain.Package, error) {
	if r.getByIDFn != nil {
		return r.getByIDFn(ctx, id)
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	pkg, ok := r.state.packages[id]
	if !ok {
		return nil, fmt.Errorf("%w: package %s", domain.ErrNotFound, id)
	}
	copied := *pkg
	return &copied, nil
}

func (r *fakePackageRepo) UpdateStatus(ctx context.Context, id string, status domain.PackageStatus) error {
	if r.updateStatusFn != nil {
		return r.updateStatusFn(ctx, id, status)
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	pkg, ok := r.state.packages[id]
	if !ok {
		return fmt.Errorf("%w: package %s", domain.ErrNotFound, id)
	}
	pkg.Status = status
	return nil
}

func (r *fakePackageRepo) ListByGroupID(ctx context.Context, groupID string) ([]domain.Package, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var out []domain.Package
	for _, pkg := range r.state.packages {
		if pkg.GroupID != nil && *pkg.GroupID == groupID {
			out = append(out, *pkg)
		}
	}
	return out, nil
}

type fakeGroupRepo struct {
	state *memState
}

func (r *fakeGroupRepo) Create(ctx context.Context, group *domain.PackageGroup) error {
	r.state.addGroup(*group)
	return nil
}

func (r *fakeGroupRepo) GetByID(ctx context.Context, id string) (*domain.PackageGroup, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	group, ok := r.state.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: group %s", domain.ErrNotFound, id)
	}
	copied := *group
	return &copied, nil
}

func (r *fakeGroupRepo) UpdateStatus(ctx context.Context, id string, status domain.GroupStatus) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	group, ok := r.state.groups[id]
	if !ok {
		return fmt.Errorf("%w: group %s", domain.ErrNotFound, id)
	}
	group.Status = status
	return nil
}

type fakeTrackingRepo struct {
	state    *memState
	appendFn func(ctx context.Context, point *domain.TrackingPoint) error
}

func (r *fakeTrackingRepo) Append(ctx context.Context, point *domain.TrackingPoint) error {
	if r.appendFn != nil {
		return r.appendFn(ctx, point)
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	prior := 0
	for i := range r.state.points {
		if r.state.points[i].PackageID == point.PackageID {
			r.state.points[i].IsActive = false
			prior++
		}
	}
	point.Sequence = prior + 1
	r.state.points = append(r.state.points, *point)
	return nil
}

func (r *fakeTrackingRepo) ListForPackage(ctx context.Context, packageID string) ([]domain.TrackingPoint, error) {
	return r.state.pointsForPackage(packageID), nil
}

func (r *fakeTrackingRepo) DeleteByID(ctx context.Context, id string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for i := range r.state.points {
		if r.state.points[i].ID == id {
			r.state.points = append(r.state.points[:i], r.state.points[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeHistoryRepo struct {
	state    *memState
	appendFn func(ctx context.Context, entry *domain.StatusHistoryEntry) error
}

func (r *fakeHistoryRepo) Append(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	if r.appendFn != nil {
		return r.appendFn(ctx, entry)
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.entries = append(r.state.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListForEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.StatusHistoryEntry, error) {
	return r.state.entriesForEntity(entityID), nil
}

func (r *fakeHistoryRepo) CountForEntity(ctx context.Context, entityType domain.EntityType, entityID string) (int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var count int64
	for _, e := range r.state.entries {
		if e.EntityID == entityID && e.EntityType == entityType {
			count++
		}
	}
	return count, nil
}

func (r *fakeHistoryRepo) DeleteByID(ctx context.Context, id string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for i := range r.state.entries {
		if r.state.entries[i].ID == id {
			r.state.entries = append(r.state.entries[:i], r.state.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	summaries []notify.BatchSummary
	notifyFn  func(ctx context.Context, summary notify.BatchSummary) (int, error)
}

func (n *fakeNotifier) Notify(ctx context.Context, summary notify.BatchSummary) (int, error) {
	n.mu.Lock()
	n.summaries = append(n.summaries, summary)
	n.mu.Unlock()
	if n.notifyFn != nil {
		return n.notifyFn(ctx, summary)
	}
	return len(summary.Customers), nil
}

type fakeDedup struct {
	claimFn func(ctx context.Context, batchID string) (bool, error)
}

func (d *fakeDedup) Claim(ctx context.Context, batchID string) (bool, error) {
	if d.claimFn != nil {
		return d.claimFn(ctx, batchID)
	}
	return true, nil
}

type testDeps struct {
	state    *memState
	packages *fakePackageRepo
	groups   *fakeGroupRepo
	tracking *fakeTrackingRepo
	history  *fakeHistoryRepo
	notifier *fakeNotifier
	svc      *StatusUpdateService
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()

	state := newMemState()
	deps := &testDeps{
		state:    state,
		packages: &fakePackageRepo{state: state},
		groups:   &fakeGroupRepo{state: state},
		tracking: &fakeTrackingRepo{state: state},
		history:  &fakeHistoryRepo{state: state},
		notifier: &fakeNotifier{},
	}

	svc, err := NewStatusUpdateService(
		deps.packages,
		deps.groups,
		deps.tracking,
		deps.history,
		validation.NewRuleTable(),
		location.NewStaticResolver("Accra"),
		deps.notifier,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("NewStatusUpdateService() error = %v", err)
	}
	svc.now = func() time.Time {
		return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	}

	deps.svc = svc
	return deps
}

func seedPackage(deps *testDeps, id string, customerID string, status domain.PackageStatus) {
	deps.state.addPackage(domain.Package{
		ID:              id,
		TrackingNumber:  "TRK-" + id,
		CustomerID:      customerID,
		Status:          status,
		Priority:        domain.PriorityStandard,
		DestinationCity: "Kumasi",
		WeightKg:        2.5,
	})
}

func TestExecuteStatusUpdateAllSuccessful(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageInTransit)
	seedPackage(deps, "p2", "c1", domain.PackageInTransit)
	seedPackage(deps, "p3", "c2", domain.PackageInTransit)

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1", "p2", "p3"},
		NewStatus:   "OUT_FOR_DELIVERY",
		PerformedBy: "operator-1",
	}, nil)

	if !res.Success {
		t.Fatalf("Success = false, result: %+v", res)
	}
	if res.TotalRequested != 3 || res.Successful != 3 || res.Failed != 0 {
		t.Fatalf("counters = %d/%d/%d, want 3/3/0", res.TotalRequested, res.Successful, res.Failed)
	}
	if len(res.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(res.Results))
	}
	for i, want := range []string{"p1", "p2", "p3"} {
		if res.Results[i].TargetID != want {
			t.Fatalf("Results[%d].TargetID = %q, want %q", i, res.Results[i].TargetID, want)
		}
		if res.Results[i].PreviousStatus != "IN_TRANSIT" || res.Results[i].NewStatus != "OUT_FOR_DELIVERY" {
			t.Fatalf("Results[%d] statuses = %q -> %q", i, res.Results[i].PreviousStatus, res.Results[i].NewStatus)
		}
	}
	if res.TrackingPointsCreated != 3 {
		t.Fatalf("TrackingPointsCreated = %d, want 3", res.TrackingPointsCreated)
	}
	if res.StatusHistoryEntries != 3 {
		t.Fatalf("StatusHistoryEntries = %d, want 3", res.StatusHistoryEntries)
	}
	if got := deps.state.packageStatus("p2"); got != domain.PackageOutForDelivery {
		t.Fatalf("package p2 status = %s, want OUT_FOR_DELIVERY", got)
	}
	if len(res.AffectedCustomers) != 2 {
		t.Fatalf("AffectedCustomers = %v, want two customers", res.AffectedCustomers)
	}
}

func TestExecuteStatusUpdateMixedResults(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageInTransit)

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1", "missing"},
		NewStatus:   "OUT_FOR_DELIVERY",
		PerformedBy: "operator-1",
	}, nil)

	if res.Success {
		t.Fatal("Success = true, want false with a failed item")
	}
	if res.Successful != 1 || res.Failed != 1 {
		t.Fatalf("successful/failed = %d/%d, want 1/1", res.Successful, res.Failed)
	}
	if res.Results[0].TargetID != "p1" || !res.Results[0].Success {
		t.Fatalf("Results[0] = %+v, want successful p1", res.Results[0])
	}
	if res.Results[1].TargetID != "missing" || res.Results[1].Success {
		t.Fatalf("Results[1] = %+v, want failed missing", res.Results[1])
	}
	if res.Results[1].Error == "" {
		t.Fatal("failed item should carry an error message")
	}
	if got := deps.state.packageStatus("p1"); got != domain.PackageOutForDelivery {
		t.Fatalf("package p1 status = %s, want OUT_FOR_DELIVERY", got)
	}
}

func TestExecuteStatusUpdateChunkingPreservesOrder(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	ids := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		id := fmt.Sprintf("p%03d", i)
		seedPackage(deps, id, fmt.Sprintf("c%d", i%7), domain.PackageInTransit)
		ids = append(ids, id)
	}

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   ids,
		NewStatus:   "OUT_FOR_DELIVERY",
		PerformedBy: "operator-1",
	}, &BatchUpdateConfig{MaxBatchSize: 100, ParallelProcessing: true, ContinueOnError: true})

	if res.TotalRequested != 250 || res.Successful != 250 || res.Failed != 0 {
		t.Fatalf("counters = %d/%d/%d, want 250/250/0", res.TotalRequested, res.Successful, res.Failed)
	}
	if len(res.Results) != 250 {
		t.Fatalf("len(Results) = %d, want 250", len(res.Results))
	}
	for i, id := range ids {
		if res.Results[i].TargetID != id {
			t.Fatalf("Results[%d].TargetID = %q, want %q", i, res.Results[i].TargetID, id)
		}
	}
}

func TestExecuteStatusUpdateValidatorRejection(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageDelivered)

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1"},
		NewStatus:   "PENDING",
		PerformedBy: "operator-1",
	}, nil)

	if res.Successful != 0 || res.Failed != 1 {
		t.Fatalf("successful/failed = %d/%d, want 0/1", res.Successful, res.Failed)
	}
	if got := deps.state.packageStatus("p1"); got != domain.PackageDelivered {
		t.Fatalf("rejected item must not mutate status, got %s", got)
	}
	if points := deps.state.pointsForPackage("p1"); len(points) != 0 {
		t.Fatalf("rejected item must not create tracking points, got %d", len(points))
	}
	if entries := deps.state.entriesForEntity("p1"); len(entries) != 0 {
		t.Fatalf("rejected item must not create history entries, got %d", len(entries))
	}
}

func TestExecuteStatusUpdateForceUpdate(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageDelivered)

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1"},
		NewStatus:   "IN_TRANSIT",
		PerformedBy: "supervisor-1",
		ForceUpdate: true,
		Reason:      "mis-scanned at depot",
	}, nil)

	if res.Successful != 1 {
		t.Fatalf("forced update should succeed, result: %+v", res.Results)
	}
	if len(res.Results[0].Warnings) == 0 {
		t.Fatal("forced update should carry a warning")
	}
	if got := deps.state.packageStatus("p1"); got != domain.PackageInTransit {
		t.Fatalf("package status = %s, want IN_TRANSIT", got)
	}
}

func TestExecuteStatusUpdateRequestValidationShortCircuit(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageInTransit)

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1"},
		NewStatus:   "",
		PerformedBy: "operator-1",
	}, nil)

	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if len(res.ValidationFailures) == 0 {
		t.Fatal("expected request validation failures")
	}
	if len(res.Results) != 0 {
		t.Fatalf("short-circuited request should produce no item results, got %d", len(res.Results))
	}
	if got := deps.state.packageStatus("p1"); got != domain.PackageInTransit {
		t.Fatalf("short-circuited request must not mutate state, got %s", got)
	}
}

func TestExecuteStatusUpdateRejectsInvalidScheduledFor(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageInTransit)

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:   TargetPackage,
		TargetIDs:    []string{"p1"},
		NewStatus:    "OUT_FOR_DELIVERY",
		PerformedBy:  "operator-1",
		ScheduledFor: "tomorrow morning",
	}, nil)

	if res.Success {
		t.Fatal("Success = true, want false")
	}
	if len(res.Results) != 0 {
		t.Fatalf("short-circuited request should produce no item results, got %d", len(res.Results))
	}
	found := false
	for _, failure := range res.ValidationFailures {
		if strings.Contains(failure, "scheduledFor") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a scheduledFor validation failure, got %v", res.ValidationFailures)
	}
	if got := deps.state.packageStatus("p1"); got != domain.PackageInTransit {
		t.Fatalf("short-circuited request must not mutate state, got %s", got)
	}
}

func TestExecuteStatusUpdateSkipValidationBypassesTransitionRules(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageDelivered)

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:     TargetPackage,
		TargetIDs:      []string{"p1"},
		NewStatus:      "PENDING",
		PerformedBy:    "supervisor-1",
		SkipValidation: true,
	}, nil)

	if res.Successful != 1 || res.Failed != 0 {
		t.Fatalf("successful/failed = %d/%d, want 1/0, results: %+v", res.Successful, res.Failed, res.Results)
	}
	if got := deps.state.packageStatus("p1"); got != domain.PackagePending {
		t.Fatalf("package status = %s, want PENDING", got)
	}

	res = deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:     TargetPackage,
		TargetIDs:      []string{"p1"},
		NewStatus:      "IN_TRANSIT",
		PerformedBy:    "",
		SkipValidation: true,
	}, nil)

	if len(res.ValidationFailures) == 0 {
		t.Fatal("request-level checks must still apply when validation is skipped")
	}
	if len(res.Results) != 0 {
		t.Fatalf("short-circuited request should produce no item results, got %d", len(res.Results))
	}
}

func TestExecuteStatusUpdateLogsCarryBatchID(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	core, logs := observer.New(zapcore.InfoLevel)
	deps.svc.logger = zap.New(core)
	seedPackage(deps, "p1", "c1", domain.PackageInTransit)

	deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1"},
		NewStatus:   "OUT_FOR_DELIVERY",
		PerformedBy: "operator-1",
		BatchID:     "batch-777",
	}, nil)

	entries := logs.FilterMessage("status update batch completed").All()
	if len(entries) != 1 {
		t.Fatalf("completed log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if got, _ := fields["batchId"].(string); got != "batch-777" {
		t.Fatalf("batchId field = %q, want %q", got, "batch-777")
	}
}

func TestExecuteStatusUpdateGroupCascade(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	deps.state.addGroup(domain.PackageGroup{
		ID:     "g1",
		Name:   "Route Alpha",
		Route:  "Accra-Kumasi",
		Status: domain.GroupLoading,
	})
	groupID := "g1"
	for i, customer := range []string{"c1", "c1", "c2"} {
		id := fmt.Sprintf("p%d", i+1)
		deps.state.addPackage(domain.Package{
			ID:              id,
			TrackingNumber:  "TRK-" + id,
			CustomerID:      customer,
			GroupID:         &groupID,
			Status:          domain.PackageGroupConfirmed,
			Priority:        domain.PriorityStandard,
			DestinationCity: "Kumasi",
			WeightKg:        1,
		})
	}

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:       TargetGroup,
		TargetIDs:        []string{"g1"},
		NewStatus:        "DISPATCHED",
		PerformedBy:      "dispatcher-1",
		CascadeToRelated: true,
		NotifyCustomers:  true,
	}, nil)

	if !res.Success {
		t.Fatalf("Success = false, result: %+v", res)
	}
	if res.TotalRequested != 1 || res.Successful != 1 {
		t.Fatalf("counters = %d/%d, want 1/1", res.TotalRequested, res.Successful)
	}
	// One history entry for the group, one per cascaded package.
	if res.StatusHistoryEntries != 4 {
		t.Fatalf("StatusHistoryEntries = %d, want 4", res.StatusHistoryEntries)
	}
	if res.TrackingPointsCreated != 3 {
		t.Fatalf("TrackingPointsCreated = %d, want 3", res.TrackingPointsCreated)
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		if got := deps.state.packageStatus(id); got != domain.PackageDispatched {
			t.Fatalf("cascaded package %s status = %s, want DISPATCHED", id, got)
		}
	}
	if len(res.AffectedCustomers) != 2 {
		t.Fatalf("AffectedCustomers = %v, want two customers", res.AffectedCustomers)
	}
	if res.NotificationsSent != 2 {
		t.Fatalf("NotificationsSent = %d, want 2", res.NotificationsSent)
	}
}

func TestExecuteStatusUpdateCascadeFailureKeepsGroupSuccess(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	deps.state.addGroup(domain.PackageGroup{ID: "g1", Name: "Route Beta", Status: domain.GroupLoading})
	groupID := "g1"
	for _, id := range []string{"p1", "p2"} {
		deps.state.addPackage(domain.Package{
			ID:              id,
			TrackingNumber:  "TRK-" + id,
			CustomerID:      "c1",
			GroupID:         &groupID,
			Status:          domain.PackageGroupConfirmed,
			Priority:        domain.PriorityStandard,
			DestinationCity: "Kumasi",
			WeightKg:        1,
		})
	}
	deps.packages.updateStatusFn = func(ctx context.Context, id string, status domain.PackageStatus) error {
		if id == "p2" {
			return fmt.Errorf("connection reset")
		}
		deps.state.mu.Lock()
		defer deps.state.mu.Unlock()
		deps.state.packages[id].Status = status
		return nil
	}

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:       TargetGroup,
		TargetIDs:        []string{"g1"},
		NewStatus:        "DISPATCHED",
		PerformedBy:      "dispatcher-1",
		CascadeToRelated: true,
	}, nil)

	if res.Successful != 1 || res.Failed != 0 {
		t.Fatalf("group item should stay successful, got %d/%d", res.Successful, res.Failed)
	}
	if len(res.GlobalWarnings) == 0 {
		t.Fatal("cascade failure should surface as a global warning")
	}
	found := false
	for _, w := range res.GlobalWarnings {
		if strings.Contains(w, "p2") {
			found = true
		}
	}
	if !found {
		t.Fatalf("warnings should name the failed package, got %v", res.GlobalWarnings)
	}
}

func TestExecuteStatusUpdateSequenceNumbers(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageDispatched)

	first := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1"},
		NewStatus:   "IN_TRANSIT",
		PerformedBy: "operator-1",
	}, nil)
	second := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1"},
		NewStatus:   "OUT_FOR_DELIVERY",
		PerformedBy: "operator-1",
	}, nil)

	if !first.Success || !second.Success {
		t.Fatalf("both updates should succeed: %+v / %+v", first.Results, second.Results)
	}

	points := deps.state.pointsForPackage("p1")
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if points[0].Sequence != 1 || points[1].Sequence != 2 {
		t.Fatalf("sequences = %d,%d, want 1,2", points[0].Sequence, points[1].Sequence)
	}
	if points[0].IsActive {
		t.Fatal("older point should be deactivated")
	}
	if !points[1].IsActive {
		t.Fatal("newest point should be active")
	}
	if points[1].Status != domain.PackageOutForDelivery {
		t.Fatalf("newest point status = %s, want OUT_FOR_DELIVERY", points[1].Status)
	}
	if !points[1].IsMilestone {
		t.Fatal("OUT_FOR_DELIVERY point should be a milestone")
	}
}

func TestExecuteStatusUpdateConcurrentAppendsKeepSequencesDistinct(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageInTransit)

	ids := make([]string, 40)
	for i := range ids {
		ids[i] = "p1"
	}

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:     TargetPackage,
		TargetIDs:      ids,
		NewStatus:      "IN_TRANSIT",
		PerformedBy:    "operator-1",
		SkipValidation: true,
	}, &BatchUpdateConfig{MaxBatchSize: 10, ParallelProcessing: true, ContinueOnError: true})

	if res.Successful != len(ids) {
		t.Fatalf("successful = %d, want %d, results: %+v", res.Successful, len(ids), res.Results)
	}

	points := deps.state.pointsForPackage("p1")
	if len(points) != len(ids) {
		t.Fatalf("len(points) = %d, want %d", len(points), len(ids))
	}
	seen := make(map[int]bool, len(points))
	active := 0
	for _, p := range points {
		if seen[p.Sequence] {
			t.Fatalf("duplicate sequence %d", p.Sequence)
		}
		if p.Sequence < 1 || p.Sequence > len(ids) {
			t.Fatalf("sequence %d outside 1..%d", p.Sequence, len(ids))
		}
		seen[p.Sequence] = true
		if p.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("active points = %d, want 1", active)
	}
}

func TestExecuteStatusUpdatePanicIsolation(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageInTransit)
	seedPackage(deps, "p2", "c1", domain.PackageInTransit)
	plain := &fakePackageRepo{state: deps.state}
	deps.packages.getByIDFn = func(ctx context.Context, id string) (*domain.Package, error) {
		if id == "p2" {
			panic("corrupted row")
		}
		return plain.GetByID(ctx, id)
	}

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1", "p2"},
		NewStatus:   "OUT_FOR_DELIVERY",
		PerformedBy: "operator-1",
	}, nil)

	if res.Successful != 1 || res.Failed != 1 {
		t.Fatalf("successful/failed = %d/%d, want 1/1", res.Successful, res.Failed)
	}
	if !strings.Contains(res.Results[1].Error, "internal error") {
		t.Fatalf("panicked item error = %q, want internal error", res.Results[1].Error)
	}
}

func TestExecuteStatusUpdateCancelledContext(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageInTransit)
	seedPackage(deps, "p2", "c1", domain.PackageInTransit)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := deps.svc.ExecuteStatusUpdate(ctx, StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1", "p2"},
		NewStatus:   "OUT_FOR_DELIVERY",
		PerformedBy: "operator-1",
	}, nil)

	if res.Successful != 0 || res.Failed != 2 {
		t.Fatalf("successful/failed = %d/%d, want 0/2", res.Successful, res.Failed)
	}
	for _, item := range res.Results {
		if item.Error != "cancelled" {
			t.Fatalf("item error = %q, want cancelled", item.Error)
		}
	}
	if got := deps.state.packageStatus("p1"); got != domain.PackageInTransit {
		t.Fatalf("cancelled batch must not mutate state, got %s", got)
	}
}

func TestExecuteStatusUpdateStopsAfterFailure(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p2", "c1", domain.PackageInTransit)
	seedPackage(deps, "p3", "c1", domain.PackageInTransit)

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"missing", "p2", "p3"},
		NewStatus:   "OUT_FOR_DELIVERY",
		PerformedBy: "operator-1",
	}, &BatchUpdateConfig{ContinueOnError: false})

	if res.Failed != 3 || res.Successful != 0 {
		t.Fatalf("successful/failed = %d/%d, want 0/3", res.Successful, res.Failed)
	}
	if len(res.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(res.Results))
	}
	for _, item := range res.Results[1:] {
		if !strings.Contains(item.Error, "skipped") {
			t.Fatalf("item error = %q, want skipped marker", item.Error)
		}
	}
	if got := deps.state.packageStatus("p2"); got != domain.PackageInTransit {
		t.Fatalf("skipped item must not mutate state, got %s", got)
	}
}

func TestExecuteStatusUpdateDuplicateBatch(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageInTransit)
	deps.svc.SetDedupStore(&fakeDedup{
		claimFn: func(ctx context.Context, batchID string) (bool, error) {
			return false, nil
		},
	})

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1"},
		NewStatus:   "OUT_FOR_DELIVERY",
		PerformedBy: "operator-1",
		BatchID:     "batch-repeat",
	}, nil)

	if res.Success {
		t.Fatal("duplicate batch should not succeed")
	}
	if len(res.Results) != 0 {
		t.Fatalf("duplicate batch should process no items, got %d", len(res.Results))
	}
	if got := deps.state.packageStatus("p1"); got != domain.PackageInTransit {
		t.Fatalf("duplicate batch must not mutate state, got %s", got)
	}
}

func TestExecuteStatusUpdateRollbackOnHistoryFailure(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageInTransit)
	deps.history.appendFn = func(ctx context.Context, entry *domain.StatusHistoryEntry) error {
		return fmt.Errorf("disk full")
	}

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:  TargetPackage,
		TargetIDs:   []string{"p1"},
		NewStatus:   "OUT_FOR_DELIVERY",
		PerformedBy: "operator-1",
	}, &BatchUpdateConfig{ContinueOnError: true, RollbackOnFailure: true})

	if res.Successful != 0 || res.Failed != 1 {
		t.Fatalf("successful/failed = %d/%d, want 0/1", res.Successful, res.Failed)
	}
	if got := deps.state.packageStatus("p1"); got != domain.PackageInTransit {
		t.Fatalf("rollback should restore IN_TRANSIT, got %s", got)
	}
	if points := deps.state.pointsForPackage("p1"); len(points) != 0 {
		t.Fatalf("rollback should remove the tracking point, got %d", len(points))
	}
}

func TestExecuteStatusUpdateNotifierAggregation(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	seedPackage(deps, "p1", "c1", domain.PackageInTransit)
	seedPackage(deps, "p2", "c1", domain.PackageInTransit)
	seedPackage(deps, "p3", "c2", domain.PackageInTransit)

	res := deps.svc.ExecuteStatusUpdate(context.Background(), StatusUpdateRequest{
		TargetType:      TargetPackage,
		TargetIDs:       []string{"p1", "p2", "p3"},
		NewStatus:       "OUT_FOR_DELIVERY",
		PerformedBy:     "operator-1",
		NotifyCustomers: true,
	}, nil)

	if res.NotificationsSent != 2 {
		t.Fatalf("NotificationsSent = %d, want 2", res.NotificationsSent)
	}
	if len(deps.notifier.summaries) != 1 {
		t.Fatalf("Notify calls = %d, want 1", len(deps.notifier.summaries))
	}
	summary := deps.notifier.summaries[0]
	if len(summary.Customers) != 2 {
		t.Fatalf("customer updates = %d, want 2", len(summary.Customers))
	}
	var c1 *notify.CustomerUpdate
	for i := range summary.Customers {
		if summary.Customers[i].CustomerID == "c1" {
			c1 = &summary.Customers[i]
		}
	}
	if c1 == nil || len(c1.PackageIDs) != 2 {
		t.Fatalf("c1 update = %+v, want two package ids", c1)
	}
}

func TestBatchUpdateGroupStatusDefaults(t *testing.T) {
	t.Parallel()

	deps := newTestDeps(t)
	deps.state.addGroup(domain.PackageGroup{ID: "g1", Name: "Route Gamma", Status: domain.GroupDelivering})
	groupID := "g1"
	deps.state.addPackage(domain.Package{
		ID:              "p1",
		TrackingNumber:  "TRK-p1",
		CustomerID:      "c1",
		GroupID:         &groupID,
		Status:          domain.PackageOutForDelivery,
		Priority:        domain.PriorityStandard,
		DestinationCity: "Kumasi",
		WeightKg:        1,
	})

	res := deps.svc.BatchUpdateGroupStatus(
		context.Background(),
		[]string{"g1"},
		domain.GroupCompleted,
		"dispatcher-1",
		"route finished",
		"",
	)

	if !res.Success {
		t.Fatalf("Success = false, result: %+v", res)
	}
	if got := deps.state.packageStatus("p1"); got != domain.PackageDelivered {
		t.Fatalf("cascaded package status = %s, want DELIVERED", got)
	}
	if res.NotificationsSent != 1 {
		t.Fatalf("NotificationsSent = %d, want 1", res.NotificationsSent)
	}
}
