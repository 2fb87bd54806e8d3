package service

import (
	"fmt"
	"strings"
	"time"
)

// TargetType selects which entity kind a status update addresses.
type TargetType string

const (
	TargetPackage TargetType = "package"
	TargetGroup   TargetType = "group"
	// TargetBatch is accepted as an alias for package processing. Mixed-kind
	// batches are not supported.
	TargetBatch TargetType = "batch"
)

func (t TargetType) String() string { return string(t) }

func (t TargetType) IsValid() bool {
	return t == TargetPackage || t == TargetGroup || t == TargetBatch
}

func ParseTargetTypeFromString(s string) (TargetType, error) {
	t := TargetType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid target type %q", s)
	}
	return t, nil
}

// ValidationLevel tunes how validator warnings are treated.
type ValidationLevel string

const (
	// ValidationStrict escalates validator warnings to per-item failures.
	ValidationStrict ValidationLevel = "strict"
	// ValidationNormal surfaces warnings without failing the item.
	ValidationNormal ValidationLevel = "normal"
	// ValidationLenient drops validator warnings entirely.
	ValidationLenient ValidationLevel = "lenient"
)

// StatusUpdateRequest describes one status change applied to one or many
// targets. It is immutable once submitted.
type StatusUpdateRequest struct {
	TargetType  TargetType
	TargetIDs   []string
	NewStatus   string
	PerformedBy string
	ActorRole   string
	Reason      string
	Notes       string
	Location    string
	// ScheduledFor, when set, must be an RFC3339 instant or the request is
	// rejected.
	ScheduledFor     string
	SkipValidation   bool
	ForceUpdate      bool
	CascadeToRelated bool
	NotifyCustomers  bool
	Source           string
	// BatchID is an optional caller-supplied idempotency token.
	BatchID  string
	Metadata map[string]string
}

// BatchUpdateConfig is per-call tuning for a status-update batch.
type BatchUpdateConfig struct {
	MaxBatchSize         int
	ParallelProcessing   bool
	ContinueOnError      bool
	ValidationLevel      ValidationLevel
	NotificationBatching bool
	RollbackOnFailure    bool
}

const defaultMaxBatchSize = 100

func DefaultBatchUpdateConfig() BatchUpdateConfig {
	return BatchUpdateConfig{
		MaxBatchSize:         defaultMaxBatchSize,
		ParallelProcessing:   true,
		ContinueOnError:      true,
		ValidationLevel:      ValidationNormal,
		NotificationBatching: true,
		RollbackOnFailure:    false,
	}
}

// resolveConfig merges a caller config over the defaults. A nil config means
// all defaults; zero-valued fields of a provided config fall back per field.
func resolveConfig(cfg *BatchUpdateConfig) BatchUpdateConfig {
	if cfg == nil {
		return DefaultBatchUpdateConfig()
	}

	resolved := *cfg
	if resolved.MaxBatchSize <= 0 {
		resolved.MaxBatchSize = defaultMaxBatchSize
	}
	switch resolved.ValidationLevel {
	case ValidationStrict, ValidationNormal, ValidationLenient:
	default:
		resolved.ValidationLevel = ValidationNormal
	}
	return resolved
}

// ItemResult is the outcome for one target of a batch.
type ItemResult struct {
	TargetID              string
	TargetType            TargetType
	Success               bool
	PreviousStatus        string
	NewStatus             string
	TrackingPointsCreated int
	Error                 string
	Warnings              []string
}

// StatusUpdateResult is the terminal artifact of one status-update call.
// It accumulates during processing and is frozen before return.
type StatusUpdateResult struct {
	Success               bool
	BatchID               string
	TotalRequested        int
	Successful            int
	Failed                int
	Warnings              int
	NotificationsSent     int
	TrackingPointsCreated int
	StatusHistoryEntries  int
	ExecutionTime         time.Duration
	Results               []ItemResult
	GlobalWarnings        []string
	GlobalErrors          []string
	ValidationFailures    []string
	Timestamp             time.Time
	PerformedBy           string
	AffectedCustomers     []string
}

// validateRequest runs the synchronous, side-effect-free request checks.
// It returns the list of failures; an empty list means the request may proceed.
func validateRequest(req StatusUpdateRequest) []string {
	var failures []string

	if !req.TargetType.IsValid() {
		failures = append(failures, fmt.Sprintf("invalid target type %q", req.TargetType))
	}
	if len(req.TargetIDs) == 0 {
		failures = append(failures, "targetIds must not be empty")
	}
	if strings.TrimSpace(req.NewStatus) == "" {
		failures = append(failures, "newStatus is required")
	}
	if strings.TrimSpace(req.PerformedBy) == "" {
		failures = append(failures, "performedBy is required")
	}
	if s := strings.TrimSpace(req.ScheduledFor); s != "" {
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			failures = append(failures, fmt.Sprintf("scheduledFor %q is not a valid RFC3339 instant", req.ScheduledFor))
		}
	}

	return failures
}
