package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
	"github.com/Kaeytee/warehouse-sub003/internal/repository"
	"github.com/Kaeytee/warehouse-sub003/internal/service"
	"github.com/gofiber/fiber/v2"
)

// StatusUpdater is the orchestration port the HTTP layer depends on.
type StatusUpdater interface {
	ExecuteStatusUpdate(ctx context.Context, req service.StatusUpdateRequest, cfg *service.BatchUpdateConfig) service.StatusUpdateResult
	BatchUpdateGroupStatus(ctx context.Context, groupIDs []string, status domain.GroupStatus, performedBy, reason, scheduledFor string) service.StatusUpdateResult
}

type StatusHandler struct {
	updater  StatusUpdater
	tracking repository.TrackingRepository
	history  repository.HistoryRepository
}

func NewStatusHandler(
	updater StatusUpdater,
	tracking repository.TrackingRepository,
	history repository.HistoryRepository,
) (*StatusHandler, error) {
	if updater == nil {
		return nil, fmt.Errorf("status updater is required")
	}
	if tracking == nil {
		return nil, fmt.Errorf("tracking repository is required")
	}
	if history == nil {
		return nil, fmt.Errorf("history repository is required")
	}
	return &StatusHandler{
		updater:  updater,
		tracking: tracking,
		history:  history,
	}, nil
}

func RegisterStatusRoutes(
	router fiber.Router,
	updater StatusUpdater,
	tracking repository.TrackingRepository,
	history repository.HistoryRepository,
) error {
	h, err := NewStatusHandler(updater, tracking, history)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/status-updates", h.ExecuteStatusUpdate)
	v1.Post("/groups/status", h.UpdateGroupStatus)
	v1.Get("/packages/:id/tracking", h.GetPackageTracking)
	v1.Get("/packages/:id/history", h.GetPackageHistory)

	return nil
}

type batchConfigRequest struct {
	MaxBatchSize         int    `json:"maxBatchSize"`
	ParallelProcessing   *bool  `json:"parallelProcessing"`
	ContinueOnError      *bool  `json:"continueOnError"`
	ValidationLevel      string `json:"validationLevel"`
	NotificationBatching *bool  `json:"notificationBatching"`
	RollbackOnFailure    bool   `json:"rollbackOnFailure"`
}

type statusUpdateRequest struct {
	TargetType       string              `json:"targetType"`
	TargetIDs        []string            `json:"targetIds"`
	NewStatus        string              `json:"newStatus"`
	PerformedBy      string              `json:"performedBy"`
	ActorRole        string              `json:"actorRole"`
	Reason           string              `json:"reason"`
	Notes            string              `json:"notes"`
	Location         string              `json:"location"`
	ScheduledFor     string              `json:"scheduledFor"`
	SkipValidation   bool                `json:"skipValidation"`
	ForceUpdate      bool                `json:"forceUpdate"`
	CascadeToRelated bool                `json:"cascadeToRelated"`
	NotifyCustomers  bool                `json:"notifyCustomers"`
	Source           string              `json:"source"`
	BatchID          string              `json:"batchId"`
	Metadata         map[string]string   `json:"metadata"`
	Config           *batchConfigRequest `json:"config"`
}

type groupStatusRequest struct {
	GroupIDs     []string `json:"groupIds"`
	NewStatus    string   `json:"newStatus"`
	PerformedBy  string   `json:"performedBy"`
	Reason       string   `json:"reason"`
	ScheduledFor string   `json:"scheduledFor"`
}

type itemResultResponse struct {
	TargetID              string   `json:"targetId"`
	TargetType            string   `json:"targetType"`
	Success               bool     `json:"success"`
	PreviousStatus        string   `json:"previousStatus,omitempty"`
	NewStatus             string   `json:"newStatus,omitempty"`
	TrackingPointsCreated int      `json:"trackingPointsCreated"`
	Error                 string   `json:"error,omitempty"`
	Warnings              []string `json:"warnings,omitempty"`
}

type statusUpdateResponse struct {
	Success               bool                 `json:"success"`
	BatchID               string               `json:"batchId"`
	TotalRequested        int                  `json:"totalRequested"`
	Successful            int                  `json:"successful"`
	Failed                int                  `json:"failed"`
	Warnings              int                  `json:"warnings"`
	NotificationsSent     int                  `json:"notificationsSent"`
	TrackingPointsCreated int                  `json:"trackingPointsCreated"`
	StatusHistoryEntries  int                  `json:"statusHistoryEntries"`
	ExecutionTimeMillis   int64                `json:"executionTimeMillis"`
	Results               []itemResultResponse `json:"results"`
	GlobalWarnings        []string             `json:"globalWarnings,omitempty"`
	GlobalErrors          []string             `json:"globalErrors,omitempty"`
	ValidationFailures    []string             `json:"validationFailures,omitempty"`
	Timestamp             time.Time            `json:"timestamp"`
	PerformedBy           string               `json:"performedBy"`
	AffectedCustomers     []string             `json:"affectedCustomers,omitempty"`
}

type trackingPointResponse struct {
	ID           string    `json:"id"`
	PackageID    string    `json:"packageId"`
	Location     string    `json:"location"`
	City         string    `json:"city"`
	FacilityType string    `json:"facilityType"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Sequence     int       `json:"sequence"`
	IsMilestone  bool      `json:"isMilestone"`
	IsActive     bool      `json:"isActive"`
	Source       string    `json:"source"`
}

type historyEntryResponse struct {
	ID             string    `json:"id"`
	EntityID       string    `json:"entityId"`
	EntityType     string    `json:"entityType"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	StatusCategory string    `json:"statusCategory"`
	ImpactLevel    string    `json:"impactLevel"`
	Actor          string    `json:"actor"`
	Reason         string    `json:"reason,omitempty"`
	Location       string    `json:"location,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func (h *StatusHandler) ExecuteStatusUpdate(c *fiber.Ctx) error {
	var req statusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	targetType, err := service.ParseTargetTypeFromString(req.TargetType)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result := h.updater.ExecuteStatusUpdate(c.Context(), service.StatusUpdateRequest{
		TargetType:       targetType,
		TargetIDs:        req.TargetIDs,
		NewStatus:        req.NewStatus,
		PerformedBy:      req.PerformedBy,
		ActorRole:        req.ActorRole,
		Reason:           req.Reason,
		Notes:            req.Notes,
		Location:         req.Location,
		ScheduledFor:     req.ScheduledFor,
		SkipValidation:   req.SkipValidation,
		ForceUpdate:      req.ForceUpdate,
		CascadeToRelated: req.CascadeToRelated,
		NotifyCustomers:  req.NotifyCustomers,
		Source:           req.Source,
		BatchID:          req.BatchID,
		Metadata:         req.Metadata,
	}, toBatchConfig(req.Config))

	status := fiber.StatusOK
	if len(result.ValidationFailures) > 0 && len(result.Results) == 0 {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(toStatusUpdateResponse(result))
}

func (h *StatusHandler) UpdateGroupStatus(c *fiber.Ctx) error {
	var req groupStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	groupStatus, err := domain.ParseGroupStatusFromString(req.NewStatus)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result := h.updater.BatchUpdateGroupStatus(
		c.Context(),
		req.GroupIDs,
		groupStatus,
		req.PerformedBy,
		req.Reason,
		req.ScheduledFor,
	)

	status := fiber.StatusOK
	if len(result.ValidationFailures) > 0 && len(result.Results) == 0 {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(toStatusUpdateResponse(result))
}

func (h *StatusHandler) GetPackageTracking(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "package id is required")
	}

	points, err := h.tracking.ListForPackage(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]trackingPointResponse, 0, len(points))
	for _, p := range points {
		responses = append(responses, trackingPointResponse{
			ID:           p.ID,
			PackageID:    p.PackageID,
			Location:     p.Location,
			City:         p.City,
			FacilityType: p.FacilityType,
			Status:       string(p.Status),
			Timestamp:    p.Timestamp,
			Sequence:     p.Sequence,
			IsMilestone:  p.IsMilestone,
			IsActive:     p.IsActive,
			Source:       p.Source,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"packageId": id,
		"points":    responses,
	})
}

func (h *StatusHandler) GetPackageHistory(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "package id is required")
	}

	entries, err := h.history.ListForEntity(c.Context(), domain.EntityPackage, id)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, historyEntryResponse{
			ID:             e.ID,
			EntityID:       e.EntityID,
			EntityType:     string(e.EntityType),
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			StatusCategory: string(e.StatusCategory),
			ImpactLevel:    string(e.ImpactLevel),
			Actor:          e.Actor,
			Reason:         e.Reason,
			Location:       e.Location,
			Timestamp:      e.Timestamp,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"entityId": id,
		"entries":  responses,
	})
}

func toBatchConfig(req *batchConfigRequest) *service.BatchUpdateConfig {
	if req == nil {
		return nil
	}

	cfg := service.DefaultBatchUpdateConfig()
	if req.MaxBatchSize > 0 {
		cfg.MaxBatchSize = req.MaxBatchSize
	}
	if req.ParallelProcessing != nil {
		cfg.ParallelProcessing = *req.ParallelProcessing
	}
	if req.ContinueOnError != nil {
		cfg.ContinueOnError = *req.ContinueOnError
	}
	if req.NotificationBatching != nil {
		cfg.NotificationBatching = *req.NotificationBatching
	}
	if level := strings.TrimSpace(req.ValidationLevel); level != "" {
		cfg.ValidationLevel = service.ValidationLevel(strings.ToLower(level))
	}
	cfg.RollbackOnFailure = req.RollbackOnFailure

	return &cfg
}

func toStatusUpdateResponse(result service.StatusUpdateResult) statusUpdateResponse {
	items := make([]itemResultResponse, 0, len(result.Results))
	for _, item := range result.Results {
		items = append(items, itemResultResponse{
			TargetID:              item.TargetID,
			TargetType:            string(item.TargetType),
			Success:               item.Success,
			PreviousStatus:        item.PreviousStatus,
			NewStatus:             item.NewStatus,
			TrackingPointsCreated: item.TrackingPointsCreated,
			Error:                 item.Error,
			Warnings:              item.Warnings,
		})
	}

	return statusUpdateResponse{
		Success:               result.Success,
		BatchID:               result.BatchID,
		TotalRequested:        result.TotalRequested,
		Successful:            result.Successful,
		Failed:                result.Failed,
		Warnings:              result.Warnings,
		NotificationsSent:     result.NotificationsSent,
		TrackingPointsCreated: result.TrackingPointsCreated,
		StatusHistoryEntries:  result.StatusHistoryEntries,
		ExecutionTimeMillis:   result.ExecutionTime.Milliseconds(),
		Results:               items,
		GlobalWarnings:        result.GlobalWarnings,
		GlobalErrors:          result.GlobalErrors,
		ValidationFailures:    result.ValidationFailures,
		Timestamp:             result.Timestamp,
		PerformedBy:           result.PerformedBy,
		AffectedCustomers:     result.AffectedCustomers,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateBatch):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
