package repository

import (
	"context"
	"fmt"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
	"gorm.io/gorm"
)

// HistoryRepository is the persistence port for the status-change audit trail.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.StatusHistoryEntry) error
	ListForEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.StatusHistoryEntry, error)
	CountForEntity(ctx context.Context, entityType domain.EntityType, entityID string) (int64, error)
	// DeleteByID removes an entry. Used only by rollback compensation.
	DeleteByID(ctx context.Context, id string) error
}

type GormHistoryRepo struct {
	db *gorm.DB
}

func NewGormHistoryRepo(db *gorm.DB) *GormHistoryRepo {
	return &GormHistoryRepo{db: db}
}

func (r *GormHistoryRepo) Append(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: history entry is required", domain.ErrValidation)
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormHistoryRepo) ListForEntity(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.StatusHistoryEntry, error) {
	var entries []domain.StatusHistoryEntry
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("timestamp ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormHistoryRepo) CountForEntity(ctx context.Context, entityType domain.EntityType, entityID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.StatusHistoryEntry{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormHistoryRepo) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Delete(&domain.StatusHistoryEntry{}, "id = ?", id).Error
}
