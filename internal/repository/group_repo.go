package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
	"gorm.io/gorm"
)

// GroupRepository is the persistence port for package groups.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.PackageGroup) error
	GetByID(ctx context.Context, id string) (*domain.PackageGroup, error)
	UpdateStatus(ctx context.Context, id string, status domain.GroupStatus) error
}

type GormGroupRepo struct {
	db *gorm.DB
}

func NewGormGroupRepo(db *gorm.DB) *GormGroupRepo {
	return &GormGroupRepo{db: db}
}

func (r *GormGroupRepo) Create(ctx context.Context, group *domain.PackageGroup) error {
	if group == nil {
		return fmt.Errorf("%w: group is required", domain.ErrValidation)
	}
	if err := group.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *GormGroupRepo) GetByID(ctx context.Context, id string) (*domain.PackageGroup, error) {
	var group domain.PackageGroup
	err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: group %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &group, nil
}

func (r *GormGroupRepo) UpdateStatus(ctx context.Context, id string, status domain.GroupStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid group status %q", domain.ErrValidation, status)
	}

	res := r.db.WithContext(ctx).
		Model(&domain.PackageGroup{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: group %s", domain.ErrNotFound, id)
	}
	return nil
}
