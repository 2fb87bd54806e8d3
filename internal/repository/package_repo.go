package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
	"gorm.io/gorm"
)

// PackageRepository is the persistence port for shipment packages.
type PackageRepository interface {
	Create(ctx context.Context, pkg *domain.Package) error
	GetByID(ctx context.Context, id string) (*domain.Package, error)
	UpdateStatus(ctx context.Context, id string, status domain.PackageStatus) error
	ListByGroupID(ctx context.Context, groupID string) ([]domain.Package, error)
}

type GormPackageRepo struct {
	db *gorm.DB
}

func NewGormPackageRepo(db *gorm.DB) *GormPackageRepo {
	return &GormPackageRepo{db: db}
}

func (r *GormPackageRepo) Create(ctx context.Context, pkg *domain.Package) error {
	if pkg == nil {
		return fmt.Errorf("%w: package is required", domain.ErrValidation)
	}
	if err := pkg.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *GormPackageRepo) GetByID(ctx context.Context, id string) (*domain.Package, error) {
	var pkg domain.Package
	err := r.db.WithContext(ctx).First(&pkg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: package %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *GormPackageRepo) UpdateStatus(ctx context.Context, id string, status domain.PackageStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid package status %q", domain.ErrValidation, status)
	}

	res := r.db.WithContext(ctx).
		Model(&domain.Package{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: package %s", domain.ErrNotFound, id)
	}
	return nil
}

func (r *GormPackageRepo) ListByGroupID(ctx context.Context, groupID string) ([]domain.Package, error) {
	var packages []domain.Package
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Find(&packages).Error
	if err != nil {
		return nil, err
	}
	return packages, nil
}
