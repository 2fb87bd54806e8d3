package repository

import (
	"context"
	"fmt"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
	"gorm.io/gorm"
)

// TrackingRepository is the persistence port for package tracking timelines.
type TrackingRepository interface {
	// Append assigns the next sequence for the package, deactivates all prior
	// points, and inserts the new point in one transaction. On return
	// point.Sequence holds the assigned value.
	Append(ctx context.Context, point *domain.TrackingPoint) error
	ListForPackage(ctx context.Context, packageID string) ([]domain.TrackingPoint, error)
	// DeleteByID removes a point. Used only by rollback compensation.
	DeleteByID(ctx context.Context, id string) error
}

type GormTrackingRepo struct {
	db *gorm.DB
}

func NewGormTrackingRepo(db *gorm.DB) *GormTrackingRepo {
	return &GormTrackingRepo{db: db}
}

func (r *GormTrackingRepo) Append(ctx context.Context, point *domain.TrackingPoint) error {
	if point == nil {
		return fmt.Errorf("%w: tracking point is required", domain.ErrValidation)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if point.IsActive {
			err := tx.Model(&domain.TrackingPoint{}).
				Where("package_id = ? AND is_active = ?", point.PackageID, true).
				Update("is_active", false).Error
			if err != nil {
				return fmt.Errorf("failed to deactivate prior tracking points: %w", err)
			}
		}

		// Sequence is assigned inside the transaction; the unique index on
		// (package_id, sequence) rejects the loser of a concurrent append.
		var count int64
		err := tx.Model(&domain.TrackingPoint{}).
			Where("package_id = ?", point.PackageID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to count tracking points: %w", err)
		}
		point.Sequence = int(count) + 1

		if err := point.Validate(); err != nil {
			return err
		}
		if err := tx.Create(point).Error; err != nil {
			return fmt.Errorf("failed to insert tracking point: %w", err)
		}
		return nil
	})
}

func (r *GormTrackingRepo) ListForPackage(ctx context.Context, packageID string) ([]domain.TrackingPoint, error) {
	var points []domain.TrackingPoint
	err := r.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("sequence ASC").
		Find(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (r *GormTrackingRepo) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Delete(&domain.TrackingPoint{}, "id = ?", id).Error
}
