package migrations

import (
	"github.com/Kaeytee/warehouse-sub003/internal/domain"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_packages",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.Package{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_packages_tracking_number ON packages (tracking_number)`,
					`CREATE INDEX IF NOT EXISTS idx_packages_customer_status ON packages (customer_id, status)`,
					`CREATE INDEX IF NOT EXISTS idx_packages_group_id ON packages (group_id) WHERE group_id IS NOT NULL`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.Package{})
			},
		},
		{
			ID: "000002_create_package_groups",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.PackageGroup{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_package_groups_status ON package_groups (status)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.PackageGroup{})
			},
		},
		{
			ID: "000003_create_tracking_points",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.TrackingPoint{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_tracking_points_package_sequence ON tracking_points (package_id, sequence)`,
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_tracking_points_active ON tracking_points (package_id) WHERE is_active`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.TrackingPoint{})
			},
		},
		{
			ID: "000004_create_status_history_entries",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.StatusHistoryEntry{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_status_history_entity ON status_history_entries (entity_type, entity_id, timestamp)`,
					`CREATE INDEX IF NOT EXISTS idx_status_history_category ON status_history_entries (status_category, timestamp)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.StatusHistoryEntry{})
			},
		},
	})

	return m.Migrate()
}
