package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/utkarsh-blandlabs/awh-outbound-orchestrator-sub001/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_prospect_records",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ProspectRecordModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_prospect_records_dispatchable ON prospect_records (status, created_at, next_eligible_at)`,
					`CREATE INDEX IF NOT EXISTS idx_prospect_records_partition_month ON prospect_records (partition_month)`,
					`CREATE INDEX IF NOT EXISTS idx_prospect_records_phone ON prospect_records (phone)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ProspectRecordModel{})
			},
		},
		{
			ID: "000002_create_quarantined_prospects",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.QuarantineModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_quarantined_prospects_created ON quarantined_prospects (created_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.QuarantineModel{})
			},
		},
	})

	return m.Migrate()
}
