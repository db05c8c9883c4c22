package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/dae-backend/internal/domain"
)

// legacyPendingHashIndex made tx_hash unique across users.
const legacyPendingHashIndex = "idx_pending_transactions_tx_hash"

func AutoMigrateAll(db *gorm.DB) error {
	err := db.AutoMigrate(
		// Course mirror
		&types.Course{},
		&types.Credential{},
		&types.UserCredential{},

		// Write-ahead markers
		&types.PendingTransaction{},
	)
	if err != nil {
		return err
	}
	if m := db.Migrator(); m.HasIndex(&types.PendingTransaction{}, legacyPendingHashIndex) {
		return m.DropIndex(&types.PendingTransaction{}, legacyPendingHashIndex)
	}
	return nil
}
