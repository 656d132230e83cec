package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/teamseats/internal/models"
)

// PendingInvitationIndex enforces a single pending invitation per owner and email.
const PendingInvitationIndex = "idx_team_invitations_pending_member"

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := db.AutoMigrate(
		&models.UserData{},
		&models.TeamMember{},
		&models.TeamInvitation{},
		&models.CacheEntry{},
		&models.SystemSetting{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := ensurePendingInvitationIndex(db); err != nil {
		return fmt.Errorf("pending invitation index: %w", err)
	}
	return nil
}

// SupportsPartialIndexes reports whether the dialect can enforce the pending
// invitation uniqueness in the schema.
func SupportsPartialIndexes(db *gorm.DB) bool {
	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		return true
	default:
		return false
	}
}

func ensurePendingInvitationIndex(db *gorm.DB) error {
	if !SupportsPartialIndexes(db) {
		return nil
	}
	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON team_invitations (team_owner_id, member_email) WHERE status = '%s'",
		PendingInvitationIndex,
		models.InvitationPending,
	)
	return db.Exec(stmt).Error
}
