package db

import (
	"fmt"

	"github.com/maskbox/maskbox/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the auth core entities.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.AccountActivation{},
		&models.Session{},
		&models.APISessionToken{},
		&models.SocialAuth{},
		&models.UserAuditLog{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}
