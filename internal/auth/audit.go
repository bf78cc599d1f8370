package auth

import (
	"github.com/maskbox/maskbox/internal/models"
	"gorm.io/gorm"
)

// emitAudit appends a user audit log entry within the caller's transaction.
func emitAudit(tx *gorm.DB, userID uint64, action, message string) error {
	return tx.Create(&models.UserAuditLog{
		UserID:  userID,
		Action:  action,
		Message: message,
	}).Error
}
