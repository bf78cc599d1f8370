package models

import "time"

// Audit log action names.
const (
	AuditActivateUser        = "activate_user"
	AuditEnterSudo           = "enter_sudo"
	AuditScheduleUserDeleted = "schedule_user_deletion"
)

// UserAuditLog records security-relevant account events.
type UserAuditLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID  uint64 `gorm:"not null;index"`     // Affected user.
	Action  string `gorm:"type:text;not null"` // Action name.
	Message string `gorm:"type:text"`          // Human-readable detail.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
