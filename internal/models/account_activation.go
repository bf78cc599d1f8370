package models

import "time"

// AccountActivation holds the pending activation code for a user.
// At most one live row exists per user; re-issuing replaces it.
type AccountActivation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex"` // Owning user.
	User   *User  `gorm:"foreignKey:UserID"`    // Owning user record.

	Code  string `gorm:"type:text;not null"` // Numeric activation code.
	Tries int    `gorm:"not null"`           // Remaining wrong-code submissions.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
