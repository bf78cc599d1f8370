package models

import "time"

// Session is a browser session record referenced by the session cookie.
type Session struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user.
	User   *User  `gorm:"foreignKey:UserID"` // Owning user record.

	Code      string    `gorm:"type:text;not null;uniqueIndex"` // Opaque cookie value.
	ExpiresAt time.Time `gorm:"not null"`                       // Hard expiry.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
