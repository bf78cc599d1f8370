package models

import "time"

// APISessionToken is a single-use code letting an API-authenticated client
// obtain a browser session. It is bound to the API key that requested it.
type APISessionToken struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   uint64  `gorm:"not null;index"`      // Owning user.
	User     *User   `gorm:"foreignKey:UserID"`   // Owning user record.
	APIKeyID uint64  `gorm:"not null;index"`      // Requesting API key.
	APIKey   *APIKey `gorm:"foreignKey:APIKeyID"` // Requesting API key record.

	Code      string    `gorm:"type:text;not null;uniqueIndex"` // One-time token value.
	ExpiresAt time.Time `gorm:"not null"`                       // Hard expiry.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
