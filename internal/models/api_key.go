package models

import "time"

// APIKey is a long-lived per-device bearer credential.
type APIKey struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex:idx_api_keys_user_device"` // Owning user.
	User   *User  `gorm:"foreignKey:UserID"`                             // Owning user record.

	Name string `gorm:"type:text;not null;uniqueIndex:idx_api_keys_user_device"` // Device label.
	Code string `gorm:"type:text;not null;uniqueIndex"`                          // Bearer secret, never rotated.

	TimesUsed  int64      `gorm:"not null;default:0"` // Authenticated request counter.
	LastUsed   *time.Time // Last authenticated use.
	SudoModeAt *time.Time // Last successful sudo re-authentication.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
