package models

import (
	"time"

	"gorm.io/datatypes"
)

// SocialAuth links a user to an external identity provider.
type SocialAuth struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex:idx_social_auths_user_provider"` // Owning user.
	User   *User  `gorm:"foreignKey:UserID"`                                   // Owning user record.

	Provider string         `gorm:"type:text;not null;uniqueIndex:idx_social_auths_user_provider"` // Provider name, e.g. "google".
	Profile  datatypes.JSON `gorm:"type:jsonb"`                                                    // Raw provider profile payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
