package models

import "time"

// User represents an account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email          string `gorm:"type:text;not null;uniqueIndex"` // Email address as entered at signup.
	CanonicalEmail string `gorm:"type:text;not null;uniqueIndex"` // Normalized form used for lookups.
	Name           string `gorm:"type:text"`                      // Display name.
	Password       string `gorm:"type:text;not null"`             // Hashed password.

	Activated bool       `gorm:"not null;default:false"` // Set once the activation code is confirmed.
	Disabled  bool       `gorm:"not null;default:false"` // Explicit disable flag.
	DeleteOn  *time.Time `gorm:"index"`                  // Scheduled deletion marker.

	TOTPSecret string `gorm:"type:text"`              // TOTP secret for MFA.
	EnableOTP  bool   `gorm:"not null;default:false"` // Whether TOTP MFA is enabled.
	FIDOUUID   string `gorm:"type:text"`              // FIDO credential marker, managed by the web app.

	APIKeys []APIKey `gorm:"foreignKey:UserID"` // Related API keys.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// CanLogin reports whether the account is usable for authentication.
func (u *User) CanLogin() bool {
	return u.Activated && !u.Disabled && u.DeleteOn == nil
}

// FIDOEnabled reports whether a FIDO credential is registered.
func (u *User) FIDOEnabled() bool {
	return u.FIDOUUID != ""
}
