package auth

import (
	"context"
	"errors"
	"time"

	"github.com/maskbox/maskbox/internal/models"
	"github.com/maskbox/maskbox/internal/security"
	"gorm.io/gorm"
)

// SessionTokens exchanges API-channel credentials for browser sessions via
// single-use opaque codes.
type SessionTokens struct {
	db       *gorm.DB
	ttl      time.Duration
	sessions *Sessions
	nowFn    func() time.Time
}

// NewSessionTokens constructs a SessionTokens exchange.
func NewSessionTokens(db *gorm.DB, ttl time.Duration, sessions *Sessions) *SessionTokens {
	return &SessionTokens{db: db, ttl: ttl, sessions: sessions, nowFn: time.Now}
}

// Issue mints a token bound to the user and to the specific API key that
// requested it, so a leaked token cannot be replayed from another device.
func (t *SessionTokens) Issue(ctx context.Context, userID, apiKeyID uint64) (*models.APISessionToken, error) {
	code, errGenerate := security.GenerateRandomString(32)
	if errGenerate != nil {
		return nil, wrap(KindInternal, "generate session token", errGenerate)
	}
	now := t.nowFn().UTC()
	token := models.APISessionToken{
		UserID:    userID,
		APIKeyID:  apiKeyID,
		Code:      code,
		ExpiresAt: now.Add(t.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := t.db.WithContext(ctx).Create(&token).Error; errCreate != nil {
		return nil, wrap(KindInternal, "create session token", errCreate)
	}
	return &token, nil
}

// Redeem consumes a token and establishes a browser session. The token is
// invalidated on first use regardless of outcome: the delete is the
// single-winner step, so a second redemption always fails.
func (t *SessionTokens) Redeem(ctx context.Context, code string) (*models.Session, error) {
	if code == "" {
		return nil, E(KindInvalidToken, "Invalid token")
	}

	var token models.APISessionToken
	errFind := t.db.WithContext(ctx).Where("code = ?", code).First(&token).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, E(KindInvalidToken, "Invalid token")
	}
	if errFind != nil {
		return nil, wrap(KindInternal, "lookup session token", errFind)
	}

	res := t.db.WithContext(ctx).Where("id = ?", token.ID).Delete(&models.APISessionToken{})
	if res.Error != nil {
		return nil, wrap(KindInternal, "consume session token", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race to a concurrent redemption.
		return nil, E(KindInvalidToken, "Invalid token")
	}

	if t.nowFn().UTC().After(token.ExpiresAt) {
		return nil, E(KindInvalidToken, "Invalid token")
	}
	return t.sessions.Establish(ctx, token.UserID)
}
