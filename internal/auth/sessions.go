package auth

import (
	"context"
	"errors"
	"time"

	"github.com/maskbox/maskbox/internal/models"
	"github.com/maskbox/maskbox/internal/security"
	"gorm.io/gorm"
)

// Sessions manages browser session records.
type Sessions struct {
	db    *gorm.DB
	ttl   time.Duration
	nowFn func() time.Time
}

// NewSessions constructs a Sessions store.
func NewSessions(db *gorm.DB, ttl time.Duration) *Sessions {
	return &Sessions{db: db, ttl: ttl, nowFn: time.Now}
}

// Establish creates a fresh session for the user.
func (s *Sessions) Establish(ctx context.Context, userID uint64) (*models.Session, error) {
	code, errGenerate := security.GenerateRandomString(32)
	if errGenerate != nil {
		return nil, wrap(KindInternal, "generate session code", errGenerate)
	}
	now := s.nowFn().UTC()
	session := models.Session{
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&session).Error; errCreate != nil {
		return nil, wrap(KindInternal, "create session", errCreate)
	}
	return &session, nil
}

// Lookup resolves an unexpired session by its cookie code.
func (s *Sessions) Lookup(ctx context.Context, code string) (*models.Session, error) {
	if code == "" {
		return nil, E(KindUnauthorized, "no session")
	}
	var session models.Session
	errFind := s.db.WithContext(ctx).
		Where("code = ? AND expires_at > ?", code, s.nowFn().UTC()).
		First(&session).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, E(KindUnauthorized, "no session")
	}
	if errFind != nil {
		return nil, wrap(KindInternal, "lookup session", errFind)
	}
	return &session, nil
}

// Destroy removes a session by its cookie code.
func (s *Sessions) Destroy(ctx context.Context, code string) error {
	if code == "" {
		return nil
	}
	if errDelete := s.db.WithContext(ctx).
		Where("code = ?", code).
		Delete(&models.Session{}).Error; errDelete != nil {
		return wrap(KindInternal, "destroy session", errDelete)
	}
	return nil
}
