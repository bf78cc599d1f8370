package auth

import (
	"context"
	"errors"
	"time"

	"github.com/maskbox/maskbox/internal/models"
	"github.com/maskbox/maskbox/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Keys issues and tracks per-device bearer credentials.
type Keys struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewKeys constructs a Keys issuer.
func NewKeys(db *gorm.DB) *Keys {
	return &Keys{db: db, nowFn: time.Now}
}

// IssueOrGet returns the existing key for (user, device) or creates one with
// a fresh code. An existing device key is never rotated here.
func (k *Keys) IssueOrGet(ctx context.Context, userID uint64, device string) (*models.APIKey, error) {
	var key models.APIKey
	errFind := k.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, device).
		First(&key).Error
	if errFind == nil {
		return &key, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, wrap(KindInternal, "lookup api key", errFind)
	}

	code, errGenerate := security.GenerateAPIKey()
	if errGenerate != nil {
		return nil, wrap(KindInternal, "generate api key", errGenerate)
	}
	now := k.nowFn().UTC()
	key = models.APIKey{
		UserID:    userID,
		Name:      device,
		Code:      code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := k.db.WithContext(ctx).Create(&key).Error; errCreate != nil {
		// Concurrent first login for the same device; the unique index on
		// (user_id, name) guarantees a single winner.
		var existing models.APIKey
		errRetry := k.db.WithContext(ctx).
			Where("user_id = ? AND name = ?", userID, device).
			First(&existing).Error
		if errRetry == nil {
			return &existing, nil
		}
		return nil, wrap(KindInternal, "create api key", errCreate)
	}
	log.WithField("user_id", userID).WithField("device", device).Debug("created api key")
	return &key, nil
}

// RecordUsage bumps the usage counter and last-used timestamp in a single
// atomic update. It runs on every authenticated request and is committed
// even when the request later fails authorization.
func (k *Keys) RecordUsage(ctx context.Context, keyID uint64) error {
	now := k.nowFn().UTC()
	errUpdate := k.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ?", keyID).
		UpdateColumns(map[string]any{
			"times_used": gorm.Expr("times_used + 1"),
			"last_used":  now,
		}).Error
	if errUpdate != nil {
		return wrap(KindInternal, "record api key usage", errUpdate)
	}
	return nil
}
