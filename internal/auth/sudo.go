package auth

import (
	"context"
	"time"

	"github.com/maskbox/maskbox/internal/models"
	"github.com/maskbox/maskbox/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Sudo manages the time-boxed re-authentication state on a bearer credential.
type Sudo struct {
	db     *gorm.DB
	window time.Duration
	nowFn  func() time.Time
}

// NewSudo constructs a Sudo elevator.
func NewSudo(db *gorm.DB, window time.Duration) *Sudo {
	return &Sudo{db: db, window: window, nowFn: time.Now}
}

// Enter re-validates the account password and stamps the elevation time on
// the identity's API key. This is a re-authentication, not a login: the
// bearer credential is untouched. Session-only identities cannot hold
// elevation.
func (s *Sudo) Enter(ctx context.Context, identity *Identity, password string) error {
	if !identity.ViaAPIKey() {
		return E(KindForbidden, "Sudo mode requires api key authentication")
	}
	if password == "" || !security.CheckPassword(identity.User.Password, password) {
		log.WithField("user_id", identity.User.ID).Warn("failed sudo mode entry attempt")
		return E(KindInvalidCredential, "Invalid password or missing password")
	}

	now := s.nowFn().UTC()
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errStamp := tx.Model(&models.APIKey{}).
			Where("id = ?", identity.Key.ID).
			UpdateColumn("sudo_mode_at", now).Error; errStamp != nil {
			return errStamp
		}
		return emitAudit(tx, identity.User.ID, models.AuditEnterSudo, "Sudo mode activated")
	})
	if errTx != nil {
		return wrap(KindInternal, "enter sudo mode", errTx)
	}

	identity.Key.SudoModeAt = &now
	log.WithField("user_id", identity.User.ID).Info("sudo mode activated")
	return nil
}

// Elevated reports whether the identity currently holds a live elevation.
func (s *Sudo) Elevated(identity *Identity) bool {
	if !identity.ViaAPIKey() {
		return false
	}
	return Elevated(identity.Key, s.window, s.nowFn())
}
