package auth

import (
	"context"
	"errors"
	"time"

	"github.com/maskbox/maskbox/internal/mail"
	"github.com/maskbox/maskbox/internal/models"
	"github.com/maskbox/maskbox/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MFA handles the second-factor leg of a login: the signed exchange token
// standing in for "password verified, awaiting TOTP" and the TOTP check.
type MFA struct {
	db       *gorm.DB
	secret   string
	tokenTTL time.Duration
	keys     *Keys
	sessions *Sessions
	mailer   mail.Sender
	nowFn    func() time.Time
}

// NewMFA constructs an MFA challenge service.
func NewMFA(db *gorm.DB, secret string, tokenTTL time.Duration, keys *Keys, sessions *Sessions, mailer mail.Sender) *MFA {
	return &MFA{
		db:       db,
		secret:   secret,
		tokenTTL: tokenTTL,
		keys:     keys,
		sessions: sessions,
		mailer:   mailer,
		nowFn:    time.Now,
	}
}

// BeginExchange signs an exchange token binding the user's identifier,
// produced right after password verification for MFA-enabled accounts.
func (m *MFA) BeginExchange(user *models.User) (string, error) {
	token, errSign := security.SignMFAToken(m.secret, user.ID, m.tokenTTL, m.nowFn())
	if errSign != nil {
		return "", wrap(KindInternal, "sign mfa exchange token", errSign)
	}
	return token, nil
}

// Verify consumes an exchange token plus a TOTP code and, on success,
// converges on the same post-auth state as a non-MFA login: the per-device
// API key and a fresh browser session.
func (m *MFA) Verify(ctx context.Context, token, totpCode, device string) (*models.User, *models.APIKey, *models.Session, error) {
	userID, errParse := security.ParseMFAToken(m.secret, token)
	if errParse != nil {
		return nil, nil, nil, E(KindInvalidToken, "Invalid mfa_key")
	}

	var user models.User
	errFind := m.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, nil, nil, E(KindInvalidToken, "Invalid mfa_key")
	}
	if errFind != nil {
		return nil, nil, nil, wrap(KindInternal, "load user", errFind)
	}
	if !user.EnableOTP {
		// A token minted for another flow must not pass here.
		return nil, nil, nil, E(KindInvalidToken, "This endpoint should only be used by users who enable MFA")
	}

	if !security.ValidateTOTP(totpCode, user.TOTPSecret, m.nowFn()) {
		m.notifySuspiciousLogin(&user)
		return nil, nil, nil, E(KindInvalidCode, "Wrong TOTP Token")
	}

	key, errKey := m.keys.IssueOrGet(ctx, user.ID, device)
	if errKey != nil {
		return nil, nil, nil, errKey
	}
	session, errSession := m.sessions.Establish(ctx, user.ID)
	if errSession != nil {
		return nil, nil, nil, errSession
	}
	return &user, key, session, nil
}

// notifySuspiciousLogin alerts the user without blocking or failing the
// request's own result.
func (m *MFA) notifySuspiciousLogin(user *models.User) {
	msg := mail.SuspiciousLoginMessage(user.Email, "TOTP")
	go func() {
		if errSend := m.mailer.Send(context.Background(), msg); errSend != nil {
			log.WithError(errSend).WithField("user_id", user.ID).Error("send suspicious login email")
		}
	}()
}
