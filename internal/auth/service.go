package auth

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/maskbox/maskbox/internal/config"
	"github.com/maskbox/maskbox/internal/mail"
	"github.com/maskbox/maskbox/internal/models"
	"github.com/maskbox/maskbox/internal/security"
	"github.com/maskbox/maskbox/internal/social"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Password length bounds enforced at registration.
const (
	minPasswordLength = 8
	maxPasswordLength = 100
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Service orchestrates the login, registration, and activation flows. It
// drives the leaf components and owns the account lookups they share.
type Service struct {
	db          *gorm.DB
	cfg         config.AuthConfig
	keys        *Keys
	sessions    *Sessions
	activations *Activations
	mfa         *MFA
	mailer      mail.Sender
	exchangers  map[string]social.Exchanger
	nowFn       func() time.Time
}

// NewService constructs the auth orchestration service.
func NewService(
	db *gorm.DB,
	cfg config.AuthConfig,
	keys *Keys,
	sessions *Sessions,
	activations *Activations,
	mfa *MFA,
	mailer mail.Sender,
	exchangers map[string]social.Exchanger,
) *Service {
	return &Service{
		db:          db,
		cfg:         cfg,
		keys:        keys,
		sessions:    sessions,
		activations: activations,
		mfa:         mfa,
		mailer:      mailer,
		exchangers:  exchangers,
		nowFn:       time.Now,
	}
}

// AuthPayload is the outcome of a successful password or social login.
// MFA-enabled accounts receive only the exchange token; everyone else gets
// the device API key and a web session.
type AuthPayload struct {
	Name       string
	Email      string
	MFAEnabled bool
	MFAKey     string
	APIKey     string
	Session    *models.Session
}

// Login authenticates an email/password pair for a device.
func (s *Service) Login(ctx context.Context, email, password, device string) (*AuthPayload, error) {
	user, errLookup := s.lookupByEmail(ctx, email)
	if errLookup != nil {
		return nil, errLookup
	}
	if user == nil || !security.CheckPassword(user.Password, password) {
		log.WithField("source", "api").Info("login failed")
		return nil, E(KindInvalidCredential, "Email or password incorrect")
	}

	switch {
	case user.Disabled:
		log.WithField("user_id", user.ID).Info("login attempt on disabled account")
		return nil, E(KindForbidden, "Account disabled")
	case user.DeleteOn != nil:
		log.WithField("user_id", user.ID).Info("login attempt on account scheduled for deletion")
		return nil, E(KindForbidden, "Account scheduled for deletion")
	case !user.Activated:
		log.WithField("user_id", user.ID).Info("login attempt on unactivated account")
		return nil, E(KindUnauthorized, "Account not activated")
	}

	if user.FIDOEnabled() && !user.EnableOTP {
		return nil, E(KindForbidden, "FIDO authentication is not supported for this application")
	}

	log.WithField("user_id", user.ID).WithField("source", "api").Info("login success")
	return s.authPayload(ctx, user, device)
}

// Register creates an unactivated account and issues the first activation
// code for out-of-band delivery.
func (s *Service) Register(ctx context.Context, email, password string) error {
	if s.cfg.DisableRegistration {
		return E(KindForbidden, "Registration is closed")
	}

	dirtyEmail := SanitizeEmail(email)
	canonical := CanonicalizeEmail(dirtyEmail)
	if !emailPattern.MatchString(canonical) {
		return E(KindValidation, "Cannot use "+dirtyEmail+" as personal inbox")
	}
	if len(password) < minPasswordLength {
		return E(KindValidation, "Password must be at least 8 characters long")
	}
	if len(password) > maxPasswordLength {
		return E(KindValidation, "Password must be at most 100 characters long")
	}

	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR canonical_email = ?", canonical, canonical).
		Count(&count).Error; errCount != nil {
		return wrap(KindInternal, "check email availability", errCount)
	}
	if count > 0 {
		return E(KindConflict, "Cannot use "+dirtyEmail+" as personal inbox")
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return wrap(KindInternal, "hash password", errHash)
	}

	now := s.nowFn().UTC()
	user := models.User{
		Email:          canonical,
		CanonicalEmail: canonical,
		Name:           dirtyEmail,
		Password:       hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if errCreate := s.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		return wrap(KindInternal, "create user", errCreate)
	}
	log.WithField("user_id", user.ID).WithField("source", "api").Info("register success")

	code, errIssue := s.activations.Issue(ctx, user.ID)
	if errIssue != nil {
		return errIssue
	}
	s.sendAsync(mail.ActivationCodeMessage(user.Email, user.Name, code), user.ID)
	return nil
}

// Activate confirms an activation code for the account behind the email.
func (s *Service) Activate(ctx context.Context, email, code string) error {
	user, errLookup := s.lookupByEmail(ctx, email)
	if errLookup != nil {
		return errLookup
	}
	return s.activations.Verify(ctx, user, code)
}

// Reactivate issues a fresh activation code, replacing any prior one. The
// outcome is identical whether or not the email maps to a pending account,
// so the endpoint cannot confirm address existence.
func (s *Service) Reactivate(ctx context.Context, email string) error {
	user, errLookup := s.lookupByEmail(ctx, email)
	if errLookup != nil {
		return errLookup
	}
	if user == nil || user.Activated {
		return nil
	}
	code, errIssue := s.activations.Issue(ctx, user.ID)
	if errIssue != nil {
		return errIssue
	}
	s.sendAsync(mail.ActivationCodeMessage(user.Email, user.Name, code), user.ID)
	return nil
}

// ForgotPassword triggers the reset email when the account exists. Always
// succeeds from the caller's point of view.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, errLookup := s.lookupByEmail(ctx, email)
	if errLookup != nil {
		return errLookup
	}
	if user == nil {
		return nil
	}
	s.sendAsync(mail.ResetPasswordMessage(user.Email), user.ID)
	return nil
}

// SocialLogin authenticates via a provider token exchanged for a verified
// email. First sight of an email creates an already-activated account.
func (s *Service) SocialLogin(ctx context.Context, provider, providerToken, device string) (*AuthPayload, error) {
	exchanger, ok := s.exchangers[provider]
	if !ok {
		return nil, E(KindValidation, "Unknown provider")
	}
	profile, errExchange := exchanger.Exchange(ctx, providerToken)
	if errExchange != nil {
		return nil, wrap(KindInvalidCredential, "Provider token rejected", errExchange)
	}

	email := SanitizeEmail(profile.Email)
	user, errLookup := s.lookupByEmail(ctx, email)
	if errLookup != nil {
		return nil, errLookup
	}
	if user == nil {
		if s.cfg.DisableRegistration {
			return nil, E(KindForbidden, "Registration is closed")
		}
		canonical := CanonicalizeEmail(email)
		if !emailPattern.MatchString(canonical) {
			return nil, E(KindValidation, "Cannot use "+email+" as personal inbox")
		}
		now := s.nowFn().UTC()
		created := models.User{
			Email:          email,
			CanonicalEmail: canonical,
			Name:           profile.Name,
			Activated:      true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if errCreate := s.db.WithContext(ctx).Create(&created).Error; errCreate != nil {
			return nil, wrap(KindInternal, "create social user", errCreate)
		}
		user = &created
		log.WithField("user_id", user.ID).WithField("provider", provider).Info("created social user")
		s.sendAsync(mail.WelcomeMessage(user.Email, user.Name), user.ID)
	}

	if errLink := s.ensureSocialLink(ctx, user.ID, provider, profile.Raw); errLink != nil {
		return nil, errLink
	}
	return s.authPayload(ctx, user, device)
}

// ScheduleDeletion stamps the account for deletion. Callers must hold a
// live elevation; the check runs in the same transaction as the stamp.
func (s *Service) ScheduleDeletion(ctx context.Context, gate *Gate, identity *Identity) error {
	if !identity.ViaAPIKey() {
		return E(KindElevationRequired, "Sudo required")
	}
	now := s.nowFn().UTC()
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCheck := gate.CheckElevation(tx, identity.Key.ID); errCheck != nil {
			return errCheck
		}
		if errStamp := tx.Model(&models.User{}).
			Where("id = ?", identity.User.ID).
			Update("delete_on", now).Error; errStamp != nil {
			return errStamp
		}
		return emitAudit(tx, identity.User.ID, models.AuditScheduleUserDeleted,
			"User marked for deletion: "+identity.User.Email)
	})
	if errTx != nil {
		var authErr *Error
		if errors.As(errTx, &authErr) {
			return authErr
		}
		return wrap(KindInternal, "schedule deletion", errTx)
	}
	log.WithField("user_id", identity.User.ID).Info("user marked for deletion")
	return nil
}

// authPayload builds the post-login response shared by the password and
// social paths. MFA-enabled accounts get an exchange token instead of a
// credential; both alternatives are mutually exclusive by construction.
func (s *Service) authPayload(ctx context.Context, user *models.User, device string) (*AuthPayload, error) {
	payload := &AuthPayload{
		Name:       user.Name,
		Email:      user.Email,
		MFAEnabled: user.EnableOTP,
	}
	if user.EnableOTP {
		token, errToken := s.mfa.BeginExchange(user)
		if errToken != nil {
			return nil, errToken
		}
		payload.MFAKey = token
		return payload, nil
	}

	key, errKey := s.keys.IssueOrGet(ctx, user.ID, device)
	if errKey != nil {
		return nil, errKey
	}
	payload.APIKey = key.Code

	session, errSession := s.sessions.Establish(ctx, user.ID)
	if errSession != nil {
		return nil, errSession
	}
	payload.Session = session
	return payload, nil
}

// lookupByEmail resolves a user by the address as entered or its canonical
// form. A missing user is returned as nil without error; enumeration
// masking is the caller's concern.
func (s *Service) lookupByEmail(ctx context.Context, email string) (*models.User, error) {
	sanitized := SanitizeEmail(email)
	canonical := CanonicalizeEmail(sanitized)

	var user models.User
	errFind := s.db.WithContext(ctx).
		Where("email = ? OR canonical_email = ?", sanitized, canonical).
		First(&user).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if errFind != nil {
		return nil, wrap(KindInternal, "lookup user", errFind)
	}
	return &user, nil
}

// ensureSocialLink records the provider link once per (user, provider).
func (s *Service) ensureSocialLink(ctx context.Context, userID uint64, provider string, raw []byte) error {
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.SocialAuth{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Count(&count).Error; errCount != nil {
		return wrap(KindInternal, "lookup social link", errCount)
	}
	if count > 0 {
		return nil
	}
	link := models.SocialAuth{
		UserID:   userID,
		Provider: provider,
		Profile:  datatypes.JSON(raw),
	}
	if errCreate := s.db.WithContext(ctx).Create(&link).Error; errCreate != nil {
		return wrap(KindInternal, "create social link", errCreate)
	}
	return nil
}

// sendAsync dispatches a notification without tying it to the request.
func (s *Service) sendAsync(msg mail.Message, userID uint64) {
	go func() {
		if errSend := s.mailer.Send(context.Background(), msg); errSend != nil {
			log.WithError(errSend).WithField("user_id", userID).Error("send transactional email")
		}
	}()
}
