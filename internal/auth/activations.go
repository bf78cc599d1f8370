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

// Activations issues and checks the numeric codes gating account activation.
type Activations struct {
	db         *gorm.DB
	codeLength int
	tries      int
	nowFn      func() time.Time
}

// NewActivations constructs an Activations verifier. codeLength and tries
// come from configuration.
func NewActivations(db *gorm.DB, codeLength, tries int) *Activations {
	return &Activations{db: db, codeLength: codeLength, tries: tries, nowFn: time.Now}
}

// Issue replaces any pending activation record for the user with a fresh
// code and a full retry budget, returning the code for out-of-band delivery.
func (a *Activations) Issue(ctx context.Context, userID uint64) (string, error) {
	code, errGenerate := security.GenerateNumericCode(a.codeLength)
	if errGenerate != nil {
		return "", wrap(KindInternal, "generate activation code", errGenerate)
	}

	now := a.nowFn().UTC()
	errTx := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDelete := tx.Where("user_id = ?", userID).
			Delete(&models.AccountActivation{}).Error; errDelete != nil {
			return errDelete
		}
		return tx.Create(&models.AccountActivation{
			UserID:    userID,
			Code:      code,
			Tries:     a.tries,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error
	})
	if errTx != nil {
		return "", wrap(KindInternal, "issue activation code", errTx)
	}
	return code, nil
}

// Verify checks a submitted code for the user. Unknown or already-activated
// users and users without a pending record all fail with the same generic
// mismatch so the endpoint cannot be used to enumerate accounts. The retry
// decrement is a single conditional update; once the budget lands on zero
// the record is spent and every further submission, right code included,
// reports exhaustion until a new code is issued.
func (a *Activations) Verify(ctx context.Context, user *models.User, code string) error {
	if user == nil || user.Activated {
		return E(KindMismatch, "Wrong email or code")
	}

	var record models.AccountActivation
	errFind := a.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		First(&record).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return E(KindMismatch, "Wrong email or code")
	}
	if errFind != nil {
		return wrap(KindInternal, "lookup activation", errFind)
	}

	if record.Tries <= 0 {
		return E(KindExhausted, "Too many wrong tries")
	}

	if record.Code != code {
		res := a.db.WithContext(ctx).Model(&models.AccountActivation{}).
			Where("id = ? AND tries > 0", record.ID).
			UpdateColumn("tries", gorm.Expr("tries - 1"))
		if res.Error != nil {
			return wrap(KindInternal, "decrement activation tries", res.Error)
		}
		if res.RowsAffected == 0 {
			// A concurrent wrong submission spent the last try.
			return E(KindExhausted, "Too many wrong tries")
		}
		var remaining models.AccountActivation
		if errReload := a.db.WithContext(ctx).
			Select("tries").First(&remaining, record.ID).Error; errReload != nil {
			return wrap(KindInternal, "reload activation", errReload)
		}
		if remaining.Tries <= 0 {
			return E(KindExhausted, "Too many wrong tries")
		}
		return E(KindMismatch, "Wrong email or code")
	}

	errTx := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The guard on tries keeps a racing wrong-code exhaustion from being
		// overridden by a correct submission that read the row earlier.
		res := tx.Where("id = ? AND tries > 0", record.ID).
			Delete(&models.AccountActivation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return E(KindExhausted, "Too many wrong tries")
		}
		if errActivate := tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("activated", true).Error; errActivate != nil {
			return errActivate
		}
		return emitAudit(tx, user.ID, models.AuditActivateUser, "User has been activated: "+user.Email)
	})
	if errTx != nil {
		var authErr *Error
		if errors.As(errTx, &authErr) {
			return authErr
		}
		return wrap(KindInternal, "activate user", errTx)
	}

	user.Activated = true
	log.WithField("user_id", user.ID).Info("activated user")
	return nil
}
