package auth

import (
	"context"
	"errors"
	"time"

	"github.com/maskbox/maskbox/internal/db"
	"github.com/maskbox/maskbox/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gate is the single entry point every protected operation passes through.
// It resolves a request to an authenticated identity plus elevation state,
// from either a bearer credential or an existing browser session.
type Gate struct {
	db         *gorm.DB
	keys       *Keys
	sessions   *Sessions
	sudoWindow time.Duration
	nowFn      func() time.Time
}

// NewGate constructs a Gate.
func NewGate(conn *gorm.DB, keys *Keys, sessions *Sessions, sudoWindow time.Duration) *Gate {
	return &Gate{
		db:         conn,
		keys:       keys,
		sessions:   sessions,
		sudoWindow: sudoWindow,
		nowFn:      time.Now,
	}
}

// Authenticate resolves the acting identity. The bearer credential wins when
// present; otherwise the session cookie is consulted. Usage telemetry on the
// key is committed before the account-status checks so it survives requests
// that fail downstream.
func (g *Gate) Authenticate(ctx context.Context, bearerCode, sessionCode string) (*Identity, error) {
	if bearerCode != "" {
		var key models.APIKey
		errFind := g.db.WithContext(ctx).
			Where("code = ?", bearerCode).
			First(&key).Error
		if errFind == nil {
			if errUsage := g.keys.RecordUsage(ctx, key.ID); errUsage != nil {
				return nil, errUsage
			}
			var user models.User
			if errUser := g.db.WithContext(ctx).First(&user, key.UserID).Error; errUser != nil {
				return nil, wrap(KindInternal, "load api key owner", errUser)
			}
			if errStatus := checkAccountStatus(&user); errStatus != nil {
				return nil, errStatus
			}
			return &Identity{User: &user, Key: &key}, nil
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, wrap(KindInternal, "lookup api key", errFind)
		}
	}

	session, errSession := g.sessions.Lookup(ctx, sessionCode)
	if errSession != nil {
		if KindOf(errSession) == KindUnauthorized {
			return nil, E(KindUnauthorized, "Wrong api key")
		}
		return nil, errSession
	}
	var user models.User
	if errUser := g.db.WithContext(ctx).First(&user, session.UserID).Error; errUser != nil {
		return nil, wrap(KindInternal, "load session owner", errUser)
	}
	if errStatus := checkAccountStatus(&user); errStatus != nil {
		return nil, errStatus
	}
	return &Identity{User: &user}, nil
}

// RequireElevated re-checks elevation against a fresh read of the key row.
// Session-only identities can never hold elevation.
func (g *Gate) RequireElevated(ctx context.Context, identity *Identity) error {
	if !identity.ViaAPIKey() {
		return E(KindElevationRequired, "Sudo required")
	}
	return g.CheckElevation(g.db.WithContext(ctx), identity.Key.ID)
}

// CheckElevation verifies the elevation window inside the caller's
// transaction so a concurrent refresh or revocation cannot slip between the
// check and the privileged mutation. On postgres the key row is locked.
func (g *Gate) CheckElevation(tx *gorm.DB, keyID uint64) error {
	q := tx
	if !db.IsSQLite(tx) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var key models.APIKey
	if errFind := q.First(&key, keyID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return E(KindUnauthorized, "Wrong api key")
		}
		return wrap(KindInternal, "load api key", errFind)
	}
	if !Elevated(&key, g.sudoWindow, g.nowFn()) {
		return E(KindElevationRequired, "Sudo required")
	}
	return nil
}

// Elevated reports whether the key holds a live elevation at the given time.
// The window edge is inclusive.
func Elevated(key *models.APIKey, window time.Duration, now time.Time) bool {
	if key == nil || key.SudoModeAt == nil {
		return false
	}
	return now.Sub(*key.SudoModeAt) <= window
}

// checkAccountStatus enforces the login-usability invariant after identity
// resolution. Disabled wins over inactive.
func checkAccountStatus(user *models.User) error {
	if user.Disabled {
		return E(KindForbidden, "Disabled account")
	}
	if !user.Activated || user.DeleteOn != nil {
		return E(KindUnauthorized, "Account inactive")
	}
	return nil
}
