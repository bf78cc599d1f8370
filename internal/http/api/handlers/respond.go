package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maskbox/maskbox/internal/auth"
)

// Request artifacts shared between middleware and handlers.
const (
	// HeaderAPIKey carries the bearer credential code.
	HeaderAPIKey = "Authentication"
	// SessionCookieName is the browser session cookie.
	SessionCookieName = "maskbox_session"
	// ContextIdentity is the gin context key holding the resolved identity.
	ContextIdentity = "identity"
)

// StatusForKind maps stable error kinds to transport status codes. The kind
// itself travels in the body; callers must not rely on the status alone.
func StatusForKind(kind auth.Kind) int {
	switch kind {
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindForbidden, auth.KindElevationRequired:
		return http.StatusForbidden
	case auth.KindExhausted:
		return http.StatusGone
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// WriteError renders an auth failure with its machine-readable kind.
func WriteError(c *gin.Context, err error) {
	kind := auth.KindOf(err)
	message := "Internal error"
	var authErr *auth.Error
	if errors.As(err, &authErr) && kind != auth.KindInternal {
		message = authErr.Message
	}
	c.AbortWithStatusJSON(StatusForKind(kind), gin.H{
		"error":      message,
		"error_kind": string(kind),
	})
}

// SetSessionCookie drops the session cookie for browser clients. secure
// controls the Secure attribute; only plain-HTTP development setups turn
// it off.
func SetSessionCookie(c *gin.Context, code string, expiresAt time.Time, secure bool) {
	maxAge := int(time.Until(expiresAt) / time.Second)
	if maxAge <= 0 {
		maxAge = 1
	}
	c.SetCookie(SessionCookieName, code, maxAge, "/", "", secure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetCookie(SessionCookieName, "", -1, "/", "", secure, true)
}

// IdentityFrom extracts the identity stored on the context by the auth
// middleware. Nil when the request never passed authentication.
func IdentityFrom(c *gin.Context) *auth.Identity {
	value, ok := c.Get(ContextIdentity)
	if !ok {
		return nil
	}
	identity, ok := value.(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}
