package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maskbox/maskbox/internal/auth"
)

// UserHandler serves the authenticated account endpoints.
type UserHandler struct {
	svc           *auth.Service
	gate          *auth.Gate
	keys          *auth.Keys
	sessions      *auth.Sessions
	sessionTokens *auth.SessionTokens
	secureCookies bool
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc *auth.Service, gate *auth.Gate, keys *auth.Keys, sessions *auth.Sessions, sessionTokens *auth.SessionTokens, secureCookies bool) *UserHandler {
	return &UserHandler{
		svc:           svc,
		gate:          gate,
		keys:          keys,
		sessions:      sessions,
		sessionTokens: sessionTokens,
		secureCookies: secureCookies,
	}
}

// createAPIKeyRequest names the device an API key is issued for.
type createAPIKeyRequest struct {
	Device string `json:"device"`
}

// CreateAPIKey returns the caller's API key for a device, creating it on
// first request. Re-posting the same device never rotates the code.
func (h *UserHandler) CreateAPIKey(c *gin.Context) {
	identity := IdentityFrom(c)
	if identity == nil {
		WriteError(c, auth.E(auth.KindUnauthorized, "Wrong api key"))
		return
	}

	var body createAPIKeyRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		WriteError(c, auth.E(auth.KindValidation, "Request body cannot be empty"))
		return
	}
	device := strings.TrimSpace(body.Device)
	if device == "" {
		WriteError(c, auth.E(auth.KindValidation, "Device is required"))
		return
	}

	key, errIssue := h.keys.IssueOrGet(c.Request.Context(), identity.User.ID, device)
	if errIssue != nil {
		WriteError(c, errIssue)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"api_key": key.Code,
		"name":    key.Name,
	})
}

// CookieToken hands an API-authenticated client a single-use code it can
// trade for a browser session. Session callers are refused: the point is
// crossing from the API channel into the browser, not renewing a cookie.
func (h *UserHandler) CookieToken(c *gin.Context) {
	identity := IdentityFrom(c)
	if identity == nil {
		WriteError(c, auth.E(auth.KindUnauthorized, "Wrong api key"))
		return
	}
	if !identity.ViaAPIKey() {
		WriteError(c, auth.E(auth.KindForbidden, "Api key required"))
		return
	}

	token, errIssue := h.sessionTokens.Issue(c.Request.Context(), identity.User.ID, identity.Key.ID)
	if errIssue != nil {
		WriteError(c, errIssue)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token.Code})
}

// RedeemCookieToken consumes a single-use code and signs the browser in.
// No authentication: the token itself is the credential.
func (h *UserHandler) RedeemCookieToken(c *gin.Context) {
	code := strings.TrimSpace(c.Query("token"))
	if code == "" {
		WriteError(c, auth.E(auth.KindValidation, "Token is required"))
		return
	}

	session, errRedeem := h.sessionTokens.Redeem(c.Request.Context(), code)
	if errRedeem != nil {
		WriteError(c, errRedeem)
		return
	}
	SetSessionCookie(c, session.Code, session.ExpiresAt, h.secureCookies)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UserInfo reports the caller's account summary.
func (h *UserHandler) UserInfo(c *gin.Context) {
	identity := IdentityFrom(c)
	if identity == nil {
		WriteError(c, auth.E(auth.KindUnauthorized, "Wrong api key"))
		return
	}
	user := identity.User
	c.JSON(http.StatusOK, gin.H{
		"name":        user.Name,
		"email":       user.Email,
		"mfa_enabled": user.EnableOTP,
		"in_trial":    false,
	})
}

// Logout tears down the browser session, if any.
func (h *UserHandler) Logout(c *gin.Context) {
	sessionCode, errCookie := c.Cookie(SessionCookieName)
	if errCookie == nil && sessionCode != "" {
		if errDestroy := h.sessions.Destroy(c.Request.Context(), sessionCode); errDestroy != nil {
			WriteError(c, errDestroy)
			return
		}
	}
	ClearSessionCookie(c, h.secureCookies)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DeleteUser schedules account deletion. Routed behind the sudo middleware;
// the service re-checks elevation inside its own transaction.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	identity := IdentityFrom(c)
	if identity == nil {
		WriteError(c, auth.E(auth.KindUnauthorized, "Wrong api key"))
		return
	}

	if errDelete := h.svc.ScheduleDeletion(c.Request.Context(), h.gate, identity); errDelete != nil {
		WriteError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
