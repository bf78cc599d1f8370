package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maskbox/maskbox/internal/auth"
)

// MFAHandler completes the second factor of a pending login.
type MFAHandler struct {
	mfa           *auth.MFA
	secureCookies bool
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(mfa *auth.MFA, secureCookies bool) *MFAHandler {
	return &MFAHandler{mfa: mfa, secureCookies: secureCookies}
}

// mfaRequest is the second-factor payload.
type mfaRequest struct {
	MFAToken string `json:"mfa_token"`
	MFAKey   string `json:"mfa_key"`
	Device   string `json:"device"`
}

// Verify exchanges a login exchange token plus a TOTP code for the device
// API key. The exchange token arrives as mfa_key; mfa_token is the TOTP
// code typed by the user.
func (h *MFAHandler) Verify(c *gin.Context) {
	var body mfaRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		WriteError(c, auth.E(auth.KindValidation, "Request body cannot be empty"))
		return
	}
	if body.MFAToken == "" || body.MFAKey == "" || strings.TrimSpace(body.Device) == "" {
		WriteError(c, auth.E(auth.KindValidation, "Missing required fields"))
		return
	}

	user, key, session, errVerify := h.mfa.Verify(c.Request.Context(), body.MFAKey, body.MFAToken, strings.TrimSpace(body.Device))
	if errVerify != nil {
		WriteError(c, errVerify)
		return
	}

	if session != nil {
		SetSessionCookie(c, session.Code, session.ExpiresAt, h.secureCookies)
	}
	c.JSON(http.StatusOK, gin.H{
		"name":    user.Name,
		"email":   user.Email,
		"api_key": key.Code,
	})
}
