package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maskbox/maskbox/internal/auth"
	"github.com/maskbox/maskbox/internal/social"
)

// AuthHandler serves the unauthenticated login and registration endpoints.
type AuthHandler struct {
	svc           *auth.Service
	secureCookies bool
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *auth.Service, secureCookies bool) *AuthHandler {
	return &AuthHandler{svc: svc, secureCookies: secureCookies}
}

// loginRequest is the login payload.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Device   string `json:"device"`
}

// Login authenticates an email/password pair and returns either the device
// API key or an MFA exchange token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		WriteError(c, auth.E(auth.KindValidation, "Request body cannot be empty"))
		return
	}
	if body.Email == "" || body.Password == "" || strings.TrimSpace(body.Device) == "" {
		WriteError(c, auth.E(auth.KindValidation, "Missing required fields"))
		return
	}

	payload, errLogin := h.svc.Login(c.Request.Context(), body.Email, body.Password, strings.TrimSpace(body.Device))
	if errLogin != nil {
		WriteError(c, errLogin)
		return
	}
	writeAuthPayload(c, payload, h.secureCookies)
}

// registerRequest is the registration payload.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register signs a user up; the account stays unusable until the activation
// code sent out-of-band is confirmed.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		WriteError(c, auth.E(auth.KindValidation, "Request body cannot be empty"))
		return
	}
	if body.Email == "" || body.Password == "" {
		WriteError(c, auth.E(auth.KindValidation, "Missing required fields"))
		return
	}

	if errRegister := h.svc.Register(c.Request.Context(), body.Email, body.Password); errRegister != nil {
		WriteError(c, errRegister)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "User needs to confirm their account"})
}

// activateRequest is the activation payload.
type activateRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Activate confirms the activation code for an account.
func (h *AuthHandler) Activate(c *gin.Context) {
	var body activateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		WriteError(c, auth.E(auth.KindValidation, "Request body cannot be empty"))
		return
	}
	if body.Email == "" || body.Code == "" {
		WriteError(c, auth.E(auth.KindValidation, "Missing required fields"))
		return
	}

	if errActivate := h.svc.Activate(c.Request.Context(), body.Email, body.Code); errActivate != nil {
		WriteError(c, errActivate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Account is activated, user can login now"})
}

// emailRequest carries a bare email field.
type emailRequest struct {
	Email string `json:"email"`
}

// Reactivate re-sends an activation code. The response shape never reveals
// whether the email maps to an account.
func (h *AuthHandler) Reactivate(c *gin.Context) {
	var body emailRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		WriteError(c, auth.E(auth.KindValidation, "Request body cannot be empty"))
		return
	}
	if body.Email == "" {
		WriteError(c, auth.E(auth.KindValidation, "Missing required fields"))
		return
	}

	if errReactivate := h.svc.Reactivate(c.Request.Context(), body.Email); errReactivate != nil {
		if auth.KindOf(errReactivate) == auth.KindInternal {
			WriteError(c, errReactivate)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"msg": "User needs to confirm their account"})
}

// ForgotPassword triggers a reset email. Always success-shaped.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var body emailRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.Email == "" {
		WriteError(c, auth.E(auth.KindValidation, "Email is required"))
		return
	}

	if errForgot := h.svc.ForgotPassword(c.Request.Context(), body.Email); errForgot != nil {
		if auth.KindOf(errForgot) == auth.KindInternal {
			WriteError(c, errForgot)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// socialRequest is the provider-token login payload.
type socialRequest struct {
	FacebookToken string `json:"facebook_token"`
	GoogleToken   string `json:"google_token"`
	Device        string `json:"device"`
}

// Facebook authenticates with a Facebook access token.
func (h *AuthHandler) Facebook(c *gin.Context) {
	var body socialRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		WriteError(c, auth.E(auth.KindValidation, "Request body cannot be empty"))
		return
	}
	h.socialLogin(c, social.ProviderFacebook, body.FacebookToken, body.Device)
}

// Google authenticates with a Google access token.
func (h *AuthHandler) Google(c *gin.Context) {
	var body socialRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		WriteError(c, auth.E(auth.KindValidation, "Request body cannot be empty"))
		return
	}
	h.socialLogin(c, social.ProviderGoogle, body.GoogleToken, body.Device)
}

func (h *AuthHandler) socialLogin(c *gin.Context, provider, providerToken, device string) {
	if providerToken == "" || strings.TrimSpace(device) == "" {
		WriteError(c, auth.E(auth.KindValidation, "Missing required fields"))
		return
	}
	payload, errLogin := h.svc.SocialLogin(c.Request.Context(), provider, providerToken, strings.TrimSpace(device))
	if errLogin != nil {
		WriteError(c, errLogin)
		return
	}
	writeAuthPayload(c, payload, h.secureCookies)
}

// writeAuthPayload renders the shared post-login response and, for non-MFA
// logins, drops the session cookie so the browser is signed in too.
func writeAuthPayload(c *gin.Context, payload *auth.AuthPayload, secureCookies bool) {
	response := gin.H{
		"name":        payload.Name,
		"email":       payload.Email,
		"mfa_enabled": payload.MFAEnabled,
		"mfa_key":     nil,
		"api_key":     nil,
	}
	if payload.MFAEnabled {
		response["mfa_key"] = payload.MFAKey
	} else {
		response["api_key"] = payload.APIKey
		if payload.Session != nil {
			SetSessionCookie(c, payload.Session.Code, payload.Session.ExpiresAt, secureCookies)
		}
	}
	c.JSON(http.StatusOK, response)
}
