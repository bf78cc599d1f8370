package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/maskbox/maskbox/internal/auth"
	"github.com/maskbox/maskbox/internal/config"
	"github.com/maskbox/maskbox/internal/http/api/handlers"
	"github.com/maskbox/maskbox/internal/mail"
	"github.com/maskbox/maskbox/internal/models"
	"github.com/maskbox/maskbox/internal/ratelimit"
	"github.com/maskbox/maskbox/internal/social"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T, rateCfg config.RateLimitConfig) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, errOpen := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(
		&models.User{},
		&models.APIKey{},
		&models.AccountActivation{},
		&models.Session{},
		&models.APISessionToken{},
		&models.SocialAuth{},
		&models.UserAuditLog{},
	); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	authCfg := config.AuthConfig{
		SigningSecret:        "api-test-secret",
		MFATokenTTL:          10 * time.Minute,
		SudoWindow:           5 * time.Minute,
		ActivationCodeLength: 6,
		ActivationTries:      3,
		SessionTTL:           time.Hour,
		CookieTokenTTL:       5 * time.Minute,
	}

	mailer := mail.LogSender{}
	keys := auth.NewKeys(conn)
	sessions := auth.NewSessions(conn, authCfg.SessionTTL)
	activations := auth.NewActivations(conn, authCfg.ActivationCodeLength, authCfg.ActivationTries)
	mfa := auth.NewMFA(conn, authCfg.SigningSecret, authCfg.MFATokenTTL, keys, sessions, mailer)
	sudo := auth.NewSudo(conn, authCfg.SudoWindow)
	gate := auth.NewGate(conn, keys, sessions, authCfg.SudoWindow)
	sessionTokens := auth.NewSessionTokens(conn, authCfg.CookieTokenTTL, sessions)
	svc := auth.NewService(conn, authCfg, keys, sessions, activations, mfa, mailer, map[string]social.Exchanger{})

	engine := gin.New()
	RegisterAPIRoutes(engine, Components{
		DB:            conn,
		Service:       svc,
		Gate:          gate,
		Keys:          keys,
		Sessions:      sessions,
		SessionTokens: sessionTokens,
		MFA:           mfa,
		Sudo:          sudo,
		Limiter:       ratelimit.NewManager(rateCfg, nil, nil),
		RateLimit:     rateCfg,
		SecureCookies: true,
	})
	return engine, conn
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	parsed := map[string]any{}
	if rec.Body.Len() > 0 {
		if errDecode := json.Unmarshal(rec.Body.Bytes(), &parsed); errDecode != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), errDecode)
		}
	}
	return rec, parsed
}

func TestAPIRegisterActivateLoginFlow(t *testing.T) {
	engine, conn := newTestServer(t, config.RateLimitConfig{LoginPerMinute: 100})

	rec, _ := doJSON(t, engine, http.MethodPost, "/api/auth/register",
		`{"email":"flow@example.com","password":"a long password"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Login before activation is refused.
	rec, body := doJSON(t, engine, http.MethodPost, "/api/auth/login",
		`{"email":"flow@example.com","password":"a long password","device":"cli"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 before activation, got %d", rec.Code)
	}
	if body["error_kind"] != "unauthorized" {
		t.Fatalf("expected unauthorized kind, got %v", body["error_kind"])
	}

	var user models.User
	if errFind := conn.Where("email = ?", "flow@example.com").First(&user).Error; errFind != nil {
		t.Fatalf("load user: %v", errFind)
	}
	var activation models.AccountActivation
	if errFind := conn.Where("user_id = ?", user.ID).First(&activation).Error; errFind != nil {
		t.Fatalf("load activation: %v", errFind)
	}

	rec, body = doJSON(t, engine, http.MethodPost, "/api/auth/activate",
		`{"email":"flow@example.com","code":"wrong!"}`, nil)
	if rec.Code != http.StatusBadRequest || body["error_kind"] != "mismatch" {
		t.Fatalf("expected mismatch on wrong code, got %d %v", rec.Code, body)
	}

	rec, _ = doJSON(t, engine, http.MethodPost, "/api/auth/activate",
		`{"email":"flow@example.com","code":"`+activation.Code+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, body = doJSON(t, engine, http.MethodPost, "/api/auth/login",
		`{"email":"flow@example.com","password":"a long password","device":"cli"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	apiKey, _ := body["api_key"].(string)
	if apiKey == "" {
		t.Fatalf("expected api key in login response")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie on login")
	}
	if !cookies[0].Secure || !cookies[0].HttpOnly {
		t.Fatalf("expected a Secure, HttpOnly session cookie")
	}

	rec, body = doJSON(t, engine, http.MethodGet, "/api/user_info", "",
		map[string]string{handlers.HeaderAPIKey: apiKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("user_info: expected 200, got %d", rec.Code)
	}
	if body["email"] != "flow@example.com" {
		t.Fatalf("unexpected user_info payload: %v", body)
	}
}

func TestAPISudoAndDeleteFlow(t *testing.T) {
	engine, conn := newTestServer(t, config.RateLimitConfig{LoginPerMinute: 100})
	apiKey := registerAndLogin(t, engine, conn, "sudoflow@example.com")
	header := map[string]string{handlers.HeaderAPIKey: apiKey}

	// Deletion without a live elevation is refused with a distinct kind.
	rec, body := doJSON(t, engine, http.MethodDelete, "/api/user", "", header)
	if rec.Code != http.StatusForbidden || body["error_kind"] != "elevation_required" {
		t.Fatalf("expected elevation_required, got %d %v", rec.Code, body)
	}

	rec, body = doJSON(t, engine, http.MethodPatch, "/api/sudo",
		`{"password":"wrong password"}`, header)
	if rec.Code != http.StatusBadRequest || body["error_kind"] != "invalid_credential" {
		t.Fatalf("expected invalid_credential, got %d %v", rec.Code, body)
	}

	rec, _ = doJSON(t, engine, http.MethodPatch, "/api/sudo",
		`{"password":"a long password"}`, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("sudo: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, engine, http.MethodDelete, "/api/user", "", header)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// The scheduled account no longer authenticates.
	rec, body = doJSON(t, engine, http.MethodGet, "/api/user_info", "", header)
	if rec.Code != http.StatusUnauthorized || body["error_kind"] != "unauthorized" {
		t.Fatalf("expected 401 after deletion, got %d %v", rec.Code, body)
	}
}

func TestAPICookieTokenExchange(t *testing.T) {
	engine, conn := newTestServer(t, config.RateLimitConfig{LoginPerMinute: 100, CookieTokenPerMinute: 100})
	apiKey := registerAndLogin(t, engine, conn, "crosschannel@example.com")
	header := map[string]string{handlers.HeaderAPIKey: apiKey}

	rec, body := doJSON(t, engine, http.MethodGet, "/api/user/cookie_token", "", header)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie_token: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("expected a token")
	}

	rec, _ = doJSON(t, engine, http.MethodGet, "/api/auth/api_to_cookie?token="+token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cookies := rec.Result().Cookies(); len(cookies) == 0 {
		t.Fatalf("expected session cookie on redemption")
	}

	// Single use: the second redemption fails even though the first passed.
	rec, body = doJSON(t, engine, http.MethodGet, "/api/auth/api_to_cookie?token="+token, "", nil)
	if rec.Code != http.StatusBadRequest || body["error_kind"] != "invalid_token" {
		t.Fatalf("expected invalid_token on replay, got %d %v", rec.Code, body)
	}
}

func TestAPILoginRateLimited(t *testing.T) {
	engine, _ := newTestServer(t, config.RateLimitConfig{LoginPerMinute: 2})

	for i := 0; i < 2; i++ {
		rec, _ := doJSON(t, engine, http.MethodPost, "/api/auth/login",
			`{"email":"ghost@example.com","password":"whatever password","device":"cli"}`, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad credentials, got %d", rec.Code)
		}
	}

	rec, body := doJSON(t, engine, http.MethodPost, "/api/auth/login",
		`{"email":"ghost@example.com","password":"whatever password","device":"cli"}`, nil)
	if rec.Code != http.StatusTooManyRequests || body["error_kind"] != "rate_limited" {
		t.Fatalf("expected 429 rate_limited, got %d %v", rec.Code, body)
	}

	// Each endpoint has its own bucket: a throttled login leaves
	// registration unaffected.
	rec, _ = doJSON(t, engine, http.MethodPost, "/api/auth/register",
		`{"email":"fresh@example.com","password":"a long password"}`, nil)
	if rec.Code == http.StatusTooManyRequests {
		t.Fatalf("login burst must not consume the register budget")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func registerAndLogin(t *testing.T, engine *gin.Engine, conn *gorm.DB, email string) string {
	t.Helper()
	rec, _ := doJSON(t, engine, http.MethodPost, "/api/auth/register",
		`{"email":"`+email+`","password":"a long password"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var user models.User
	if errFind := conn.Where("email = ?", email).First(&user).Error; errFind != nil {
		t.Fatalf("load user: %v", errFind)
	}
	var activation models.AccountActivation
	if errFind := conn.Where("user_id = ?", user.ID).First(&activation).Error; errFind != nil {
		t.Fatalf("load activation: %v", errFind)
	}
	rec, _ = doJSON(t, engine, http.MethodPost, "/api/auth/activate",
		`{"email":"`+email+`","code":"`+activation.Code+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, body := doJSON(t, engine, http.MethodPost, "/api/auth/login",
		`{"email":"`+email+`","password":"a long password","device":"cli"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	apiKey, _ := body["api_key"].(string)
	if apiKey == "" {
		t.Fatalf("expected api key")
	}
	return apiKey
}
