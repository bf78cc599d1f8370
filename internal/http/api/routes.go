package api

import (
	"github.com/gin-gonic/gin"
	"github.com/maskbox/maskbox/internal/auth"
	"github.com/maskbox/maskbox/internal/config"
	"github.com/maskbox/maskbox/internal/http/api/handlers"
	"github.com/maskbox/maskbox/internal/ratelimit"
	"gorm.io/gorm"
)

// Components bundles the wired auth services the routes depend on.
type Components struct {
	DB            *gorm.DB
	Service       *auth.Service
	Gate          *auth.Gate
	Keys          *auth.Keys
	Sessions      *auth.Sessions
	SessionTokens *auth.SessionTokens
	MFA           *auth.MFA
	Sudo          *auth.Sudo
	Limiter       *ratelimit.Manager
	RateLimit     config.RateLimitConfig
	SecureCookies bool
}

// RegisterAPIRoutes registers all API routes, middleware, and handlers.
func RegisterAPIRoutes(r *gin.Engine, components Components) {
	if r == nil || components.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(components.DB)
	r.GET("/healthz", healthHandler.Healthz)

	loginBudget := ratelimit.PerMinute(components.RateLimit.LoginPerMinute)
	forgotBudget := ratelimit.PerMinute(components.RateLimit.ForgotPasswordPerMinute)
	cookieBudget := ratelimit.PerMinute(components.RateLimit.CookieTokenPerMinute)

	authHandler := handlers.NewAuthHandler(components.Service, components.SecureCookies)
	mfaHandler := handlers.NewMFAHandler(components.MFA, components.SecureCookies)
	userHandler := handlers.NewUserHandler(
		components.Service,
		components.Gate,
		components.Keys,
		components.Sessions,
		components.SessionTokens,
		components.SecureCookies,
	)

	// Each endpoint gets its own bucket so a burst on one cannot starve
	// the others.
	authGroup := r.Group("/api/auth")
	authGroup.POST("/login", rateLimit(components.Limiter, "login", loginBudget), authHandler.Login)
	authGroup.POST("/register", rateLimit(components.Limiter, "register", loginBudget), authHandler.Register)
	authGroup.POST("/activate", rateLimit(components.Limiter, "activate", loginBudget), authHandler.Activate)
	authGroup.POST("/reactivate", rateLimit(components.Limiter, "reactivate", loginBudget), authHandler.Reactivate)
	authGroup.POST("/mfa", rateLimit(components.Limiter, "mfa", loginBudget), mfaHandler.Verify)
	authGroup.POST("/facebook", rateLimit(components.Limiter, "facebook", loginBudget), authHandler.Facebook)
	authGroup.POST("/google", rateLimit(components.Limiter, "google", loginBudget), authHandler.Google)
	authGroup.POST("/forgot_password", rateLimit(components.Limiter, "forgot_password", forgotBudget), authHandler.ForgotPassword)
	authGroup.GET("/api_to_cookie", userHandler.RedeemCookieToken)

	authed := r.Group("/api")
	authed.Use(requireAPIAuth(components.Gate))

	sudoHandler := handlers.NewSudoHandler(components.Sudo)
	authed.PATCH("/sudo", sudoHandler.Enter)
	authed.POST("/api_key", userHandler.CreateAPIKey)
	authed.GET("/user/cookie_token", rateLimit(components.Limiter, "cookie_token", cookieBudget), userHandler.CookieToken)
	authed.GET("/user_info", userHandler.UserInfo)
	authed.GET("/logout", userHandler.Logout)

	elevated := authed.Group("")
	elevated.Use(requireAPISudo(components.Gate))
	elevated.DELETE("/user", userHandler.DeleteUser)
}
