package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maskbox/maskbox/internal/auth"
	"github.com/maskbox/maskbox/internal/http/api/handlers"
	"github.com/maskbox/maskbox/internal/ratelimit"
)

// requireAPIAuth resolves the acting identity from the bearer header or the
// session cookie and stores it on the context.
func requireAPIAuth(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearerCode := c.GetHeader(handlers.HeaderAPIKey)
		sessionCode, _ := c.Cookie(handlers.SessionCookieName)

		identity, errAuth := gate.Authenticate(c.Request.Context(), bearerCode, sessionCode)
		if errAuth != nil {
			handlers.WriteError(c, errAuth)
			return
		}
		c.Set(handlers.ContextIdentity, identity)
		c.Next()
	}
}

// requireAPISudo additionally demands a live elevation on the credential.
func requireAPISudo(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := handlers.IdentityFrom(c)
		if identity == nil {
			handlers.WriteError(c, auth.E(auth.KindUnauthorized, "Wrong api key"))
			return
		}
		if errElevated := gate.RequireElevated(c.Request.Context(), identity); errElevated != nil {
			handlers.WriteError(c, errElevated)
			return
		}
		c.Next()
	}
}

// rateLimit enforces a per-route fixed-window budget keyed by client IP.
func rateLimit(manager *ratelimit.Manager, route string, rule ratelimit.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ratelimit.KeyForRoute(route, c.ClientIP())
		result, errAllow := manager.Allow(c.Request.Context(), key, rule)
		if errAllow != nil {
			// Admission control must not take the endpoint down with it.
			c.Next()
			return
		}
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests",
				"error_kind": "rate_limited",
			})
			return
		}
		c.Next()
	}
}
