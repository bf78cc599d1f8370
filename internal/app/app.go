package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maskbox/maskbox/internal/auth"
	"github.com/maskbox/maskbox/internal/config"
	"github.com/maskbox/maskbox/internal/db"
	"github.com/maskbox/maskbox/internal/http/api"
	"github.com/maskbox/maskbox/internal/mail"
	"github.com/maskbox/maskbox/internal/ratelimit"
	"github.com/maskbox/maskbox/internal/social"
	log "github.com/sirupsen/logrus"
)

// RunServer opens the database, wires the auth components, and serves the
// API until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	mailer := mail.LogSender{}

	keys := auth.NewKeys(conn)
	sessions := auth.NewSessions(conn, cfg.Auth.SessionTTL)
	activations := auth.NewActivations(conn, cfg.Auth.ActivationCodeLength, cfg.Auth.ActivationTries)
	mfa := auth.NewMFA(conn, cfg.Auth.SigningSecret, cfg.Auth.MFATokenTTL, keys, sessions, mailer)
	sudo := auth.NewSudo(conn, cfg.Auth.SudoWindow)
	gate := auth.NewGate(conn, keys, sessions, cfg.Auth.SudoWindow)
	sessionTokens := auth.NewSessionTokens(conn, cfg.Auth.CookieTokenTTL, sessions)
	exchangers := map[string]social.Exchanger{
		social.ProviderFacebook: social.NewFacebookExchanger(),
		social.ProviderGoogle:   social.NewGoogleExchanger(),
	}
	svc := auth.NewService(conn, cfg.Auth, keys, sessions, activations, mfa, mailer, exchangers)
	limiter := ratelimit.NewManager(cfg.RateLimit, nil, nil)

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	api.RegisterAPIRoutes(engine, api.Components{
		DB:            conn,
		Service:       svc,
		Gate:          gate,
		Keys:          keys,
		Sessions:      sessions,
		SessionTokens: sessionTokens,
		MFA:           mfa,
		Sudo:          sudo,
		Limiter:       limiter,
		RateLimit:     cfg.RateLimit,
		SecureCookies: !cfg.Debug,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Infof("starting server on %s", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	if errListen := srv.ListenAndServe(); errListen != nil && errListen != http.ErrServerClosed {
		return errListen
	}
	return nil
}
