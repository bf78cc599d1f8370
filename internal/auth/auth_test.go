package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/maskbox/maskbox/internal/mail"
	"github.com/maskbox/maskbox/internal/models"
	"github.com/maskbox/maskbox/internal/security"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
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
	return conn
}

func createTestUser(t *testing.T, conn *gorm.DB, email string, activated bool) *models.User {
	t.Helper()
	hash, errHash := security.HashPassword("hunter2boogaloo")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	user := models.User{
		Email:          email,
		CanonicalEmail: CanonicalizeEmail(email),
		Name:           email,
		Password:       hash,
		Activated:      activated,
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return &user
}

// recordingSender captures outbound mail on a channel so tests can wait for
// async delivery.
type recordingSender struct {
	sent chan mail.Message
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(chan mail.Message, 8)}
}

func (r *recordingSender) Send(_ context.Context, msg mail.Message) error {
	r.sent <- msg
	return nil
}

func (r *recordingSender) waitForMail(t *testing.T) mail.Message {
	t.Helper()
	select {
	case msg := <-r.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an email to be sent")
		return mail.Message{}
	}
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %q, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected error kind %q, got %q (%v)", want, got, err)
	}
}
