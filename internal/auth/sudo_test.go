package auth

import (
	"context"
	"testing"
	"time"

	"github.com/maskbox/maskbox/internal/models"
)

func TestSudoEnter(t *testing.T) {
	conn := openTestDB(t)
	keys := NewKeys(conn)
	sudo := NewSudo(conn, 5*time.Minute)
	user := createTestUser(t, conn, "sudo@example.com", true)

	key, errIssue := keys.IssueOrGet(context.Background(), user.ID, "cli")
	if errIssue != nil {
		t.Fatalf("issue key: %v", errIssue)
	}
	identity := &Identity{User: user, Key: key}

	assertKind(t, sudo.Enter(context.Background(), identity, "wrong-password"), KindInvalidCredential)
	assertKind(t, sudo.Enter(context.Background(), identity, ""), KindInvalidCredential)
	if sudo.Elevated(identity) {
		t.Fatalf("failed attempts must not elevate")
	}

	if errEnter := sudo.Enter(context.Background(), identity, "hunter2boogaloo"); errEnter != nil {
		t.Fatalf("enter sudo: %v", errEnter)
	}
	if !sudo.Elevated(identity) {
		t.Fatalf("expected elevation after sudo entry")
	}

	var fresh models.APIKey
	if errFind := conn.First(&fresh, key.ID).Error; errFind != nil {
		t.Fatalf("reload key: %v", errFind)
	}
	if fresh.SudoModeAt == nil {
		t.Fatalf("expected sudo stamp persisted")
	}

	var audit models.UserAuditLog
	if errAudit := conn.Where("user_id = ? AND action = ?", user.ID, models.AuditEnterSudo).First(&audit).Error; errAudit != nil {
		t.Fatalf("expected sudo audit record: %v", errAudit)
	}
}

func TestSudoEnter_SessionIdentityRefused(t *testing.T) {
	conn := openTestDB(t)
	sudo := NewSudo(conn, 5*time.Minute)
	user := createTestUser(t, conn, "sudosession@example.com", true)

	assertKind(t, sudo.Enter(context.Background(), &Identity{User: user}, "hunter2boogaloo"), KindForbidden)
}

func TestSudoElevated_WindowExpiry(t *testing.T) {
	conn := openTestDB(t)
	keys := NewKeys(conn)
	sudo := NewSudo(conn, 5*time.Minute)
	user := createTestUser(t, conn, "sudowindow@example.com", true)

	key, errIssue := keys.IssueOrGet(context.Background(), user.ID, "cli")
	if errIssue != nil {
		t.Fatalf("issue key: %v", errIssue)
	}
	identity := &Identity{User: user, Key: key}

	entered := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sudo.nowFn = func() time.Time { return entered }
	if errEnter := sudo.Enter(context.Background(), identity, "hunter2boogaloo"); errEnter != nil {
		t.Fatalf("enter sudo: %v", errEnter)
	}

	sudo.nowFn = func() time.Time { return entered.Add(4*time.Minute + 59*time.Second) }
	if !sudo.Elevated(identity) {
		t.Fatalf("expected elevation inside the window")
	}

	sudo.nowFn = func() time.Time { return entered.Add(5*time.Minute + 1*time.Second) }
	if sudo.Elevated(identity) {
		t.Fatalf("expected elevation expired past the window")
	}
}
