package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/careline/internal/models"
)

const testSecret = "test-secret"

func TestGenerateAndParse_RoundTrip(t *testing.T) {
	clinic := uuid.New()
	account := &models.Account{
		ID:       uuid.New(),
		Role:     models.RoleDoctor,
		TenantID: &clinic,
		Email:    "doc@clinic.fi",
		Phone:    "+3584012345",
	}

	token, err := GenerateToken(account, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if claims.UserID != account.ID {
		t.Errorf("user id = %v, want %v", claims.UserID, account.ID)
	}
	if claims.Role != models.RoleDoctor {
		t.Errorf("role = %v, want doctor", claims.Role)
	}
	if claims.TenantID == nil || *claims.TenantID != clinic {
		t.Errorf("tenant id = %v, want %v", claims.TenantID, clinic)
	}

	actor := claims.Actor()
	if actor.UserID != account.ID || actor.Email != account.Email || actor.Phone != account.Phone {
		t.Error("actor must carry the full claim payload")
	}
}

func TestGenerateToken_OmitsMissingTenant(t *testing.T) {
	account := &models.Account{ID: uuid.New(), Role: models.RolePatient, Email: "p@x.com"}

	token, err := GenerateToken(account, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if claims.TenantID != nil {
		t.Errorf("tenant id = %v, want nil for unscoped patient", claims.TenantID)
	}
}

func TestParseToken_RejectsWrongSecret(t *testing.T) {
	account := &models.Account{ID: uuid.New(), Role: models.RolePatient}
	token, err := GenerateToken(account, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Error("expected signature verification to fail")
	}
}

func TestParseToken_RejectsExpired(t *testing.T) {
	account := &models.Account{ID: uuid.New(), Role: models.RolePatient}
	token, err := GenerateToken(account, testSecret, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseToken(token, testSecret); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestParseToken_RejectsGarbage(t *testing.T) {
	if _, err := ParseToken("not-a-token", testSecret); err == nil {
		t.Error("expected malformed token to be rejected")
	}
}
