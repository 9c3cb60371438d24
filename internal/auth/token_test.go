package auth

import (
	"testing"
	"time"

	"fyp-portal/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	actor := models.Actor{ID: "u1", Role: models.RoleStudent, University: "MIT"}

	token, err := tm.CreateToken(actor)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	got, err := tm.CheckToken(token)
	if err != nil {
		t.Fatalf("check token: %v", err)
	}
	if got != actor {
		t.Fatalf("got %+v, want %+v", got, actor)
	}
}

func TestTokenRejectsOtherSecretAndExpiry(t *testing.T) {
	token, err := NewTokenManager("a", time.Hour).CreateToken(models.Actor{ID: "u1", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if _, err := NewTokenManager("b", time.Hour).CheckToken(token); err == nil {
		t.Fatal("expected signature mismatch")
	}

	expired, err := NewTokenManager("a", -time.Minute).CreateToken(models.Actor{ID: "u1", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if _, err := NewTokenManager("a", time.Hour).CheckToken(expired); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("Secret123!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "Secret123!") || CheckPassword(hash, "nope") {
		t.Fatal("password check mismatch")
	}
}
