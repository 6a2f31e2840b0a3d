package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"thesis-portal/internal/config"
	"thesis-portal/internal/models"
)

func newTestService(expiration time.Duration) *Service {
	return NewService(&config.JWTConfig{
		Secret:     "test-secret",
		Expiration: expiration,
	})
}

func TestHashPassword(t *testing.T) {
	svc := newTestService(time.Hour)

	password := "testpassword123"
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if hash == "" || hash == password {
		t.Errorf("Unexpected hash %q", hash)
	}

	if err := svc.VerifyPassword(hash, password); err != nil {
		t.Errorf("Should verify correct password, got error: %v", err)
	}
	if err := svc.VerifyPassword(hash, "wrongpassword"); err == nil {
		t.Error("Should not verify incorrect password")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(time.Hour)

	token, jti, expiresAt, err := svc.GenerateToken(7, models.RoleProfessor)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("Token and jti should not be empty")
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("Expiry should be in the future: %v", expiresAt)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("Expected user ID 7, got %d", claims.UserID)
	}
	if claims.Role != models.RoleProfessor {
		t.Errorf("Expected professor role, got %s", claims.Role)
	}
	if claims.ID != jti {
		t.Errorf("Expected jti %s, got %s", jti, claims.ID)
	}
}

func TestTokensHaveDistinctJTI(t *testing.T) {
	svc := newTestService(time.Hour)

	_, first, _, err := svc.GenerateToken(1, models.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	_, second, _, err := svc.GenerateToken(1, models.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("Each token should carry its own jti")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := newTestService(-time.Hour)

	token, _, _, err := svc.GenerateToken(1, models.RoleSecretary)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}

	jti, err := svc.ExtractJTI(token)
	if err != nil || jti == "" {
		t.Errorf("ExtractJTI should work on expired tokens: %q, %v", jti, err)
	}
}

func TestValidateTokenFromOtherKey(t *testing.T) {
	issuer := newTestService(time.Hour)
	verifier := newTestService(time.Hour)

	token, _, _, err := issuer.GenerateToken(1, models.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("Token signed with a different key should be rejected")
	}
}

func TestLoadKeysFromPEM(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	secret := string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))

	first := NewService(&config.JWTConfig{Secret: secret, Expiration: time.Hour})
	second := NewService(&config.JWTConfig{Secret: secret, Expiration: time.Hour})

	token, _, _, err := first.GenerateToken(3, models.RoleSecretary)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := second.ValidateToken(token); err != nil {
		t.Errorf("Services sharing a PEM key should accept each other's tokens: %v", err)
	}
}
