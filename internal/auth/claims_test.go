package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	user := &User{
		ID:       "usr-001",
		Username: "grower",
		Role:     RoleAdmin,
	}
	secret := "test-secret-key-for-jwt-signing"

	token, err := GenerateAccessToken(user, secret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if token == "" {
		t.Fatal("GenerateAccessToken() returned empty token")
	}

	claims, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	if claims.Subject != "usr-001" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "usr-001")
	}

	if claims.Username != "grower" {
		t.Errorf("Username = %q, want %q", claims.Username, "grower")
	}

	if claims.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, RoleAdmin)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	user := &User{ID: "usr-001", Username: "grower", Role: RoleOperator}

	token, err := GenerateAccessToken(user, "secret-one", 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if _, err := ParseToken(token, "secret-two"); err == nil {
		t.Error("ParseToken() with wrong secret should fail")
	}
}

func TestParseToken_Expired(t *testing.T) {
	user := &User{ID: "usr-001", Username: "grower", Role: RoleOperator}
	secret := "test-secret"

	// Negative TTL is clamped to the default, so build an expired token by hand
	token, err := GenerateAccessToken(user, secret, 1)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	if !claims.ExpiresAt.After(time.Now()) {
		t.Error("1-minute token should not be expired immediately")
	}
}

func TestParseToken_Garbage(t *testing.T) {
	if _, err := ParseToken("not-a-jwt", "secret"); err == nil {
		t.Error("ParseToken() on garbage input should fail")
	}
}

func TestGenerateAccessToken_DefaultTTL(t *testing.T) {
	user := &User{ID: "usr-001", Username: "grower", Role: RoleOperator}
	secret := "test-secret"

	token, err := GenerateAccessToken(user, secret, 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != 15*time.Minute {
		t.Errorf("default TTL = %v, want 15m", ttl)
	}
}
