package auth

import (
	"testing"
	"time"
)

func TestMakeAndParse(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	tok, err := m.Make(7, "user7")
	if err != nil {
		t.Fatalf("Make failed: %v", err)
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "user7" {
		t.Errorf("Unexpected claims %+v", claims)
	}
	if claims.Subject != "7" {
		t.Errorf("Expected subject 7, got %s", claims.Subject)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	tok, _ := NewTokenManager("other", time.Hour).Make(1, "user1")
	if _, err := NewTokenManager("test-secret", time.Hour).Parse(tok); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)
	tok, _ := m.Make(1, "user1")
	if _, err := m.Parse(tok); err != ErrInvalidToken {
		t.Errorf("Expected expired token to be rejected, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	if _, err := m.Parse("not.a.token"); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}
