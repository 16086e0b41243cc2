package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret-key", time.Hour)

	token, err := svc.Mint("2211001")
	if err != nil {
		t.Fatalf("Failed to mint token: %v", err)
	}
	if token == "" {
		t.Fatal("Token should not be empty")
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.StudentID != "2211001" {
		t.Errorf("Expected StudentID 2211001, got %s", claims.StudentID)
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService("test-secret-key", -time.Minute)

	token, err := svc.Mint("2211001")
	if err != nil {
		t.Fatalf("Failed to mint token: %v", err)
	}

	_, err = svc.Validate(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Hour).Mint("2211001")
	if err != nil {
		t.Fatalf("Failed to mint token: %v", err)
	}

	_, err = NewTokenService("secret-b", time.Hour).Validate(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenService_Garbage(t *testing.T) {
	svc := NewTokenService("test-secret-key", time.Hour)

	if _, err := svc.Validate("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Expected ErrTokenInvalid, got %v", err)
	}
	if _, err := svc.Validate(""); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Expected ErrTokenInvalid for empty token, got %v", err)
	}
}
