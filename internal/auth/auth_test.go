package auth

import (
	"errors"
	"testing"
	"time"

	"primeflip/internal/domain"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword(hash, "correct horse battery") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong password") {
		t.Error("wrong password accepted")
	}
}

func TestPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Error("short password accepted, want error")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret-please-rotate", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := issuer.Issue(domain.User{ID: 42, Username: "tenno"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	userID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	a, _ := NewTokenIssuer("secret-one", time.Hour)
	b, _ := NewTokenIssuer("secret-two", time.Hour)

	token, err := a.Issue(domain.User{ID: 1})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Verify with wrong secret = %v, want ErrUnauthorized", err)
	}
}

func TestTokenExpired(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret-please-rotate", time.Nanosecond)
	token, err := issuer.Issue(domain.User{ID: 7})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := issuer.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Verify expired token = %v, want ErrUnauthorized", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	issuer, _ := NewTokenIssuer("test-secret-please-rotate", time.Hour)
	if _, err := issuer.Verify("not.a.token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Verify garbage = %v, want ErrUnauthorized", err)
	}
	if _, err := issuer.Verify(""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Verify empty = %v, want ErrUnauthorized", err)
	}
}
