package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const secret = "test-secret"

func TestPlayerTokenRoundTrip(t *testing.T) {
	tok, exp, err := IssuePlayerToken(secret, "abc123", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("expiry %v too soon", exp)
	}

	got, err := ParsePlayerToken(secret, tok)
	if err != nil || got != "abc123" {
		t.Fatalf("ParsePlayerToken = %q, %v", got, err)
	}
	if err := VerifySession(secret, tok, "abc123"); err != nil {
		t.Errorf("VerifySession: %v", err)
	}
	if err := VerifySession(secret, tok, "other"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token for another session accepted: %v", err)
	}
}

func TestPlayerTokenRejected(t *testing.T) {
	expired, _, _ := IssuePlayerToken(secret, "abc123", -time.Minute)
	wrongKey, _, _ := IssuePlayerToken("other-secret", "abc123", time.Hour)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, PlayerClaims{SessionToken: "abc123"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name string
		raw  string
	}{
		{"expired", expired},
		{"wrong key", wrongKey},
		{"alg none", unsigned},
		{"garbage", "not-a-jwt"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePlayerToken(secret, tt.raw); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestPIN(t *testing.T) {
	hash, err := HashPIN("4821")
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckPIN(hash, "4821"); err != nil {
		t.Errorf("correct pin rejected: %v", err)
	}
	if err := CheckPIN(hash, "0000"); !errors.Is(err, ErrWrongPIN) {
		t.Errorf("wrong pin: %v", err)
	}

	if h, err := HashPIN(""); err != nil || h != "" {
		t.Errorf("empty pin: %q %v", h, err)
	}
	if err := CheckPIN("", "1234"); !errors.Is(err, ErrWrongPIN) {
		t.Error("a session without a pin cannot be resumed")
	}

	for _, bad := range []string{"12", "abcd", "123456789"} {
		if _, err := HashPIN(bad); !errors.Is(err, ErrInvalidPIN) {
			t.Errorf("HashPIN(%q) = %v", bad, err)
		}
	}
}
