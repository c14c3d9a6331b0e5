package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid player token")
	ErrInvalidPIN   = errors.New("pin must be 4 to 8 digits")
	ErrWrongPIN     = errors.New("incorrect pin")
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

// PlayerClaims binds a player token to one session.
type PlayerClaims struct {
	SessionToken string `json:"session_token"`
	jwt.RegisteredClaims
}

// IssuePlayerToken signs an HS256 token for the session valid for ttl.
func IssuePlayerToken(secret, sessionToken string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := PlayerClaims{
		SessionToken: sessionToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionToken,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign player token: %w", err)
	}
	return signed, exp, nil
}

// ParsePlayerToken verifies a token and returns the session it belongs to.
func ParsePlayerToken(secret, raw string) (string, error) {
	var claims PlayerClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid || claims.SessionToken == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionToken, nil
}

// VerifySession checks that raw is a valid token for sessionToken.
func VerifySession(secret, raw, sessionToken string) error {
	got, err := ParsePlayerToken(secret, raw)
	if err != nil {
		return err
	}
	if got != sessionToken {
		return ErrInvalidToken
	}
	return nil
}

// HashPIN hashes a session resume PIN. An empty PIN means no PIN and hashes
// to "".
func HashPIN(pin string) (string, error) {
	if pin == "" {
		return "", nil
	}
	if !pinPattern.MatchString(pin) {
		return "", ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(hash), nil
}

// CheckPIN compares a PIN with its stored hash. Sessions created without a
// PIN cannot be resumed.
func CheckPIN(hash, pin string) error {
	if hash == "" {
		return ErrWrongPIN
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return ErrWrongPIN
	}
	return nil
}
