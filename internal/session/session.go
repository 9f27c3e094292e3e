package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned when nobody is signed in.
var ErrNoSession = errors.New("no active session")

// Session is a signed-in account.
type Session struct {
	// Token is the bearer token. It is never serialised.
	Token string `json:"-"`

	Username string `json:"username"`
	Role     string `json:"role"`

	// ExpiresAt is the token's exp claim, zero when the token has none.
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims are the token fields the client relies on.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// ParseClaims reads the subject and expiry of a JWT without verifying it.
//
// Parameters:
//   - token: Encoded JWT as issued by the backend
//
// Returns:
//   - Claims: Subject and expiry (zero when absent)
//   - error: If the token is not a well-formed JWT
func ParseClaims(token string) (Claims, error) {
	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return Claims{}, fmt.Errorf("parsing token claims: %w", err)
	}

	claims := Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}

// SameIdentity reports whether two usernames name the same account,
// ignoring case and surrounding whitespace.
func SameIdentity(a, b string) bool {
	return normalizeUsername(a) == normalizeUsername(b)
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
