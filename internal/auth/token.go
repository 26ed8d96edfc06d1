package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/user-management-service/internal/domain"
)

var (
	// ErrSigningKey is returned when no signing secret is configured.
	ErrSigningKey = errors.New("signing key unavailable")
	// ErrTokenMalformed covers structurally invalid tokens and signature
	// mismatches. Never recoverable.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrTokenExpired marks an authentic token past its expiry. Recoverable
	// through the refresh path only.
	ErrTokenExpired = errors.New("token expired")
)

// TokenCodec issues and verifies signed bearer tokens. It is pure over the
// token bytes and the signing secret; the secret is loaded once at startup
// and never mutated.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec builds a codec with the process-wide secret and TTLs.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}
	return &TokenCodec{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Claims describes the JWT payload. The subject carries the username.
type Claims struct {
	jwt.RegisteredClaims
}

// Issue signs a short-lived access token for the subject.
func (c *TokenCodec) Issue(username string) (string, time.Time, error) {
	return c.sign(username, c.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the subject.
func (c *TokenCodec) IssueRefresh(username string) (string, time.Time, error) {
	return c.sign(username, c.refreshTTL)
}

func (c *TokenCodec) sign(username string, ttl time.Duration) (string, time.Time, error) {
	if len(c.secret) == 0 {
		return "", time.Time{}, ErrSigningKey
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseSubject verifies the token and returns its subject. Expiry is
// reported separately from structural or signature failure so callers can
// route expired tokens to the refresh path.
func (c *TokenCodec) ParseSubject(tokenStr string) (string, error) {
	claims, err := c.parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExpiredSubject extracts the subject from an authentic but expired token.
// A token that fails for any other reason yields ErrTokenMalformed.
func (c *TokenCodec) ExpiredSubject(tokenStr string) (string, error) {
	claims, err := c.parse(tokenStr)
	if err == nil {
		return claims.Subject, nil
	}
	if errors.Is(err, ErrTokenExpired) && claims != nil {
		return claims.Subject, nil
	}
	return "", ErrTokenMalformed
}

// Validate reports whether the token is authentic, unexpired, and bound to
// the given user.
func (c *TokenCodec) Validate(tokenStr string, user *domain.User) bool {
	if user == nil {
		return false
	}
	claims, err := c.parse(tokenStr)
	if err != nil {
		return false
	}
	return claims.Subject == user.Username
}

// parse verifies signature and expiry. On expiry the decoded claims are
// still returned alongside ErrTokenExpired.
func (c *TokenCodec) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
