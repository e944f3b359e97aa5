// Package auth issues and verifies the admin bearer tokens that guard the
// history API.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSecret     = errors.New("auth token secret is empty")
	ErrBadAdmin     = errors.New("invalid admin token")
	ErrInvalidToken = errors.New("invalid token")
)

const issuer = "alttext-server"

// Claims is the JWT payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	secret     []byte
	adminToken string
	ttl        time.Duration
	now        func() time.Time
}

func NewTokens(secret, adminToken string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Tokens{
		secret:     []byte(secret),
		adminToken: adminToken,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// Exchange trades the configured admin token for a signed JWT. An empty
// admin token in the configuration disables the exchange.
func (t *Tokens) Exchange(adminToken string) (string, time.Time, error) {
	if t.adminToken == "" || subtle.ConstantTimeCompare([]byte(adminToken), []byte(t.adminToken)) != 1 {
		return "", time.Time{}, ErrBadAdmin
	}
	return t.Issue("admin")
}

// Issue signs a token for subject.
func (t *Tokens) Issue(subject string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify validates signature, issuer and expiry and returns the claims.
func (t *Tokens) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
