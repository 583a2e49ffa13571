// Package auth issues and validates the bearer tokens used by the API.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/erazemk/freezer/internal/model"
)

// Issuer is the iss claim of every token.
const Issuer = "freezer"

// TokenExpiry is the default token lifetime.
const TokenExpiry = 24 * time.Hour

// Claims represents the JWT claims.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens with one secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a Tokens using secret and the default expiry.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: TokenExpiry, now: time.Now}
}

// WithExpiry returns a copy that issues tokens valid for ttl.
func (t *Tokens) WithExpiry(ttl time.Duration) *Tokens {
	c := *t
	c.ttl = ttl
	return &c
}

// Issue creates a token for u with a fresh random ID.
func (t *Tokens) Issue(u *model.User) (string, *Claims, error) {
	now := t.now()
	claims := &Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}
	return signed, claims, nil
}

// Validate parses and verifies a token, returning its claims.
func (t *Tokens) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
