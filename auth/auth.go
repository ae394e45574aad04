// Package auth authenticates API callers with HS256 bearer tokens and
// places their team in the request context.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of tokens minted by Issue.
const DefaultTTL = time.Hour

// ErrNoTeam is returned for a valid token without a team claim.
var ErrNoTeam = errors.New("auth: token has no team")

// Claims represents the JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	TeamID string `json:"team_id"`
}

// Authenticator signs and verifies tokens with a shared secret.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// New creates an Authenticator. An empty issuer disables the issuer check.
func New(secret, issuer string, ttl time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Authenticator{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue mints a token for subject acting on behalf of teamID.
func (a *Authenticator) Issue(teamID, subject string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		TeamID: teamID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Parse validates tokenStr and returns its claims.
func (a *Authenticator) Parse(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if claims.TeamID == "" {
		return nil, ErrNoTeam
	}
	return claims, nil
}
