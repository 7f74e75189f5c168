package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

const superUserEmail = "admin@zoo.com"

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider resolves HS256 bearer tokens to staff identities.
type JWTProvider struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTProvider(secret string, ttl time.Duration) *JWTProvider {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &JWTProvider{secret: []byte(secret), ttl: ttl}
}

// Issue mints a token for the given identity.
func (p *JWTProvider) Issue(who domain.Identity) (string, error) {
	now := time.Now()
	c := claims{
		Email: who.Email,
		Role:  string(who.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   who.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(p.secret)
}

func (p *JWTProvider) Identify(_ context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return domain.Identity{}, ErrMissingToken
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	role := domain.Role(c.Role)
	if role == "" && strings.EqualFold(c.Email, superUserEmail) {
		role = domain.RoleAdmin
	}
	if !role.Valid() {
		return domain.Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, c.Role)
	}

	return domain.Identity{UserID: c.Subject, Email: c.Email, Role: role}, nil
}
