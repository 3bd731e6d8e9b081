// internal/pkg/jwt/generator.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

type Generator struct {
	secret []byte
	issuer string
	Ttl    time.Duration
	now    func() time.Time
}

func NewGenerator(secret []byte, issuer string, ttl time.Duration) *Generator {
	return &Generator{
		secret: secret,
		issuer: issuer,
		Ttl:    ttl,
		now:    time.Now,
	}
}

// Generate signs a session token for msisdn. It returns the token, its jti
// and its expiry.
func (g *Generator) Generate(msisdn string, isAdmin bool) (string, string, time.Time, error) {
	if len(g.secret) == 0 {
		return "", "", time.Time{}, fmt.Errorf("jwt generator has empty secret")
	}

	now := g.now()
	jti := ulid.Make().String()
	expiresAt := now.Add(g.Ttl)

	claims := &Claims{
		MSISDN:  msisdn,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   msisdn,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(g.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, jti, expiresAt, nil
}
