// internal/pkg/jwt/claims.go
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims
type Claims struct {
	MSISDN  string `json:"msisdn"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Remaining is how long the token stays valid after now.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
