// internal/pkg/jwt/manager.go
package jwt

import (
	"fmt"
	"time"
)

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("jwt ttl must be positive, got %s", cfg.TTL)
	}

	secret := []byte(cfg.Secret)
	return &Manager{
		Generator: NewGenerator(secret, cfg.Issuer, cfg.TTL),
		Verifier:  NewVerifier(secret, cfg.Issuer),
	}, nil
}
