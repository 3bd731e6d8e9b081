// internal/pkg/otp/otp.go
package otp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoEntry is returned when no code is pending for a number.
var ErrNoEntry = errors.New("otp entry not found")

// Entry is a pending code. Only the bcrypt hash is stored.
type Entry struct {
	CodeHash  string    `json:"codeHash"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store keeps at most one pending entry per msisdn. A Put replaces any
// earlier entry. Stores may drop an entry once ttl has elapsed.
type Store interface {
	Put(ctx context.Context, msisdn string, entry *Entry, ttl time.Duration) error
	Get(ctx context.Context, msisdn string) (*Entry, error)
	Delete(ctx context.Context, msisdn string) error
}

// Generate returns a six digit code in 100000..999999.
func Generate(rng *rand.Rand) string {
	return fmt.Sprintf("%06d", 100000+rng.Intn(900000))
}

// NewEntry hashes code and stamps its expiry.
func NewEntry(code string, expiresAt time.Time, cost int) (*Entry, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash otp: %w", err)
	}
	return &Entry{CodeHash: string(hash), ExpiresAt: expiresAt}, nil
}

func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

func (e *Entry) Matches(code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(e.CodeHash), []byte(code)) == nil
}
