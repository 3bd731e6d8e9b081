// internal/service/auth/admin_seed.go
package auth

import (
	"context"
	"fmt"

	"vas-billing-service/internal/domain/user"
	xerrors "vas-billing-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const (
	adminName    = "System Administrator"
	adminAirtime = 9999
)

// EnsureAdminExists creates the bootstrap admin, or promotes the existing
// user with that number (called on startup).
func (s *AuthService) EnsureAdminExists(ctx context.Context, msisdn string) error {
	if !user.ValidMSISDN(msisdn) {
		return fmt.Errorf("%w: admin msisdn %q", xerrors.ErrInvalidInput, msisdn)
	}

	admin := &user.User{
		MSISDN:   msisdn,
		Name:     adminName,
		Provider: user.DefaultProvider,
		Airtime:  adminAirtime,
	}

	created, err := s.users.EnsureAdmin(ctx, admin)
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	if created {
		s.logger.Info("admin user seeded", zap.String("msisdn", msisdn))
	} else {
		s.logger.Info("admin user ensured", zap.String("msisdn", msisdn))
	}
	return nil
}
