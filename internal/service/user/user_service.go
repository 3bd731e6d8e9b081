// internal/service/user/user_service.go
package user

import (
	"context"
	"errors"
	"fmt"

	"vas-billing-service/internal/domain/user"
	xerrors "vas-billing-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type UserStore interface {
	FindByMSISDN(ctx context.Context, msisdn string) (*user.User, error)
}

type UserService struct {
	users  UserStore
	logger *zap.Logger
}

func NewUserService(users UserStore, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// Profile returns the subscriber view of msisdn.
func (s *UserService) Profile(ctx context.Context, msisdn string) (*user.Profile, error) {
	u, err := s.users.FindByMSISDN(ctx, msisdn)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		s.logger.Error("failed to load profile", zap.String("msisdn", msisdn), zap.Error(err))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u.Profile(), nil
}
