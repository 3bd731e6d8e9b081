// internal/service/admin/admin_service.go
package admin

import (
	"context"
	"fmt"

	"vas-billing-service/internal/domain/admin"
	"vas-billing-service/internal/domain/user"
	xerrors "vas-billing-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type UserStore interface {
	FindByMSISDN(ctx context.Context, msisdn string) (*user.User, error)
}

type SubscriptionStats interface {
	ActiveUsersPerService(ctx context.Context) ([]*admin.ActiveUsersPerService, error)
}

// ConnectionCounter reports the live notification channel.
type ConnectionCounter interface {
	Stats() admin.ConnectionStats
}

type AdminService struct {
	users       UserStore
	subs        SubscriptionStats
	connections ConnectionCounter
	logger      *zap.Logger
}

func NewAdminService(users UserStore, subs SubscriptionStats, connections ConnectionCounter, logger *zap.Logger) *AdminService {
	return &AdminService{users: users, subs: subs, connections: connections, logger: logger}
}

// Profile returns the admin's own profile. Non-admins are refused even if
// the route guard was bypassed.
func (s *AdminService) Profile(ctx context.Context, msisdn string) (*user.Profile, error) {
	u, err := s.users.FindByMSISDN(ctx, msisdn)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if !u.IsAdmin {
		return nil, fmt.Errorf("admin access required: %w", xerrors.ErrForbidden)
	}
	return u.Profile(), nil
}

// ActiveUsersPerService lists every service with its distinct active subscriber count.
func (s *AdminService) ActiveUsersPerService(ctx context.Context) ([]*admin.ActiveUsersPerService, error) {
	stats, err := s.subs.ActiveUsersPerService(ctx)
	if err != nil {
		s.logger.Error("failed to count active users", zap.Error(err))
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}
	return stats, nil
}

func (s *AdminService) ConnectionStats() admin.ConnectionStats {
	return s.connections.Stats()
}
