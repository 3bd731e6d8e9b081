package admin

import (
	"context"
	"testing"
	"time"

	"vas-billing-service/internal/domain/admin"
	"vas-billing-service/internal/domain/catalog"
	"vas-billing-service/internal/domain/subscription"
	"vas-billing-service/internal/domain/transaction"
	"vas-billing-service/internal/domain/user"
	xerrors "vas-billing-service/internal/pkg/errors"
	"vas-billing-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticCounter admin.ConnectionStats

func (c staticCounter) Stats() admin.ConnectionStats { return admin.ConnectionStats(c) }

func subscribe(t *testing.T, store *memory.Store, msisdn string, svc *catalog.Service) {
	t.Helper()
	_, err := store.Ledger().SettleCharge(context.Background(), &subscription.ChargeSettlement{
		MSISDN: msisdn, Service: svc, Amount: svc.Price, ChargedAt: time.Now(),
		Transaction: &transaction.Transaction{
			Reference: msisdn + svc.Name, MSISDN: msisdn, ServiceID: svc.ID, Amount: svc.Price,
			Type: transaction.TypeCharge, Status: transaction.StatusSuccess, Timestamp: time.Now(),
		},
	})
	require.NoError(t, err)
}

func TestActiveUsersPerServiceIncludesIdleServices(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	for _, m := range []string{"0821111111", "0822222222"} {
		require.NoError(t, store.Users().Create(ctx, &user.User{MSISDN: m, Provider: user.ProviderMTN, Airtime: 50}))
	}
	a := &catalog.Service{Name: "A", Price: 5, Category: catalog.CategoryGaming, BillingCycle: catalog.BillingCycleDaily, Active: true}
	b := &catalog.Service{Name: "B", Price: 5, Category: catalog.CategoryMusic, BillingCycle: catalog.BillingCycleDaily, Active: true}
	require.NoError(t, store.Services().Create(ctx, a))
	require.NoError(t, store.Services().Create(ctx, b))

	subscribe(t, store, "0821111111", a)
	subscribe(t, store, "0822222222", a)

	svc := NewAdminService(store.Users(), store.Subscriptions(), staticCounter{}, zap.NewNop())
	stats, err := svc.ActiveUsersPerService(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "A", stats[0].ServiceName)
	assert.Equal(t, 2, stats[0].ActiveUserCount)
	assert.Equal(t, 0, stats[1].ActiveUserCount)
}

func TestProfileRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_, err := store.Users().EnsureAdmin(ctx, &user.User{MSISDN: "0000000001", Name: "System Administrator", Provider: user.DefaultProvider, Airtime: 9999, IsAdmin: true})
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(ctx, &user.User{MSISDN: "0821234567", Provider: user.ProviderMTN}))

	svc := NewAdminService(store.Users(), store.Subscriptions(), staticCounter{Users: 1, Connections: 2, Admins: 1}, zap.NewNop())

	p, err := svc.Profile(ctx, "0000000001")
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
	assert.Equal(t, 9999.0, p.Airtime)

	_, err = svc.Profile(ctx, "0821234567")
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	assert.Equal(t, 2, svc.ConnectionStats().Connections)
}
