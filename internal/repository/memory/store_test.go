package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"vas-billing-service/internal/domain/catalog"
	"vas-billing-service/internal/domain/subscription"
	"vas-billing-service/internal/domain/transaction"
	"vas-billing-service/internal/domain/user"
	xerrors "vas-billing-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, airtime float64) (*Store, *catalog.Service) {
	t.Helper()
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Users().Create(ctx, &user.User{MSISDN: "0821234567", Provider: user.ProviderMTN, Airtime: airtime}))

	svc := &catalog.Service{Name: "Trivia", Price: 10, Category: catalog.CategoryQuiz, BillingCycle: catalog.BillingCycleDaily, Active: true}
	require.NoError(t, s.Services().Create(ctx, svc))
	return s, svc
}

func charge(svc *catalog.Service, ref string) *subscription.ChargeSettlement {
	return &subscription.ChargeSettlement{
		MSISDN:           "0821234567",
		Service:          svc,
		Amount:           svc.Price,
		BillingReference: ref,
		ChargedAt:        time.Now(),
		Transaction: &transaction.Transaction{
			Reference: ref,
			MSISDN:    "0821234567",
			ServiceID: svc.ID,
			Amount:    svc.Price,
			Type:      transaction.TypeCharge,
			Status:    transaction.StatusSuccess,
			Timestamp: time.Now(),
		},
	}
}

func TestSettleChargeDebitsOnce(t *testing.T) {
	ctx := context.Background()
	s, svc := seed(t, 25)

	sub, err := s.Ledger().SettleCharge(ctx, charge(svc, "r1"))
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, sub.Status)

	_, err = s.Ledger().SettleCharge(ctx, charge(svc, "r2"))
	assert.ErrorIs(t, err, xerrors.ErrAlreadySubscribed)

	u, err := s.Users().FindByMSISDN(ctx, "0821234567")
	require.NoError(t, err)
	assert.Equal(t, 15.0, u.Airtime)

	txns, err := s.Transactions().ListByMSISDN(ctx, "0821234567", nil)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Trivia", txns[0].Service.Name)
}

func TestSettleChargeRejectsUncoveredDebit(t *testing.T) {
	ctx := context.Background()
	s, svc := seed(t, 5)

	_, err := s.Ledger().SettleCharge(ctx, charge(svc, "r1"))
	assert.ErrorIs(t, err, xerrors.ErrInsufficientAirtime)

	subs, err := s.Subscriptions().ListByMSISDN(ctx, "0821234567", nil)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestConcurrentSettleChargeAllowsOneWinner(t *testing.T) {
	ctx := context.Background()
	s, svc := seed(t, 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Ledger().SettleCharge(ctx, charge(svc, "ref")); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	u, _ := s.Users().FindByMSISDN(ctx, "0821234567")
	assert.Equal(t, 990.0, u.Airtime)
}

func TestSettleCancel(t *testing.T) {
	ctx := context.Background()
	s, svc := seed(t, 25)

	sub, err := s.Ledger().SettleCharge(ctx, charge(svc, "r1"))
	require.NoError(t, err)

	refund := &transaction.Transaction{
		Reference: "r2", MSISDN: "0821234567", ServiceID: svc.ID, Amount: 10,
		Type: transaction.TypeRefund, Status: transaction.StatusSuccess, Timestamp: time.Now(),
	}
	cancelled, err := s.Ledger().SettleCancel(ctx, &subscription.CancelSettlement{
		MSISDN: "0821234567", SubscriptionID: sub.ID, EndedAt: time.Now(), Refund: refund,
	})
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.EndDate)

	u, _ := s.Users().FindByMSISDN(ctx, "0821234567")
	assert.Equal(t, 25.0, u.Airtime)

	_, err = s.Ledger().SettleCancel(ctx, &subscription.CancelSettlement{MSISDN: "0821234567", SubscriptionID: sub.ID, EndedAt: time.Now()})
	assert.ErrorIs(t, err, xerrors.ErrAlreadyCancelled)

	_, err = s.Ledger().SettleCancel(ctx, &subscription.CancelSettlement{MSISDN: "0830000000", SubscriptionID: sub.ID, EndedAt: time.Now()})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	active := subscription.StatusActive
	subs, err := s.Subscriptions().ListByMSISDN(ctx, "0821234567", &active)
	require.NoError(t, err)
	assert.Empty(t, subs)

	stats, err := s.Transactions().StatsByMSISDN(ctx, "0821234567")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, transaction.TypeCharge, stats[0].Type)
	assert.Equal(t, transaction.TypeRefund, stats[1].Type)
}

func TestEnsureAdminPromotesExistingUser(t *testing.T) {
	ctx := context.Background()
	s, _ := seed(t, 25)

	u := &user.User{MSISDN: "0821234567", Name: "System Administrator", Airtime: 9999}
	created, err := s.Users().EnsureAdmin(ctx, u)
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, 25.0, u.Airtime, "promotion keeps the existing balance")

	created, err = s.Users().EnsureAdmin(ctx, &user.User{MSISDN: "0000000001", Airtime: 9999})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestListActiveFiltersCategories(t *testing.T) {
	ctx := context.Background()
	s, _ := seed(t, 25)
	require.NoError(t, s.Services().Create(ctx, &catalog.Service{Name: "Beats", Category: catalog.CategoryMusic, Active: true}))
	require.NoError(t, s.Services().Create(ctx, &catalog.Service{Name: "Old", Category: catalog.CategoryMusic, Active: false}))

	all, err := s.Services().ListActive(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	music, err := s.Services().ListActive(ctx, &catalog.ListFilters{Categories: []catalog.Category{catalog.CategoryMusic}})
	require.NoError(t, err)
	require.Len(t, music, 1)
	assert.Equal(t, "Beats", music[0].Name)
}
