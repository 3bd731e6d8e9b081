package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"

	"vas-billing-service/internal/domain/catalog"
	"vas-billing-service/internal/domain/subscription"
	"vas-billing-service/internal/domain/transaction"
	"vas-billing-service/internal/domain/user"
	wsdomain "vas-billing-service/internal/domain/websocket"
	xerrors "vas-billing-service/internal/pkg/errors"
	"vas-billing-service/internal/pkg/response"
	"vas-billing-service/internal/repository/memory"
	"vas-billing-service/internal/service/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const msisdn = "0821234567"

type recordingNotifier struct {
	mu     sync.Mutex
	events []*wsdomain.SubscriptionEventData
	stats  int
}

func (n *recordingNotifier) NotifySubscription(_ string, data *wsdomain.SubscriptionEventData) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, data)
}

func (n *recordingNotifier) NotifyAdminStats() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stats++
}

type fixture struct {
	svc      *SubscriptionService
	store    *memory.Store
	notifier *recordingNotifier
	service  *catalog.Service
}

func newFixture(t *testing.T, airtime, chargeRate, refundRate float64) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	require.NoError(t, store.Users().Create(ctx, &user.User{MSISDN: msisdn, Name: "Thandi", Provider: user.ProviderMTN, Airtime: airtime}))

	svc := &catalog.Service{Name: "Daily Trivia", Price: 10, Category: catalog.CategoryQuiz, BillingCycle: catalog.BillingCycleDaily, Active: true}
	require.NoError(t, store.Services().Create(ctx, svc))

	profiles := map[string]billing.Profile{
		billing.DefaultProfileName: {Name: billing.DefaultProfileName, ChargeSuccessRate: chargeRate, RefundSuccessRate: refundRate},
	}
	notifier := &recordingNotifier{}

	return &fixture{
		svc: NewSubscriptionService(
			store.Users(),
			store.Services(),
			store.Subscriptions(),
			store.Ledger(),
			billing.NewSimulator(profiles, zap.NewNop(), billing.WithoutDelay()),
			notifier,
			zap.NewNop(),
		),
		store:    store,
		notifier: notifier,
		service:  svc,
	}
}

func (f *fixture) airtime(t *testing.T) float64 {
	t.Helper()
	u, err := f.store.Users().FindByMSISDN(context.Background(), msisdn)
	require.NoError(t, err)
	return u.Airtime
}

func (f *fixture) transactions(t *testing.T) []*transaction.Transaction {
	t.Helper()
	txns, err := f.store.Transactions().ListByMSISDN(context.Background(), msisdn, nil)
	require.NoError(t, err)
	return txns
}

func TestSubscribeChargesAndActivates(t *testing.T) {
	f := newFixture(t, 50, 1, 1)

	res, err := f.svc.Subscribe(context.Background(), msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
	require.NoError(t, err)

	assert.Equal(t, subscription.StatusActive, res.Subscription.Status)
	assert.Equal(t, 10.0, res.Subscription.AmountCharged)
	assert.Equal(t, res.Billing.Reference, res.Subscription.BillingReference)
	assert.Equal(t, "mtn", res.Billing.Provider)
	assert.Equal(t, 40.0, f.airtime(t))

	txns := f.transactions(t)
	require.Len(t, txns, 1)
	assert.Equal(t, transaction.TypeCharge, txns[0].Type)
	assert.Equal(t, transaction.StatusSuccess, txns[0].Status)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, wsdomain.ActionSubscribe, f.notifier.events[0].Type)
	assert.Equal(t, 1, f.notifier.stats)
}

func TestSubscribeTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50, 1, 1)

	_, err := f.svc.Subscribe(ctx, msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
	require.NoError(t, err)

	_, err = f.svc.Subscribe(ctx, msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
	assert.ErrorIs(t, err, xerrors.ErrAlreadySubscribed)
	assert.Equal(t, 40.0, f.airtime(t))
	assert.Len(t, f.transactions(t), 1)
}

func TestSubscribeWithoutEnoughAirtime(t *testing.T) {
	f := newFixture(t, 5, 1, 1)

	_, err := f.svc.Subscribe(context.Background(), msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
	require.ErrorIs(t, err, xerrors.ErrInsufficientAirtime)

	var perr *subscription.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "mtn", perr.Provider)
	assert.Equal(t, 5.0, f.airtime(t))
	assert.Empty(t, f.transactions(t))
}

func TestRejectedChargeLeavesNoTrace(t *testing.T) {
	f := newFixture(t, 50, 0, 1)

	_, err := f.svc.Subscribe(context.Background(), msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
	require.ErrorIs(t, err, xerrors.ErrBillingFailed)

	var perr *subscription.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "mtn", perr.Provider)

	subs, err := f.svc.List(context.Background(), msisdn, nil)
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.Equal(t, 50.0, f.airtime(t))
	assert.Empty(t, f.transactions(t))
	assert.Empty(t, f.notifier.events)
}

func TestSubscribeToUnknownOrInactiveService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50, 1, 1)

	_, err := f.svc.Subscribe(ctx, msisdn, &subscription.SubscribeRequest{ServiceID: 999})
	assert.ErrorIs(t, err, xerrors.ErrServiceInactive)

	_, err = f.store.Services().SetActive(ctx, f.service.ID, false)
	require.NoError(t, err)

	_, err = f.svc.Subscribe(ctx, msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
	assert.ErrorIs(t, err, xerrors.ErrServiceInactive)
	assert.Equal(t, 50.0, f.airtime(t))
}

func TestUnsubscribeRefundsAndCancels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50, 1, 1)

	res, err := f.svc.Subscribe(ctx, msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
	require.NoError(t, err)

	cancelled, err := f.svc.Unsubscribe(ctx, msisdn, res.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, cancelled.Subscription.Status)
	require.NotNil(t, cancelled.Subscription.EndDate)
	require.NotNil(t, cancelled.Refund)
	assert.Equal(t, transaction.StatusSuccess, cancelled.Refund.Status)
	assert.Equal(t, 50.0, f.airtime(t))

	active := subscription.StatusActive
	subs, err := f.svc.List(ctx, msisdn, &active)
	require.NoError(t, err)
	assert.Empty(t, subs)

	// A fresh subscription is allowed once the old one is cancelled.
	_, err = f.svc.Subscribe(ctx, msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
	require.NoError(t, err)
}

func TestFailedRefundIsRecordedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50, 1, 0)

	res, err := f.svc.Subscribe(ctx, msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
	require.NoError(t, err)

	cancelled, err := f.svc.Unsubscribe(ctx, msisdn, res.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, cancelled.Subscription.Status)
	assert.Equal(t, 40.0, f.airtime(t))

	var refunds []*transaction.Transaction
	for _, txn := range f.transactions(t) {
		if txn.Type == transaction.TypeRefund {
			refunds = append(refunds, txn)
		}
	}
	require.Len(t, refunds, 1)
	assert.Equal(t, transaction.StatusFailed, refunds[0].Status)
	assert.Equal(t, 10.0, refunds[0].Amount)
}

func TestUnsubscribeRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50, 1, 1)

	res, err := f.svc.Subscribe(ctx, msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
	require.NoError(t, err)

	_, err = f.svc.Unsubscribe(ctx, "0830000000", res.Subscription.ID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = f.svc.Unsubscribe(ctx, msisdn, 404)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = f.svc.Unsubscribe(ctx, msisdn, res.Subscription.ID)
	require.NoError(t, err)

	_, err = f.svc.Unsubscribe(ctx, msisdn, res.Subscription.ID)
	assert.ErrorIs(t, err, xerrors.ErrAlreadyCancelled)

	refunds := 0
	for _, txn := range f.transactions(t) {
		if txn.Type == transaction.TypeRefund {
			refunds++
		}
	}
	assert.Equal(t, 1, refunds)
}

// countingBiller passes calls through and counts them.
type countingBiller struct {
	Biller

	mu      sync.Mutex
	charges int
	refunds int
}

func (b *countingBiller) Charge(ctx context.Context, provider, msisdn string, amount float64) (*billing.Result, error) {
	b.mu.Lock()
	b.charges++
	b.mu.Unlock()
	return b.Biller.Charge(ctx, provider, msisdn, amount)
}

func (b *countingBiller) Refund(ctx context.Context, provider, msisdn string, amount float64) (*billing.Result, error) {
	b.mu.Lock()
	b.refunds++
	b.mu.Unlock()
	return b.Biller.Refund(ctx, provider, msisdn, amount)
}

type brokenLedger struct {
	Ledger
	err error
}

func (l brokenLedger) SettleCharge(context.Context, *subscription.ChargeSettlement) (*subscription.Subscription, error) {
	return nil, l.err
}

// with rebuilds the service on f's store around another biller and ledger.
func (f *fixture) with(biller Biller, ledger Ledger) *SubscriptionService {
	return NewSubscriptionService(
		f.store.Users(),
		f.store.Services(),
		f.store.Subscriptions(),
		ledger,
		biller,
		f.notifier,
		zap.NewNop(),
	)
}

func newCountingBiller() *countingBiller {
	profiles := map[string]billing.Profile{
		billing.DefaultProfileName: {Name: billing.DefaultProfileName, ChargeSuccessRate: 1, RefundSuccessRate: 1},
	}
	return &countingBiller{Biller: billing.NewSimulator(profiles, zap.NewNop(), billing.WithoutDelay())}
}

func TestLedgerFailureRefundsTheCharge(t *testing.T) {
	cases := []struct {
		name         string
		err          error
		wantStatus   int
		wantProvider bool
	}{
		{name: "database fault", err: errors.New("connection reset by peer"), wantStatus: 500},
		{name: "lost subscribe race", err: xerrors.ErrAlreadySubscribed, wantStatus: 400, wantProvider: true},
		{name: "balance spent meanwhile", err: xerrors.ErrInsufficientAirtime, wantStatus: 400, wantProvider: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 50, 1, 1)
			biller := newCountingBiller()
			svc := f.with(biller, brokenLedger{Ledger: f.store.Ledger(), err: tc.err})

			_, err := svc.Subscribe(context.Background(), msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.wantStatus, response.StatusFor(err))

			var perr *subscription.ProviderError
			assert.Equal(t, tc.wantProvider, errors.As(err, &perr))

			assert.Equal(t, 1, biller.charges)
			assert.Equal(t, 1, biller.refunds, "accepted charge is handed back")
			assert.Equal(t, 50.0, f.airtime(t))
			assert.Empty(t, f.transactions(t))
			assert.Empty(t, f.notifier.events)
		})
	}
}

func TestConcurrentSubscribeChargesOnce(t *testing.T) {
	f := newFixture(t, 100, 1, 1)
	biller := newCountingBiller()
	svc := f.with(biller, f.store.Ledger())

	const callers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []*subscription.SubscribeResult
		failures  []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Subscribe(context.Background(), msisdn, &subscription.SubscribeRequest{ServiceID: f.service.ID})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			succeeded = append(succeeded, res)
		}()
	}
	wg.Wait()

	require.Len(t, succeeded, 1)
	for _, err := range failures {
		assert.ErrorIs(t, err, xerrors.ErrAlreadySubscribed)
	}
	assert.Equal(t, 90.0, f.airtime(t))

	txns := f.transactions(t)
	require.Len(t, txns, 1)
	assert.Equal(t, transaction.TypeCharge, txns[0].Type)
	assert.Equal(t, biller.charges-1, biller.refunds, "every charge that lost the race is compensated")

	subID := succeeded[0].Subscription.ID
	var cancelled int
	failures = nil
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Unsubscribe(context.Background(), msisdn, subID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			cancelled++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cancelled)
	for _, err := range failures {
		assert.ErrorIs(t, err, xerrors.ErrAlreadyCancelled)
	}
	assert.Equal(t, 100.0, f.airtime(t))

	txns = f.transactions(t)
	require.Len(t, txns, 2)
	assert.ElementsMatch(t,
		[]transaction.Type{transaction.TypeCharge, transaction.TypeRefund},
		[]transaction.Type{txns[0].Type, txns[1].Type},
	)
}
