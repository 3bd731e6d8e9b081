// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vas-billing-service/internal/domain/catalog"
	"vas-billing-service/internal/domain/subscription"
	"vas-billing-service/internal/domain/transaction"
	"vas-billing-service/internal/domain/user"
	wsdomain "vas-billing-service/internal/domain/websocket"
	"vas-billing-service/internal/metrics"
	xerrors "vas-billing-service/internal/pkg/errors"
	"vas-billing-service/internal/service/billing"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type UserStore interface {
	FindByMSISDN(ctx context.Context, msisdn string) (*user.User, error)
}

type ServiceStore interface {
	FindByID(ctx context.Context, id int64) (*catalog.Service, error)
}

type SubscriptionStore interface {
	FindByID(ctx context.Context, id int64) (*subscription.Subscription, error)
	HasActive(ctx context.Context, msisdn string, serviceID int64) (bool, error)
	ListByMSISDN(ctx context.Context, msisdn string, status *subscription.Status) ([]*subscription.Subscription, error)
}

// Ledger applies the multi-record writes of a lifecycle change atomically.
type Ledger interface {
	SettleCharge(ctx context.Context, s *subscription.ChargeSettlement) (*subscription.Subscription, error)
	SettleCancel(ctx context.Context, c *subscription.CancelSettlement) (*subscription.Subscription, error)
}

type Biller interface {
	Charge(ctx context.Context, provider, msisdn string, amount float64) (*billing.Result, error)
	Refund(ctx context.Context, provider, msisdn string, amount float64) (*billing.Result, error)
}

// Notifier pushes lifecycle events to connected clients. Delivery is best effort.
type Notifier interface {
	NotifySubscription(msisdn string, data *wsdomain.SubscriptionEventData)
	NotifyAdminStats()
}

type SubscriptionService struct {
	users    UserStore
	services ServiceStore
	subs     SubscriptionStore
	ledger   Ledger
	biller   Biller
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewSubscriptionService(
	users UserStore,
	services ServiceStore,
	subs SubscriptionStore,
	ledger Ledger,
	biller Biller,
	notifier Notifier,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		users:    users,
		services: services,
		subs:     subs,
		ledger:   ledger,
		biller:   biller,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Subscribe charges the caller for serviceID and opens an active subscription.
// A rejected charge leaves no trace in the ledger.
func (s *SubscriptionService) Subscribe(ctx context.Context, msisdn string, req *subscription.SubscribeRequest) (*subscription.SubscribeResult, error) {
	u, err := s.users.FindByMSISDN(ctx, msisdn)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	svc, err := s.services.FindByID(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrServiceInactive
		}
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	if !svc.Active {
		return nil, xerrors.ErrServiceInactive
	}

	active, err := s.subs.HasActive(ctx, msisdn, svc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing subscription: %w", err)
	}
	if active {
		return nil, xerrors.ErrAlreadySubscribed
	}

	provider := string(u.Provider)
	if u.Airtime < svc.Price {
		return nil, &subscription.ProviderError{Provider: provider, Err: xerrors.ErrInsufficientAirtime}
	}

	result, err := s.biller.Charge(ctx, provider, msisdn, svc.Price)
	if err != nil {
		s.logger.Warn("charge rejected",
			zap.String("msisdn", msisdn),
			zap.Int64("service_id", svc.ID),
			zap.String("provider", provider),
			zap.Error(err),
		)
		if errors.Is(err, xerrors.ErrBillingFailed) {
			return nil, &subscription.ProviderError{Provider: provider, Err: err}
		}
		return nil, fmt.Errorf("failed to charge airtime: %w", err)
	}

	settlement := &subscription.ChargeSettlement{
		MSISDN:           msisdn,
		Service:          svc,
		Amount:           svc.Price,
		BillingReference: result.Reference,
		ChargedAt:        result.Timestamp,
		Transaction: &transaction.Transaction{
			Reference:        ulid.Make().String(),
			MSISDN:           msisdn,
			ServiceID:        svc.ID,
			Amount:           svc.Price,
			Type:             transaction.TypeCharge,
			Status:           transaction.StatusSuccess,
			BillingReference: result.Reference,
			Metadata: map[string]interface{}{
				"provider": provider,
			},
			Timestamp: result.Timestamp,
		},
	}

	sub, err := s.ledger.SettleCharge(ctx, settlement)
	if err != nil {
		s.compensate(msisdn, provider, svc.Price, result.Reference, err)
		if xerrors.IsAny(err, xerrors.ErrAlreadySubscribed, xerrors.ErrInsufficientAirtime) {
			return nil, &subscription.ProviderError{Provider: provider, Err: err}
		}
		return nil, fmt.Errorf("failed to record subscription: %w", err)
	}

	s.logger.Info("subscription created",
		zap.String("msisdn", msisdn),
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("service_id", svc.ID),
		zap.Float64("amount", svc.Price),
		zap.String("billing_reference", result.Reference),
	)
	metrics.RecordSubscriptionEvent("subscribe")

	s.notifier.NotifySubscription(msisdn, &wsdomain.SubscriptionEventData{
		Type:           wsdomain.ActionSubscribe,
		SubscriptionID: sub.ID,
		Subscription:   sub,
	})
	s.notifier.NotifyAdminStats()

	return &subscription.SubscribeResult{
		Subscription: sub,
		Billing: subscription.BillingReceipt{
			Provider:  result.Provider,
			Reference: result.Reference,
			Timestamp: result.Timestamp,
			Amount:    svc.Price,
		},
	}, nil
}

// compensate hands the money back when the ledger refused a charge the
// provider already accepted.
func (s *SubscriptionService) compensate(msisdn, provider string, amount float64, chargeRef string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fields := []zap.Field{
		zap.String("msisdn", msisdn),
		zap.String("provider", provider),
		zap.Float64("amount", amount),
		zap.String("charge_reference", chargeRef),
		zap.NamedError("cause", cause),
	}

	result, err := s.biller.Refund(ctx, provider, msisdn, amount)
	if err != nil {
		s.logger.Error("compensating refund failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Warn("charge compensated after ledger failure", append(fields, zap.String("refund_reference", result.Reference))...)
}

// Unsubscribe cancels the caller's subscription and refunds what was charged.
// Exactly one refund record is written, whatever the provider answers.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, msisdn string, subscriptionID int64) (*subscription.CancelResult, error) {
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("subscription not found: %w", err)
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub.MSISDN != msisdn {
		return nil, fmt.Errorf("subscription not found: %w", xerrors.ErrNotFound)
	}
	if !sub.IsActive() {
		return nil, xerrors.ErrAlreadyCancelled
	}

	settlement := &subscription.CancelSettlement{
		MSISDN:         msisdn,
		SubscriptionID: subscriptionID,
		EndedAt:        s.now(),
	}

	svc, err := s.services.FindByID(ctx, sub.ServiceID)
	switch {
	case err == nil:
		refund, err := s.refund(ctx, msisdn, sub)
		if err != nil {
			return nil, err
		}
		settlement.Refund = refund
	case errors.Is(err, xerrors.ErrNotFound):
		s.logger.Warn("service gone, cancelling without refund",
			zap.Int64("subscription_id", subscriptionID),
			zap.Int64("service_id", sub.ServiceID),
		)
	default:
		return nil, fmt.Errorf("failed to load service: %w", err)
	}

	cancelled, err := s.ledger.SettleCancel(ctx, settlement)
	if err != nil {
		if xerrors.IsAny(err, xerrors.ErrNotFound, xerrors.ErrAlreadyCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}
	cancelled.Service = svc

	s.logger.Info("subscription cancelled",
		zap.String("msisdn", msisdn),
		zap.Int64("subscription_id", subscriptionID),
		zap.Bool("refunded", settlement.Refund != nil && settlement.Refund.Status == transaction.StatusSuccess),
	)
	metrics.RecordSubscriptionEvent("unsubscribe")

	s.notifier.NotifySubscription(msisdn, &wsdomain.SubscriptionEventData{
		Type:           wsdomain.ActionUnsubscribe,
		SubscriptionID: subscriptionID,
		Subscription:   cancelled,
	})
	s.notifier.NotifyAdminStats()

	return &subscription.CancelResult{Subscription: cancelled, Refund: settlement.Refund}, nil
}

// refund asks the provider for the money back and describes the outcome as a
// refund record. A provider rejection is recorded, not returned.
func (s *SubscriptionService) refund(ctx context.Context, msisdn string, sub *subscription.Subscription) (*transaction.Transaction, error) {
	u, err := s.users.FindByMSISDN(ctx, msisdn)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	provider := string(u.Provider)

	record := &transaction.Transaction{
		Reference: ulid.Make().String(),
		MSISDN:    msisdn,
		ServiceID: sub.ServiceID,
		Amount:    sub.AmountCharged,
		Type:      transaction.TypeRefund,
		Metadata: map[string]interface{}{
			"provider":        provider,
			"subscription_id": sub.ID,
		},
	}

	result, err := s.biller.Refund(ctx, provider, msisdn, sub.AmountCharged)
	switch {
	case err == nil:
		record.Status = transaction.StatusSuccess
		record.BillingReference = result.Reference
		record.Timestamp = result.Timestamp
	case errors.Is(err, xerrors.ErrBillingFailed):
		record.Status = transaction.StatusFailed
		record.Timestamp = s.now()
		record.Metadata["error"] = err.Error()
		s.logger.Warn("refund rejected",
			zap.String("msisdn", msisdn),
			zap.Int64("subscription_id", sub.ID),
			zap.String("provider", provider),
			zap.Error(err),
		)
	default:
		return nil, fmt.Errorf("failed to refund airtime: %w", err)
	}

	return record, nil
}

// List returns the caller's subscriptions newest first, optionally by status.
func (s *SubscriptionService) List(ctx context.Context, msisdn string, status *subscription.Status) ([]*subscription.Subscription, error) {
	subs, err := s.subs.ListByMSISDN(ctx, msisdn, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
