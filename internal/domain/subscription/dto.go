// internal/domain/subscription/dto.go
package subscription

import (
	"fmt"
	"time"

	"vas-billing-service/internal/domain/catalog"
	"vas-billing-service/internal/domain/transaction"
)

type SubscribeRequest struct {
	ServiceID int64 `json:"serviceId" binding:"required,min=1"`
}

// ChargeSettlement is everything persisted once the provider accepted a charge.
type ChargeSettlement struct {
	MSISDN           string
	Service          *catalog.Service
	Amount           float64
	BillingReference string
	ChargedAt        time.Time
	Transaction      *transaction.Transaction
}

// NewSubscription builds the active record the settlement creates.
func (s *ChargeSettlement) NewSubscription() *Subscription {
	return &Subscription{
		MSISDN:           s.MSISDN,
		ServiceID:        s.Service.ID,
		Status:           StatusActive,
		StartDate:        s.ChargedAt,
		LastBillingDate:  s.ChargedAt,
		NextBillingDate:  s.Service.BillingCycle.Next(s.ChargedAt),
		AmountCharged:    s.Amount,
		BillingReference: s.BillingReference,
		Service:          s.Service,
	}
}

// CancelSettlement cancels a subscription and, when Refund is set, records
// the refund attempt. Airtime is credited only for a successful refund.
type CancelSettlement struct {
	MSISDN         string
	SubscriptionID int64
	EndedAt        time.Time
	Refund         *transaction.Transaction
}

type BillingReceipt struct {
	Provider  string    `json:"provider"`
	Reference string    `json:"reference"`
	Timestamp time.Time `json:"timestamp"`
	Amount    float64   `json:"amount"`
}

type SubscribeResult struct {
	Subscription *Subscription  `json:"subscription"`
	Billing      BillingReceipt `json:"billing"`
}

type CancelResult struct {
	Subscription *Subscription           `json:"subscription"`
	Refund       *transaction.Transaction `json:"refund,omitempty"`
}

// ProviderError tags a billing rejection with the telco that issued it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ParseStatus turns the optional ?status= value into a filter.
func ParseStatus(raw string) (*Status, error) {
	if raw == "" {
		return nil, nil
	}
	s := Status(raw)
	if !s.Valid() {
		return nil, fmt.Errorf("invalid subscription status %q", raw)
	}
	return &s, nil
}
