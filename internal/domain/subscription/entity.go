// internal/domain/subscription/entity.go
package subscription

import (
	"time"

	"vas-billing-service/internal/domain/catalog"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCancelled
}

// Subscription links a subscriber to a service. Cancelled is terminal.
type Subscription struct {
	ID               int64      `json:"id" db:"id"`
	MSISDN           string     `json:"msisdn" db:"msisdn"`
	ServiceID        int64      `json:"serviceId" db:"service_id"`
	Status           Status     `json:"status" db:"status"`
	StartDate        time.Time  `json:"startDate" db:"start_date"`
	EndDate          *time.Time `json:"endDate,omitempty" db:"end_date"`
	LastBillingDate  time.Time  `json:"lastBillingDate" db:"last_billing_date"`
	NextBillingDate  time.Time  `json:"nextBillingDate" db:"next_billing_date"`
	AmountCharged    float64    `json:"amountCharged" db:"amount_charged"`
	BillingReference string     `json:"billingReference" db:"billing_reference"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt" db:"updated_at"`

	Service *catalog.Service `json:"service,omitempty" db:"-"`
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}
