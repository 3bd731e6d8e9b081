// internal/domain/transaction/entity.go
package transaction

import "time"

type Type string

const (
	TypeCharge Type = "charge"
	TypeRefund Type = "refund"
)

func (t Type) Valid() bool {
	return t == TypeCharge || t == TypeRefund
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Transaction is an append-only record of one charge or refund attempt.
type Transaction struct {
	ID               int64                  `json:"id" db:"id"`
	Reference        string                 `json:"reference" db:"reference"`
	MSISDN           string                 `json:"msisdn" db:"msisdn"`
	ServiceID        int64                  `json:"serviceId" db:"service_id"`
	Amount           float64                `json:"amount" db:"amount"`
	Type             Type                   `json:"type" db:"type"`
	Status           Status                 `json:"status" db:"status"`
	BillingReference string                 `json:"billingReference,omitempty" db:"billing_reference"`
	Metadata         map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	Timestamp        time.Time              `json:"timestamp" db:"timestamp"`

	Service *ServiceSummary `json:"service,omitempty" db:"-"`
}

// ServiceSummary is the slice of a service shown next to its transactions.
type ServiceSummary struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}
