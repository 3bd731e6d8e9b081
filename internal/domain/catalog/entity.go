// internal/domain/catalog/entity.go
package catalog

import "time"

type Category string

const (
	CategoryGaming Category = "gaming"
	CategoryMusic  Category = "music"
	CategoryQuiz   Category = "quiz"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryGaming, CategoryMusic, CategoryQuiz:
		return true
	}
	return false
}

type BillingCycle string

const (
	BillingCycleDaily   BillingCycle = "daily"
	BillingCycleWeekly  BillingCycle = "weekly"
	BillingCycleMonthly BillingCycle = "monthly"
)

func (b BillingCycle) Valid() bool {
	switch b {
	case BillingCycleDaily, BillingCycleWeekly, BillingCycleMonthly:
		return true
	}
	return false
}

// Next returns the billing date one cycle after from.
func (b BillingCycle) Next(from time.Time) time.Time {
	switch b {
	case BillingCycleDaily:
		return from.AddDate(0, 0, 1)
	case BillingCycleWeekly:
		return from.AddDate(0, 0, 7)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Service is a value-added offering subscribers pay for in airtime.
// Only Active changes after creation.
type Service struct {
	ID           int64        `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	Description  string       `json:"description" db:"description"`
	Price        float64      `json:"price" db:"price"`
	Category     Category     `json:"category" db:"category"`
	BillingCycle BillingCycle `json:"billingCycle" db:"billing_cycle"`
	Active       bool         `json:"active" db:"active"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" db:"updated_at"`
}
