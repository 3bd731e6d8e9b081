// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vas-billing-service/internal/domain/admin"
	"vas-billing-service/internal/domain/catalog"
	"vas-billing-service/internal/domain/subscription"
	xerrors "vas-billing-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	subscriptionColumns = `id, msisdn, service_id, status, start_date, end_date, last_billing_date,
		next_billing_date, amount_charged, billing_reference, created_at, updated_at`

	activeSubscriptionIndex = "uq_subscriptions_active"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var s subscription.Subscription
	err := row.Scan(
		&s.ID, &s.MSISDN, &s.ServiceID, &s.Status, &s.StartDate, &s.EndDate, &s.LastBillingDate,
		&s.NextBillingDate, &s.AmountCharged, &s.BillingReference, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateWithTx inserts an active subscription within a transaction
func (r *SubscriptionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, s *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			msisdn, service_id, status, start_date, last_billing_date,
			next_billing_date, amount_charged, billing_reference
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		s.MSISDN, s.ServiceID, s.Status, s.StartDate, s.LastBillingDate,
		s.NextBillingDate, s.AmountCharged, s.BillingReference,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if isUniqueViolation(err, activeSubscriptionIndex) {
		return xerrors.ErrAlreadySubscribed
	}
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// FindByID retrieves a subscription without its service
func (r *SubscriptionRepository) FindByID(ctx context.Context, id int64) (*subscription.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE id = $1`, subscriptionColumns)

	s, err := scanSubscription(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}

	return s, nil
}

// HasActive reports whether msisdn holds an active subscription to serviceID
func (r *SubscriptionRepository) HasActive(ctx context.Context, msisdn string, serviceID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM subscriptions WHERE msisdn = $1 AND service_id = $2 AND status = 'active')`,
		msisdn, serviceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active subscription: %w", err)
	}
	return exists, nil
}

// ListByMSISDN returns the subscriber's subscriptions newest first, each with its service
func (r *SubscriptionRepository) ListByMSISDN(ctx context.Context, msisdn string, status *subscription.Status) ([]*subscription.Subscription, error) {
	query := `
		SELECT sub.id, sub.msisdn, sub.service_id, sub.status, sub.start_date, sub.end_date,
		       sub.last_billing_date, sub.next_billing_date, sub.amount_charged,
		       sub.billing_reference, sub.created_at, sub.updated_at,
		       svc.id, svc.name, svc.description, svc.price, svc.category,
		       svc.billing_cycle, svc.active, svc.created_at, svc.updated_at
		FROM subscriptions sub
		JOIN services svc ON svc.id = sub.service_id
		WHERE sub.msisdn = $1 AND ($2::text IS NULL OR sub.status = $2)
		ORDER BY sub.created_at DESC, sub.id DESC
	`

	var statusArg *string
	if status != nil {
		v := string(*status)
		statusArg = &v
	}

	rows, err := r.db.Query(ctx, query, msisdn, statusArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []*subscription.Subscription{}
	for rows.Next() {
		var s subscription.Subscription
		var svc catalog.Service
		if err := rows.Scan(
			&s.ID, &s.MSISDN, &s.ServiceID, &s.Status, &s.StartDate, &s.EndDate,
			&s.LastBillingDate, &s.NextBillingDate, &s.AmountCharged,
			&s.BillingReference, &s.CreatedAt, &s.UpdatedAt,
			&svc.ID, &svc.Name, &svc.Description, &svc.Price, &svc.Category,
			&svc.BillingCycle, &svc.Active, &svc.CreatedAt, &svc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		s.Service = &svc
		subs = append(subs, &s)
	}

	return subs, rows.Err()
}

// CancelWithTx moves the caller's subscription from active to cancelled.
// A missing or foreign subscription is ErrNotFound; a cancelled one is
// ErrAlreadyCancelled.
func (r *SubscriptionRepository) CancelWithTx(ctx context.Context, tx pgx.Tx, msisdn string, id int64, endedAt time.Time) (*subscription.Subscription, error) {
	query := fmt.Sprintf(`
		UPDATE subscriptions
		SET status = 'cancelled', end_date = $1, updated_at = $1
		WHERE id = $2 AND msisdn = $3 AND status = 'active'
		RETURNING %s
	`, subscriptionColumns)

	s, err := scanSubscription(tx.QueryRow(ctx, query, endedAt, id, msisdn))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	var status subscription.Status
	err = tx.QueryRow(ctx,
		`SELECT status FROM subscriptions WHERE id = $1 AND msisdn = $2`, id, msisdn,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription status: %w", err)
	}
	return nil, xerrors.ErrAlreadyCancelled
}

// ActiveUsersPerService counts distinct active subscribers for every service
func (r *SubscriptionRepository) ActiveUsersPerService(ctx context.Context) ([]*admin.ActiveUsersPerService, error) {
	query := `
		SELECT svc.id, svc.name, COUNT(DISTINCT sub.msisdn)
		FROM services svc
		LEFT JOIN subscriptions sub
		       ON sub.service_id = svc.id AND sub.status = 'active'
		GROUP BY svc.id, svc.name
		ORDER BY svc.id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate active users: %w", err)
	}
	defer rows.Close()

	stats := []*admin.ActiveUsersPerService{}
	for rows.Next() {
		var row admin.ActiveUsersPerService
		if err := rows.Scan(&row.ServiceID, &row.ServiceName, &row.ActiveUserCount); err != nil {
			return nil, fmt.Errorf("failed to scan active users row: %w", err)
		}
		stats = append(stats, &row)
	}

	return stats, rows.Err()
}
