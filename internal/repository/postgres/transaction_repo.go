// internal/repository/postgres/transaction_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"vas-billing-service/internal/domain/transaction"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateWithTx appends a transaction record within a transaction
func (r *TransactionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			reference, msisdn, service_id, amount, type, status,
			billing_reference, metadata, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var metadataJSON []byte
	if t.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	err := tx.QueryRow(ctx, query,
		t.Reference, t.MSISDN, t.ServiceID, t.Amount, t.Type, t.Status,
		t.BillingReference, metadataJSON, t.Timestamp,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// ListByMSISDN returns the subscriber's transactions newest first with a service summary
func (r *TransactionRepository) ListByMSISDN(ctx context.Context, msisdn string, filters *transaction.ListFilters) ([]*transaction.Transaction, error) {
	conditions := []string{"t.msisdn = $1"}
	args := []interface{}{msisdn}
	argPos := 2

	if filters != nil {
		if filters.Type != nil {
			conditions = append(conditions, fmt.Sprintf("t.type = $%d", argPos))
			args = append(args, *filters.Type)
			argPos++
		}
		if filters.Status != nil {
			conditions = append(conditions, fmt.Sprintf("t.status = $%d", argPos))
			args = append(args, *filters.Status)
			argPos++
		}
		if filters.StartDate != nil {
			conditions = append(conditions, fmt.Sprintf("t.timestamp >= $%d", argPos))
			args = append(args, *filters.StartDate)
			argPos++
		}
		if filters.EndDate != nil {
			conditions = append(conditions, fmt.Sprintf("t.timestamp <= $%d", argPos))
			args = append(args, *filters.EndDate)
			argPos++
		}
	}

	query := fmt.Sprintf(`
		SELECT t.id, t.reference, t.msisdn, t.service_id, t.amount, t.type, t.status,
		       t.billing_reference, t.metadata, t.timestamp,
		       svc.id, svc.name, svc.description, svc.price
		FROM transactions t
		LEFT JOIN services svc ON svc.id = t.service_id
		WHERE %s
		ORDER BY t.timestamp DESC, t.id DESC
	`, strings.Join(conditions, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txns := []*transaction.Transaction{}
	for rows.Next() {
		var t transaction.Transaction
		var metadataJSON []byte
		var svcID *int64
		var svcName, svcDescription *string
		var svcPrice *float64

		if err := rows.Scan(
			&t.ID, &t.Reference, &t.MSISDN, &t.ServiceID, &t.Amount, &t.Type, &t.Status,
			&t.BillingReference, &metadataJSON, &t.Timestamp,
			&svcID, &svcName, &svcDescription, &svcPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &t.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		if svcID != nil {
			t.Service = &transaction.ServiceSummary{
				ID:          *svcID,
				Name:        deref(svcName),
				Description: deref(svcDescription),
				Price:       derefFloat(svcPrice),
			}
		}
		txns = append(txns, &t)
	}

	return txns, rows.Err()
}

// StatsByMSISDN sums the subscriber's transactions per type
func (r *TransactionRepository) StatsByMSISDN(ctx context.Context, msisdn string) ([]*transaction.TypeStats, error) {
	query := `
		SELECT type, COALESCE(SUM(amount), 0), COUNT(*)
		FROM transactions
		WHERE msisdn = $1
		GROUP BY type
		ORDER BY type
	`

	rows, err := r.db.Query(ctx, query, msisdn)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	defer rows.Close()

	stats := []*transaction.TypeStats{}
	for rows.Next() {
		var s transaction.TypeStats
		if err := rows.Scan(&s.Type, &s.Total, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan transaction stats: %w", err)
		}
		stats = append(stats, &s)
	}

	return stats, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
