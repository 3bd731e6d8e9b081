// internal/repository/postgres/ledger_repo.go
package postgres

import (
	"context"
	"fmt"

	"vas-billing-service/internal/domain/subscription"
	"vas-billing-service/internal/domain/transaction"
)

// LedgerRepository groups the multi-table writes of the subscription
// lifecycle into single database transactions.
type LedgerRepository struct {
	db    *DB
	users *UserRepository
	subs  *SubscriptionRepository
	txns  *TransactionRepository
}

func NewLedgerRepository(db *DB, users *UserRepository, subs *SubscriptionRepository, txns *TransactionRepository) *LedgerRepository {
	return &LedgerRepository{db: db, users: users, subs: subs, txns: txns}
}

// SettleCharge debits the balance, opens the subscription and records the
// charge. Nothing is written unless all three succeed.
func (r *LedgerRepository) SettleCharge(ctx context.Context, s *subscription.ChargeSettlement) (*subscription.Subscription, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.users.DebitWithTx(ctx, tx, s.MSISDN, s.Amount); err != nil {
		return nil, err
	}

	sub := s.NewSubscription()
	if err := r.subs.CreateWithTx(ctx, tx, sub); err != nil {
		return nil, err
	}

	if err := r.txns.CreateWithTx(ctx, tx, s.Transaction); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return sub, nil
}

// SettleCancel cancels the subscription and records the refund attempt,
// crediting the balance when the refund succeeded.
func (r *LedgerRepository) SettleCancel(ctx context.Context, c *subscription.CancelSettlement) (*subscription.Subscription, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sub, err := r.subs.CancelWithTx(ctx, tx, c.MSISDN, c.SubscriptionID, c.EndedAt)
	if err != nil {
		return nil, err
	}

	if c.Refund != nil {
		if err := r.txns.CreateWithTx(ctx, tx, c.Refund); err != nil {
			return nil, err
		}
		if c.Refund.Status == transaction.StatusSuccess {
			if err := r.users.CreditWithTx(ctx, tx, c.MSISDN, c.Refund.Amount); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return sub, nil
}
