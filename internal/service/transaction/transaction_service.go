// internal/service/transaction/transaction_service.go
package transaction

import (
	"context"
	"fmt"

	"vas-billing-service/internal/domain/transaction"
	xerrors "vas-billing-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type TransactionStore interface {
	ListByMSISDN(ctx context.Context, msisdn string, filters *transaction.ListFilters) ([]*transaction.Transaction, error)
	StatsByMSISDN(ctx context.Context, msisdn string) ([]*transaction.TypeStats, error)
}

type TransactionService struct {
	store  TransactionStore
	logger *zap.Logger
}

func NewTransactionService(store TransactionStore, logger *zap.Logger) *TransactionService {
	return &TransactionService{store: store, logger: logger}
}

// List returns the caller's charge and refund records, newest first.
func (s *TransactionService) List(ctx context.Context, msisdn string, query transaction.ListQuery) ([]*transaction.Transaction, error) {
	filters, err := query.Filters()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, err)
	}

	txns, err := s.store.ListByMSISDN(ctx, msisdn, filters)
	if err != nil {
		s.logger.Error("failed to list transactions", zap.String("msisdn", msisdn), zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// Stats totals the caller's records per transaction type.
func (s *TransactionService) Stats(ctx context.Context, msisdn string) ([]*transaction.TypeStats, error) {
	stats, err := s.store.StatsByMSISDN(ctx, msisdn)
	if err != nil {
		s.logger.Error("failed to aggregate transactions", zap.String("msisdn", msisdn), zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction stats: %w", err)
	}
	return stats, nil
}
