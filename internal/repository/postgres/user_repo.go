// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"vas-billing-service/internal/domain/user"
	xerrors "vas-billing-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new subscriber
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (msisdn, name, provider, airtime, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query, u.MSISDN, u.Name, u.Provider, u.Airtime, u.IsAdmin).Scan(&u.CreatedAt)
	if isUniqueViolation(err, "") {
		return xerrors.ErrAlreadyRegistered
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByMSISDN retrieves a subscriber by number
func (r *UserRepository) FindByMSISDN(ctx context.Context, msisdn string) (*user.User, error) {
	query := `
		SELECT msisdn, name, provider, airtime, is_admin, created_at
		FROM users
		WHERE msisdn = $1
	`

	var u user.User
	err := r.db.QueryRow(ctx, query, msisdn).Scan(
		&u.MSISDN, &u.Name, &u.Provider, &u.Airtime, &u.IsAdmin, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &u, nil
}

// EnsureAdmin inserts u as an admin, or promotes the existing row with the
// same number. It reports whether a new row was created.
func (r *UserRepository) EnsureAdmin(ctx context.Context, u *user.User) (bool, error) {
	query := `
		INSERT INTO users (msisdn, name, provider, airtime, is_admin)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (msisdn) DO UPDATE
		SET is_admin = TRUE,
		    name = CASE WHEN users.name = '' THEN EXCLUDED.name ELSE users.name END
		RETURNING (xmax = 0) AS inserted, name, provider, airtime, created_at
	`

	var inserted bool
	err := r.db.QueryRow(ctx, query, u.MSISDN, u.Name, u.Provider, u.Airtime).Scan(
		&inserted, &u.Name, &u.Provider, &u.Airtime, &u.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to ensure admin: %w", err)
	}
	u.IsAdmin = true

	return inserted, nil
}

// DebitWithTx takes amount off the balance only when it is covered.
func (r *UserRepository) DebitWithTx(ctx context.Context, tx pgx.Tx, msisdn string, amount float64) error {
	result, err := tx.Exec(ctx,
		`UPDATE users SET airtime = airtime - $1 WHERE msisdn = $2 AND airtime >= $1`,
		amount, msisdn,
	)
	if err != nil {
		return fmt.Errorf("failed to debit airtime: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrInsufficientAirtime
	}
	return nil
}

// CreditWithTx returns amount to the balance
func (r *UserRepository) CreditWithTx(ctx context.Context, tx pgx.Tx, msisdn string, amount float64) error {
	result, err := tx.Exec(ctx,
		`UPDATE users SET airtime = airtime + $1 WHERE msisdn = $2`,
		amount, msisdn,
	)
	if err != nil {
		return fmt.Errorf("failed to credit airtime: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
