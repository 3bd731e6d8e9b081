// internal/repository/postgres/service_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vas-billing-service/internal/domain/catalog"
	xerrors "vas-billing-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const serviceColumns = `id, name, description, price, category, billing_cycle, active, created_at, updated_at`

type ServiceRepository struct {
	db *pgxpool.Pool
}

func NewServiceRepository(db *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func scanService(row pgx.Row) (*catalog.Service, error) {
	var s catalog.Service
	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &s.Price, &s.Category,
		&s.BillingCycle, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create adds a service to the catalog
func (r *ServiceRepository) Create(ctx context.Context, s *catalog.Service) error {
	query := `
		INSERT INTO services (name, description, price, category, billing_cycle, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		s.Name, s.Description, s.Price, s.Category, s.BillingCycle, s.Active,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	return nil
}

// FindByID retrieves a service whether or not it is active
func (r *ServiceRepository) FindByID(ctx context.Context, id int64) (*catalog.Service, error) {
	query := fmt.Sprintf(`SELECT %s FROM services WHERE id = $1`, serviceColumns)

	s, err := scanService(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find service: %w", err)
	}

	return s, nil
}

// ListActive returns active services, optionally restricted to categories
func (r *ServiceRepository) ListActive(ctx context.Context, filters *catalog.ListFilters) ([]*catalog.Service, error) {
	conditions := []string{"active = TRUE"}
	args := []interface{}{}
	argPos := 1

	if filters != nil && len(filters.Categories) > 0 {
		categories := make([]string, len(filters.Categories))
		for i, c := range filters.Categories {
			categories[i] = string(c)
		}
		conditions = append(conditions, fmt.Sprintf("category = ANY($%d)", argPos))
		args = append(args, pq.Array(categories))
		argPos++
	}

	query := fmt.Sprintf(
		`SELECT %s FROM services WHERE %s ORDER BY created_at DESC, id DESC`,
		serviceColumns, strings.Join(conditions, " AND "),
	)
	return r.list(ctx, query, args...)
}

// ListAll returns the whole catalog in id order
func (r *ServiceRepository) ListAll(ctx context.Context) ([]*catalog.Service, error) {
	query := fmt.Sprintf(`SELECT %s FROM services ORDER BY id`, serviceColumns)
	return r.list(ctx, query)
}

func (r *ServiceRepository) list(ctx context.Context, query string, args ...interface{}) ([]*catalog.Service, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	services := []*catalog.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, s)
	}

	return services, rows.Err()
}

// SetActive toggles availability, the only mutable service field
func (r *ServiceRepository) SetActive(ctx context.Context, id int64, active bool) (*catalog.Service, error) {
	query := fmt.Sprintf(`
		UPDATE services SET active = $1, updated_at = now()
		WHERE id = $2
		RETURNING %s
	`, serviceColumns)

	s, err := scanService(r.db.QueryRow(ctx, query, active, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update service status: %w", err)
	}

	return s, nil
}
