// internal/service/catalog/catalog.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vas-billing-service/internal/domain/catalog"
	xerrors "vas-billing-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type ServiceStore interface {
	Create(ctx context.Context, s *catalog.Service) error
	FindByID(ctx context.Context, id int64) (*catalog.Service, error)
	ListActive(ctx context.Context, filters *catalog.ListFilters) ([]*catalog.Service, error)
	ListAll(ctx context.Context) ([]*catalog.Service, error)
	SetActive(ctx context.Context, id int64, active bool) (*catalog.Service, error)
}

// StatsNotifier is told when the admin dashboard numbers may have moved.
type StatsNotifier interface {
	NotifyAdminStats()
}

type CatalogService struct {
	store    ServiceStore
	notifier StatsNotifier
	logger   *zap.Logger
}

func NewCatalogService(store ServiceStore, notifier StatsNotifier, logger *zap.Logger) *CatalogService {
	return &CatalogService{store: store, notifier: notifier, logger: logger}
}

// ParseCategories turns "gaming,music" into validated filters.
func ParseCategories(raw string) (*catalog.ListFilters, error) {
	filters := &catalog.ListFilters{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		c := catalog.Category(part)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", xerrors.ErrInvalidInput, part)
		}
		filters.Categories = append(filters.Categories, c)
	}
	return filters, nil
}

// ListActive returns the services subscribers can buy.
func (s *CatalogService) ListActive(ctx context.Context, filters *catalog.ListFilters) ([]*catalog.Service, error) {
	services, err := s.store.ListActive(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

// Get returns a service regardless of whether it is active.
func (s *CatalogService) Get(ctx context.Context, id int64) (*catalog.Service, error) {
	svc, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	return svc, nil
}

// Create adds an active service to the catalog.
func (s *CatalogService) Create(ctx context.Context, req *catalog.CreateServiceRequest) (*catalog.Service, error) {
	if req.Price == nil || *req.Price < 0 {
		return nil, fmt.Errorf("%w: price must be zero or more", xerrors.ErrInvalidInput)
	}
	if !req.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", xerrors.ErrInvalidInput, req.Category)
	}
	if !req.BillingCycle.Valid() {
		return nil, fmt.Errorf("%w: unknown billing cycle %q", xerrors.ErrInvalidInput, req.BillingCycle)
	}
	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	if name == "" || description == "" {
		return nil, fmt.Errorf("%w: name and description are required", xerrors.ErrInvalidInput)
	}

	svc := &catalog.Service{
		Name:         name,
		Description:  description,
		Price:        *req.Price,
		Category:     req.Category,
		BillingCycle: req.BillingCycle,
		Active:       true,
	}
	if err := s.store.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	s.logger.Info("service created",
		zap.Int64("service_id", svc.ID),
		zap.String("name", svc.Name),
		zap.Float64("price", svc.Price),
	)
	s.notifier.NotifyAdminStats()
	return svc, nil
}

// SetActive publishes or withdraws a service. Existing subscriptions are untouched.
func (s *CatalogService) SetActive(ctx context.Context, id int64, active bool) (*catalog.Service, error) {
	svc, err := s.store.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update service: %w", err)
	}

	s.logger.Info("service availability changed", zap.Int64("service_id", id), zap.Bool("active", active))
	s.notifier.NotifyAdminStats()
	return svc, nil
}
