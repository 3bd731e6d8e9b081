// Package memory keeps every table in process behind one mutex. It backs
// the demo storage driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"vas-billing-service/internal/domain/admin"
	"vas-billing-service/internal/domain/catalog"
	"vas-billing-service/internal/domain/subscription"
	"vas-billing-service/internal/domain/transaction"
	"vas-billing-service/internal/domain/user"
	xerrors "vas-billing-service/internal/pkg/errors"
)

type Store struct {
	mu sync.RWMutex

	users         map[string]*user.User
	services      map[int64]*catalog.Service
	subscriptions map[int64]*subscription.Subscription
	transactions  []*transaction.Transaction

	nextServiceID      int64
	nextSubscriptionID int64
	nextTransactionID  int64

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:         make(map[string]*user.User),
		services:      make(map[int64]*catalog.Service),
		subscriptions: make(map[int64]*subscription.Subscription),
		now:           time.Now,
	}
}

// Users returns the store as a user repository.
func (s *Store) Users() *UserRepository { return &UserRepository{s} }

// Services returns the store as a catalog repository.
func (s *Store) Services() *ServiceRepository { return &ServiceRepository{s} }

// Subscriptions returns the store as a subscription repository.
func (s *Store) Subscriptions() *SubscriptionRepository { return &SubscriptionRepository{s} }

// Transactions returns the store as a transaction repository.
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{s} }

// Ledger returns the store as the multi-table settlement repository.
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{s} }

func copyUser(u *user.User) *user.User {
	c := *u
	return &c
}

func copyService(svc *catalog.Service) *catalog.Service {
	c := *svc
	return &c
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	c := *sub
	if sub.EndDate != nil {
		end := *sub.EndDate
		c.EndDate = &end
	}
	c.Service = nil
	return &c
}

func copyTransaction(t *transaction.Transaction) *transaction.Transaction {
	c := *t
	if t.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	c.Service = nil
	return &c
}

// ==================== Users ====================

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[u.MSISDN]; exists {
		return xerrors.ErrAlreadyRegistered
	}
	u.CreatedAt = r.s.now()
	r.s.users[u.MSISDN] = copyUser(u)
	return nil
}

func (r *UserRepository) FindByMSISDN(_ context.Context, msisdn string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[msisdn]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) EnsureAdmin(_ context.Context, u *user.User) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.users[u.MSISDN]; ok {
		existing.IsAdmin = true
		if existing.Name == "" {
			existing.Name = u.Name
		}
		*u = *copyUser(existing)
		return false, nil
	}

	u.IsAdmin = true
	u.CreatedAt = r.s.now()
	r.s.users[u.MSISDN] = copyUser(u)
	return true, nil
}

// ==================== Services ====================

type ServiceRepository struct{ s *Store }

func (r *ServiceRepository) Create(_ context.Context, svc *catalog.Service) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextServiceID++
	now := r.s.now()
	svc.ID = r.s.nextServiceID
	svc.CreatedAt = now
	svc.UpdatedAt = now
	r.s.services[svc.ID] = copyService(svc)
	return nil
}

func (r *ServiceRepository) FindByID(_ context.Context, id int64) (*catalog.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	svc, ok := r.s.services[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return copyService(svc), nil
}

func (r *ServiceRepository) ListActive(_ context.Context, filters *catalog.ListFilters) ([]*catalog.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var wanted map[catalog.Category]bool
	if filters != nil && len(filters.Categories) > 0 {
		wanted = make(map[catalog.Category]bool, len(filters.Categories))
		for _, c := range filters.Categories {
			wanted[c] = true
		}
	}

	out := []*catalog.Service{}
	for _, svc := range r.s.services {
		if !svc.Active || (wanted != nil && !wanted[svc.Category]) {
			continue
		}
		out = append(out, copyService(svc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *ServiceRepository) ListAll(_ context.Context) ([]*catalog.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.sortedServices(), nil
}

func (r *ServiceRepository) SetActive(_ context.Context, id int64, active bool) (*catalog.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	svc, ok := r.s.services[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	svc.Active = active
	svc.UpdatedAt = r.s.now()
	return copyService(svc), nil
}

// sortedServices must be called with mu held.
func (s *Store) sortedServices() []*catalog.Service {
	out := make([]*catalog.Service, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, copyService(svc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ==================== Subscriptions ====================

type SubscriptionRepository struct{ s *Store }

func (r *SubscriptionRepository) FindByID(_ context.Context, id int64) (*subscription.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sub, ok := r.s.subscriptions[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return copySubscription(sub), nil
}

func (r *SubscriptionRepository) HasActive(_ context.Context, msisdn string, serviceID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.hasActive(msisdn, serviceID), nil
}

// hasActive must be called with mu held.
func (s *Store) hasActive(msisdn string, serviceID int64) bool {
	for _, sub := range s.subscriptions {
		if sub.MSISDN == msisdn && sub.ServiceID == serviceID && sub.IsActive() {
			return true
		}
	}
	return false
}

func (r *SubscriptionRepository) ListByMSISDN(_ context.Context, msisdn string, status *subscription.Status) ([]*subscription.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*subscription.Subscription{}
	for _, sub := range r.s.subscriptions {
		if sub.MSISDN != msisdn || (status != nil && sub.Status != *status) {
			continue
		}
		svc, ok := r.s.services[sub.ServiceID]
		if !ok {
			continue
		}
		c := copySubscription(sub)
		c.Service = copyService(svc)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *SubscriptionRepository) ActiveUsersPerService(_ context.Context) ([]*admin.ActiveUsersPerService, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	subs := make([]*subscription.Subscription, 0, len(r.s.subscriptions))
	for _, sub := range r.s.subscriptions {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })

	return admin.CountActiveUsers(r.s.sortedServices(), subs), nil
}

// ==================== Transactions ====================

type TransactionRepository struct{ s *Store }

func (r *TransactionRepository) ListByMSISDN(_ context.Context, msisdn string, filters *transaction.ListFilters) ([]*transaction.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*transaction.Transaction{}
	for i := len(r.s.transactions) - 1; i >= 0; i-- {
		t := r.s.transactions[i]
		if t.MSISDN != msisdn || !filters.Matches(t) {
			continue
		}
		c := copyTransaction(t)
		if svc, ok := r.s.services[t.ServiceID]; ok {
			c.Service = &transaction.ServiceSummary{
				ID:          svc.ID,
				Name:        svc.Name,
				Description: svc.Description,
				Price:       svc.Price,
			}
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (r *TransactionRepository) StatsByMSISDN(_ context.Context, msisdn string) ([]*transaction.TypeStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var mine []*transaction.Transaction
	for _, t := range r.s.transactions {
		if t.MSISDN == msisdn {
			mine = append(mine, t)
		}
	}
	stats := transaction.Aggregate(mine)
	sort.Slice(stats, func(i, j int) bool { return stats[i].Type < stats[j].Type })
	if stats == nil {
		stats = []*transaction.TypeStats{}
	}
	return stats, nil
}

// appendTransaction must be called with mu held.
func (s *Store) appendTransaction(t *transaction.Transaction) {
	s.nextTransactionID++
	t.ID = s.nextTransactionID
	s.transactions = append(s.transactions, copyTransaction(t))
}

// ==================== Ledger ====================

type LedgerRepository struct{ s *Store }

// SettleCharge applies the debit, the subscription and the charge record
// under one lock, checking every precondition before writing anything.
func (r *LedgerRepository) SettleCharge(_ context.Context, c *subscription.ChargeSettlement) (*subscription.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[c.MSISDN]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	if u.Airtime < c.Amount {
		return nil, xerrors.ErrInsufficientAirtime
	}
	if r.s.hasActive(c.MSISDN, c.Service.ID) {
		return nil, xerrors.ErrAlreadySubscribed
	}

	u.Airtime -= c.Amount

	sub := c.NewSubscription()
	r.s.nextSubscriptionID++
	now := r.s.now()
	sub.ID = r.s.nextSubscriptionID
	sub.CreatedAt = now
	sub.UpdatedAt = now
	r.s.subscriptions[sub.ID] = copySubscription(sub)

	r.s.appendTransaction(c.Transaction)

	return sub, nil
}

func (r *LedgerRepository) SettleCancel(_ context.Context, c *subscription.CancelSettlement) (*subscription.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sub, ok := r.s.subscriptions[c.SubscriptionID]
	if !ok || sub.MSISDN != c.MSISDN {
		return nil, xerrors.ErrNotFound
	}
	if !sub.IsActive() {
		return nil, xerrors.ErrAlreadyCancelled
	}

	endedAt := c.EndedAt
	sub.Status = subscription.StatusCancelled
	sub.EndDate = &endedAt
	sub.UpdatedAt = endedAt

	if c.Refund != nil {
		r.s.appendTransaction(c.Refund)
		if c.Refund.Status == transaction.StatusSuccess {
			if u, ok := r.s.users[c.MSISDN]; ok {
				u.Airtime += c.Refund.Amount
			}
		}
	}

	return copySubscription(sub), nil
}
