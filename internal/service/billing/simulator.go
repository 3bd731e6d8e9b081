// internal/service/billing/simulator.go
package billing

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"sync"
	"time"

	"vas-billing-service/internal/metrics"
	xerrors "vas-billing-service/internal/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrChargeFailed = fmt.Errorf("%w: insufficient funds", xerrors.ErrBillingFailed)
	ErrRefundFailed = fmt.Errorf("%w: refund rejected by provider", xerrors.ErrBillingFailed)
)

const (
	operationCharge = "charge"
	operationRefund = "refund"
)

// Result is the provider's answer to a successful operation.
type Result struct {
	Success   bool      `json:"success"`
	Reference string    `json:"reference"`
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
}

type Option func(*Simulator)

// WithRand fixes the random source, for deterministic runs.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// WithoutDelay skips the simulated network latency.
func WithoutDelay() Option {
	return func(s *Simulator) { s.noDelay = true }
}

// Simulator stands in for a telco billing gateway: every call waits for the
// provider's delay and then succeeds with the provider's success rate.
// Failures are final; nothing is retried.
type Simulator struct {
	profiles map[string]Profile
	logger   *zap.Logger
	noDelay  bool

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(profiles map[string]Profile, logger *zap.Logger, opts ...Option) *Simulator {
	table := DefaultProfiles()
	if len(profiles) > 0 {
		fallback := table[DefaultProfileName]
		table = make(map[string]Profile, len(profiles)+1)
		for name, p := range profiles {
			table[name] = p
		}
		if _, ok := table[DefaultProfileName]; !ok {
			logger.Warn("billing profiles have no default, using built-in default profile")
			table[DefaultProfileName] = fallback
		}
	}
	s := &Simulator{
		profiles: table,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Charge debits amount from msisdn's airtime at provider.
func (s *Simulator) Charge(ctx context.Context, provider, msisdn string, amount float64) (*Result, error) {
	p := s.profile(provider)
	return s.run(ctx, p, provider, operationCharge, msisdn, amount, p.ChargeSuccessRate, ErrChargeFailed)
}

// Refund returns amount to msisdn's airtime at provider.
func (s *Simulator) Refund(ctx context.Context, provider, msisdn string, amount float64) (*Result, error) {
	p := s.profile(provider)
	return s.run(ctx, p, provider, operationRefund, msisdn, amount, p.RefundSuccessRate, ErrRefundFailed)
}

func (s *Simulator) run(ctx context.Context, p Profile, provider, op, msisdn string, amount, rate float64, failure error) (*Result, error) {
	start := time.Now()

	if err := s.wait(ctx, p.Delay()); err != nil {
		return nil, err
	}

	success := s.draw() < rate
	metrics.RecordBilling(p.Name, op, success, time.Since(start))

	if !success {
		s.logger.Warn("simulated billing rejected",
			zap.String("provider", provider),
			zap.String("operation", op),
			zap.String("msisdn", msisdn),
			zap.Float64("amount", amount),
		)
		return nil, failure
	}

	result := &Result{
		Success:   true,
		Reference: uuid.New().String(),
		Timestamp: time.Now(),
		Provider:  provider,
	}

	s.logger.Info("simulated billing accepted",
		zap.String("provider", provider),
		zap.String("operation", op),
		zap.String("msisdn", msisdn),
		zap.Float64("amount", amount),
		zap.String("reference", result.Reference),
	)
	return result, nil
}

func (s *Simulator) profile(provider string) Profile {
	if p, ok := s.profiles[provider]; ok {
		return p
	}
	return s.profiles[DefaultProfileName]
}

func (s *Simulator) draw() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Simulator) wait(ctx context.Context, d time.Duration) error {
	if s.noDelay || d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var telcoMSISDN = regexp.MustCompile(`^0[0-9]{9}$`)

// ValidateMSISDN reports whether msisdn is a local number the telcos accept.
func ValidateMSISDN(msisdn string) bool {
	return telcoMSISDN.MatchString(msisdn)
}
