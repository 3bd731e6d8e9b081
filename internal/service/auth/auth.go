// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"vas-billing-service/internal/domain/auth"
	"vas-billing-service/internal/domain/user"
	xerrors "vas-billing-service/internal/pkg/errors"
	"vas-billing-service/internal/pkg/jwt"
	"vas-billing-service/internal/pkg/otp"
	"vas-billing-service/internal/pkg/session"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// otpGrace keeps an expired entry around long enough to report it as expired.
const otpGrace = time.Minute

var errInvalidMSISDN = fmt.Errorf("%w: invalid mobile number", xerrors.ErrInvalidInput)

type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	FindByMSISDN(ctx context.Context, msisdn string) (*user.User, error)
	EnsureAdmin(ctx context.Context, u *user.User) (bool, error)
}

// SessionNotifier is told when a session ends so live connections can be closed.
type SessionNotifier interface {
	RevokeSession(msisdn, jti string)
}

type Options struct {
	OTPExpiry time.Duration
	SendDelay time.Duration
	ExposeOTP bool
	HashCost  int
}

type AuthService struct {
	users      UserStore
	otps       otp.Store
	jwtManager *jwt.Manager
	blacklist  session.Blacklist
	limiter    session.Limiter
	notifier   SessionNotifier
	opts       Options
	logger     *zap.Logger

	now   func() time.Time
	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewAuthService(
	users UserStore,
	otps otp.Store,
	jwtManager *jwt.Manager,
	blacklist session.Blacklist,
	limiter session.Limiter,
	notifier SessionNotifier,
	opts Options,
	logger *zap.Logger,
) *AuthService {
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		otps:       otps,
		jwtManager: jwtManager,
		blacklist:  blacklist,
		limiter:    limiter,
		notifier:   notifier,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ========== OTP ==========

// SendOTP issues a fresh code to a registered number.
func (s *AuthService) SendOTP(ctx context.Context, req *auth.SendOTPRequest) (*auth.OTPResponse, error) {
	msisdn := strings.TrimSpace(req.MSISDN)
	if !user.ValidMSISDN(msisdn) {
		return nil, errInvalidMSISDN
	}

	if _, err := s.users.FindByMSISDN(ctx, msisdn); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return s.issueOTP(ctx, msisdn)
}

// Register creates a subscriber with a starting balance and sends an OTP.
func (s *AuthService) Register(ctx context.Context, req *auth.RegisterRequest) (*auth.OTPResponse, error) {
	msisdn := strings.TrimSpace(req.MSISDN)
	if !user.ValidMSISDN(msisdn) {
		return nil, errInvalidMSISDN
	}

	provider := user.DefaultProvider
	if req.Provider != "" {
		provider = user.Provider(strings.ToLower(req.Provider))
		if !provider.Valid() {
			return nil, fmt.Errorf("%w: unknown provider %q", xerrors.ErrInvalidInput, req.Provider)
		}
	}

	u := &user.User{
		MSISDN:   msisdn,
		Name:     strings.TrimSpace(req.Name),
		Provider: provider,
		Airtime:  float64(20 + s.intn(61)),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, xerrors.ErrAlreadyRegistered) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("msisdn", msisdn),
		zap.String("provider", string(provider)),
		zap.Float64("airtime", u.Airtime),
	)

	return s.issueOTP(ctx, msisdn)
}

func (s *AuthService) issueOTP(ctx context.Context, msisdn string) (*auth.OTPResponse, error) {
	allowed, err := s.limiter.AllowOTPSend(ctx, msisdn)
	if err != nil {
		return nil, fmt.Errorf("failed to check otp rate limit: %w", err)
	}
	if !allowed {
		return nil, xerrors.ErrRateLimited
	}

	s.rngMu.Lock()
	code := otp.Generate(s.rng)
	s.rngMu.Unlock()

	expiresAt := s.now().Add(s.opts.OTPExpiry)
	entry, err := otp.NewEntry(code, expiresAt, s.opts.HashCost)
	if err != nil {
		return nil, err
	}
	if err := s.otps.Put(ctx, msisdn, entry, s.opts.OTPExpiry+otpGrace); err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}

	// Simulated SMS gateway latency
	if err := sleep(ctx, s.opts.SendDelay); err != nil {
		return nil, err
	}

	s.logger.Info("otp sent", zap.String("msisdn", msisdn), zap.String("otp", code))

	resp := &auth.OTPResponse{MSISDN: msisdn, ExpiresAt: expiresAt}
	if s.opts.ExposeOTP {
		resp.OTP = code
	}
	return resp, nil
}

// VerifyOTP checks the pending code and mints a session token.
func (s *AuthService) VerifyOTP(ctx context.Context, req *auth.VerifyOTPRequest) (*auth.Session, error) {
	msisdn := strings.TrimSpace(req.MSISDN)
	code := strings.TrimSpace(req.OTP)
	if msisdn == "" || code == "" {
		return nil, fmt.Errorf("%w: msisdn and otp are required", xerrors.ErrInvalidInput)
	}

	entry, err := s.otps.Get(ctx, msisdn)
	if errors.Is(err, otp.ErrNoEntry) {
		return nil, xerrors.ErrOTPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load otp: %w", err)
	}

	if entry.Expired(s.now()) {
		if err := s.otps.Delete(ctx, msisdn); err != nil {
			s.logger.Warn("failed to delete expired otp", zap.String("msisdn", msisdn), zap.Error(err))
		}
		return nil, xerrors.ErrOTPExpired
	}

	if !entry.Matches(code) {
		return nil, xerrors.ErrOTPInvalid
	}

	if err := s.otps.Delete(ctx, msisdn); err != nil {
		return nil, fmt.Errorf("failed to consume otp: %w", err)
	}

	u, err := s.users.FindByMSISDN(ctx, msisdn)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	token, jti, expiresAt, err := s.jwtManager.Generator.Generate(u.MSISDN, u.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user authenticated", zap.String("msisdn", msisdn), zap.Bool("is_admin", u.IsAdmin))

	return &auth.Session{
		Token:     token,
		JTI:       jti,
		ExpiresAt: expiresAt,
		User: &auth.UserInfo{
			MSISDN:   u.MSISDN,
			Name:     u.Name,
			Provider: string(u.Provider),
			Airtime:  u.Airtime,
			IsAdmin:  u.IsAdmin,
		},
	}, nil
}

// ========== Sessions ==========

// ValidateToken verifies the signature and rejects logged out tokens.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnauthorized, err)
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token status: %w", err)
	}
	if revoked {
		return nil, xerrors.ErrSessionExpired
	}

	return claims, nil
}

// Logout revokes the token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.Remaining(s.now())); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.RevokeSession(claims.MSISDN, claims.ID)
	}

	s.logger.Info("user logged out", zap.String("msisdn", claims.MSISDN), zap.String("jti", claims.ID))
	return nil
}

func (s *AuthService) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
