package auth

import (
	"context"
	"testing"
	"time"

	domain "vas-billing-service/internal/domain/auth"
	"vas-billing-service/internal/domain/user"
	xerrors "vas-billing-service/internal/pkg/errors"
	"vas-billing-service/internal/pkg/jwt"
	"vas-billing-service/internal/pkg/otp"
	"vas-billing-service/internal/pkg/session"
	"vas-billing-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type recordingNotifier struct {
	revoked []string
}

func (n *recordingNotifier) RevokeSession(_, jti string) {
	n.revoked = append(n.revoked, jti)
}

type fixture struct {
	svc      *AuthService
	store    *memory.Store
	notifier *recordingNotifier
	now      time.Time
}

func newFixture(t *testing.T, limit int64) *fixture {
	t.Helper()

	manager, err := jwt.NewManager(jwt.Config{Secret: "test-secret", Issuer: "test", TTL: 24 * time.Hour})
	require.NoError(t, err)

	f := &fixture{
		store:    memory.NewStore(),
		notifier: &recordingNotifier{},
		now:      time.Now(),
	}
	f.svc = NewAuthService(
		f.store.Users(),
		otp.NewMemoryStore(),
		manager,
		session.NewMemoryBlacklist(),
		session.NewMemoryRateLimiter(limit, time.Hour),
		f.notifier,
		Options{OTPExpiry: 5 * time.Minute, ExposeOTP: true, HashCost: bcrypt.MinCost},
		zap.NewNop(),
	)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestRegisterThenVerify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	resp, err := f.svc.Register(ctx, &domain.RegisterRequest{MSISDN: "0821234567", Name: "Thandi", Provider: "MTN"})
	require.NoError(t, err)
	require.Len(t, resp.OTP, 6)

	u, err := f.store.Users().FindByMSISDN(ctx, "0821234567")
	require.NoError(t, err)
	assert.Equal(t, user.ProviderMTN, u.Provider)
	assert.GreaterOrEqual(t, u.Airtime, 20.0)
	assert.LessOrEqual(t, u.Airtime, 80.0)

	sess, err := f.svc.VerifyOTP(ctx, &domain.VerifyOTPRequest{MSISDN: "0821234567", OTP: resp.OTP})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.False(t, sess.User.IsAdmin)

	claims, err := f.svc.ValidateToken(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "0821234567", claims.MSISDN)

	_, err = f.svc.VerifyOTP(ctx, &domain.VerifyOTPRequest{MSISDN: "0821234567", OTP: resp.OTP})
	assert.ErrorIs(t, err, xerrors.ErrOTPNotFound, "a code is single use")
}

func TestRegisterRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	_, err := f.svc.Register(ctx, &domain.RegisterRequest{MSISDN: "12345"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = f.svc.Register(ctx, &domain.RegisterRequest{MSISDN: "0821234567", Provider: "rain"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	_, err = f.svc.Register(ctx, &domain.RegisterRequest{MSISDN: "0821234567"})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, &domain.RegisterRequest{MSISDN: "0821234567"})
	assert.ErrorIs(t, err, xerrors.ErrAlreadyRegistered)
}

func TestSendOTPRequiresRegistration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	_, err := f.svc.SendOTP(ctx, &domain.SendOTPRequest{MSISDN: "0821234567"})
	assert.ErrorIs(t, err, xerrors.ErrNotRegistered)

	_, err = f.svc.SendOTP(ctx, &domain.SendOTPRequest{MSISDN: "08212"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestSendOTPIsThrottled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	_, err := f.svc.Register(ctx, &domain.RegisterRequest{MSISDN: "0821234567"})
	require.NoError(t, err)

	_, err = f.svc.SendOTP(ctx, &domain.SendOTPRequest{MSISDN: "0821234567"})
	require.NoError(t, err)

	_, err = f.svc.SendOTP(ctx, &domain.SendOTPRequest{MSISDN: "0821234567"})
	assert.ErrorIs(t, err, xerrors.ErrRateLimited)
}

func TestVerifyOTPExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	resp, err := f.svc.Register(ctx, &domain.RegisterRequest{MSISDN: "0821234567"})
	require.NoError(t, err)

	f.now = f.now.Add(5*time.Minute + time.Second)

	_, err = f.svc.VerifyOTP(ctx, &domain.VerifyOTPRequest{MSISDN: "0821234567", OTP: resp.OTP})
	assert.ErrorIs(t, err, xerrors.ErrOTPExpired)

	_, err = f.svc.VerifyOTP(ctx, &domain.VerifyOTPRequest{MSISDN: "0821234567", OTP: resp.OTP})
	assert.ErrorIs(t, err, xerrors.ErrOTPNotFound, "expired entries are removed")
}

func TestVerifyOTPMismatchKeepsEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	resp, err := f.svc.Register(ctx, &domain.RegisterRequest{MSISDN: "0821234567"})
	require.NoError(t, err)

	wrong := "000000"
	if resp.OTP == wrong {
		wrong = "111111"
	}
	_, err = f.svc.VerifyOTP(ctx, &domain.VerifyOTPRequest{MSISDN: "0821234567", OTP: wrong})
	assert.ErrorIs(t, err, xerrors.ErrOTPInvalid)

	_, err = f.svc.VerifyOTP(ctx, &domain.VerifyOTPRequest{MSISDN: "0821234567", OTP: resp.OTP})
	assert.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, &domain.VerifyOTPRequest{MSISDN: "0821234567"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestOTPHiddenOutsideDevelopment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	f.svc.opts.ExposeOTP = false

	resp, err := f.svc.Register(ctx, &domain.RegisterRequest{MSISDN: "0821234567"})
	require.NoError(t, err)
	assert.Empty(t, resp.OTP)
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	resp, err := f.svc.Register(ctx, &domain.RegisterRequest{MSISDN: "0821234567"})
	require.NoError(t, err)
	sess, err := f.svc.VerifyOTP(ctx, &domain.VerifyOTPRequest{MSISDN: "0821234567", OTP: resp.OTP})
	require.NoError(t, err)

	claims, err := f.svc.ValidateToken(ctx, sess.Token)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, claims))

	_, err = f.svc.ValidateToken(ctx, sess.Token)
	assert.ErrorIs(t, err, xerrors.ErrSessionExpired)
	assert.Equal(t, []string{sess.JTI}, f.notifier.revoked)

	_, err = f.svc.ValidateToken(ctx, "garbage")
	assert.ErrorIs(t, err, xerrors.ErrUnauthorized)
}

func TestEnsureAdminExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	require.NoError(t, f.svc.EnsureAdminExists(ctx, "0000000001"))

	admin, err := f.store.Users().FindByMSISDN(ctx, "0000000001")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, "System Administrator", admin.Name)
	assert.Equal(t, 9999.0, admin.Airtime)

	_, err = f.svc.Register(ctx, &domain.RegisterRequest{MSISDN: "0821234567"})
	require.NoError(t, err)
	require.NoError(t, f.svc.EnsureAdminExists(ctx, "0821234567"))

	promoted, err := f.store.Users().FindByMSISDN(ctx, "0821234567")
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)
	assert.Less(t, promoted.Airtime, 9999.0)

	assert.Error(t, f.svc.EnsureAdminExists(ctx, "admin"))
}
