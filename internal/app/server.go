// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vas-billing-service/internal/config"
	adminHandler "vas-billing-service/internal/handlers/admin"
	authHandler "vas-billing-service/internal/handlers/auth"
	catalogHandler "vas-billing-service/internal/handlers/catalog"
	subscriptionHandler "vas-billing-service/internal/handlers/subscription"
	transactionHandler "vas-billing-service/internal/handlers/transaction"
	userHandler "vas-billing-service/internal/handlers/user"
	wsHandler "vas-billing-service/internal/handlers/websocket"
	"vas-billing-service/internal/middleware"
	"vas-billing-service/internal/pkg/jwt"
	adminUsecase "vas-billing-service/internal/service/admin"
	authUsecase "vas-billing-service/internal/service/auth"
	"vas-billing-service/internal/service/billing"
	catalogUsecase "vas-billing-service/internal/service/catalog"
	subscriptionUsecase "vas-billing-service/internal/service/subscription"
	transactionUsecase "vas-billing-service/internal/service/transaction"
	userUsecase "vas-billing-service/internal/service/user"
	"vas-billing-service/internal/websocket"
	wsHandlers "vas-billing-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	store       *storage
	hub         *websocket.Hub
	authService *authUsecase.AuthService

	// Test hooks
	billingOpts []billing.Option
	openStore   func(context.Context, config.AppConfig, *zap.Logger) (*storage, error)
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New(), logger: logger, openStore: openStorage}
}

// Build opens storage, wires every service and registers the routes.
// Storage is released again when wiring fails.
func (s *Server) Build(ctx context.Context) (err error) {
	store, err := s.openStore(ctx, s.cfg, s.logger)
	if err != nil {
		return err
	}
	s.store = store
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	// ----- JWT -----
	jwtManager, err := jwt.NewManager(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to build JWT manager: %w", err)
	}

	// ----- WebSocket Hub -----
	s.hub = websocket.NewHub(jwtManager.Verifier, store.blacklist, s.logger)

	// ----- Billing -----
	profiles, err := billing.LoadProfiles(s.cfg.BillingProfilesPath)
	if err != nil {
		return err
	}
	simulator := billing.NewSimulator(profiles, s.logger, s.billingOpts...)

	// ----- Services -----
	s.authService = authUsecase.NewAuthService(
		store.users,
		store.otps,
		jwtManager,
		store.blacklist,
		store.limiter,
		s.hub,
		authUsecase.Options{
			OTPExpiry: s.cfg.OTPExpiry,
			SendDelay: s.cfg.OTPSendDelay,
			ExposeOTP: s.cfg.IsDevelopment(),
			HashCost:  bcrypt.DefaultCost,
		},
		s.logger,
	)
	catalogService := catalogUsecase.NewCatalogService(store.services, s.hub, s.logger)
	subscriptionService := subscriptionUsecase.NewSubscriptionService(
		store.users,
		store.services,
		store.subscriptions,
		store.ledger,
		simulator,
		s.hub,
		s.logger,
	)
	transactionService := transactionUsecase.NewTransactionService(store.transactions, s.logger)
	userService := userUsecase.NewUserService(store.users, s.logger)
	adminService := adminUsecase.NewAdminService(store.users, store.subscriptions, s.hub, s.logger)

	s.hub.RegisterHandler(wsHandlers.NewSubscriptionHandler(subscriptionService, adminService))

	// ----- Initialize Admin -----
	if err := s.authService.EnsureAdminExists(ctx, s.cfg.AdminMSISDN); err != nil {
		s.logger.Error("failed to initialize admin", zap.Error(err))
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger),
		middleware.CORSMiddleware(s.cfg.FrontendURL),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		AuthHandler:         authHandler.NewAuthHandler(s.authService, s.logger),
		CatalogHandler:      catalogHandler.NewCatalogHandler(catalogService),
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(subscriptionService, s.logger),
		TransactionHandler:  transactionHandler.NewTransactionHandler(transactionService),
		UserHandler:         userHandler.NewUserHandler(userService),
		AdminHandler:        adminHandler.NewAdminHandler(adminService),
		WSHandler:           wsHandler.NewWebSocketHandler(s.hub, s.cfg.FrontendURL, s.logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(s.authService),
	})

	return nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run builds the server and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Build(ctx); err != nil {
		return err
	}
	defer s.Close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	httpServer := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening",
			zap.String("addr", s.cfg.HTTPAddr),
			zap.String("env", s.cfg.Env),
			zap.String("storage", s.cfg.StorageDriver),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopHub()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

func (s *Server) Close() {
	if s.store != nil {
		s.store.Close()
		s.store = nil
	}
}

// SeedAdmin creates or promotes the configured admin and returns.
func SeedAdmin(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) error {
	s := NewServer(cfg, logger)
	defer s.Close()

	if err := s.Build(ctx); err != nil {
		return err
	}
	return s.authService.EnsureAdminExists(ctx, cfg.AdminMSISDN)
}
