package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/travel-control-plane/config"
	"github.com/upb/travel-control-plane/handlers"
	"github.com/upb/travel-control-plane/internal/auth"
	"github.com/upb/travel-control-plane/internal/observability"
	compliance "github.com/upb/travel-control-plane/internal/policy"
	"github.com/upb/travel-control-plane/internal/routing"
	"github.com/upb/travel-control-plane/middleware"
	"github.com/upb/travel-control-plane/repositories"
	"github.com/upb/travel-control-plane/repositories/postgres"
	"github.com/upb/travel-control-plane/services/approval"
	"github.com/upb/travel-control-plane/services/audit"
	"github.com/upb/travel-control-plane/services/booking"
	"github.com/upb/travel-control-plane/services/directory"
	"github.com/upb/travel-control-plane/services/expense"
	"github.com/upb/travel-control-plane/services/notification"
	"github.com/upb/travel-control-plane/services/policy"
	"github.com/upb/travel-control-plane/services/trip"
	"go.uber.org/zap"
)

// tokenLeeway absorbs clock skew between the token issuer and this service
const tokenLeeway = 30 * time.Second

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Health    *handlers.HealthHandler
	Policy    *handlers.PolicyHandler
	Booking   *handlers.BookingHandler
	Approval  *handlers.ApprovalHandler
	Trip      *handlers.TripHandler
	Expense   *handlers.ExpenseHandler
	Directory *handlers.DirectoryHandler
	Audit     *handlers.AuditHandler
	// Token is nil unless AUTH_DEV_TOKENS is enabled
	Token *handlers.TokenHandler
}

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	RepoFactory *postgres.RepositoryFactory
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager

	Metrics *observability.Counters

	// Services
	Policies  *policy.PolicyService
	Bookings  *booking.BookingService
	Approvals *approval.ApprovalService
	Trips     *trip.TripService
	Expenses  *expense.ExpenseService
	Directory *directory.DirectoryService
	Audit     *audit.AuditService

	// Auth
	TokenValidator *auth.Validator
	TokenIssuer    *auth.Issuer
	AuthMiddleware *middleware.AuthMiddleware

	Handlers Handlers

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// NewDependencies connects to PostgreSQL and wires every component on top of it
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository factory: %w", err)
	}

	if cfg.Database.InitSchema {
		if err := factory.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		logger.Info("database schema initialized")
	}

	deps := NewDependenciesFromFactory(cfg, factory, logger)
	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesFromFactory wires services and handlers around an open repository factory
func NewDependenciesFromFactory(cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) *Dependencies {
	d := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
		Repos:       factory.NewRepositories(),
		TxManager:   factory.GetTransactionManager(),
		Metrics:     observability.NewCounters(),
		stopCleanup: make(chan struct{}),
	}

	d.initServices()
	d.initAuth()
	d.initHandlers()
	return d
}

func (d *Dependencies) initServices() {
	cfg := d.Config

	d.Audit = audit.NewAuditService(d.Repos.AuditLogs, d.Logger, audit.Config{
		BufferSize:   cfg.Audit.BufferSize,
		WorkerCount:  cfg.Audit.Workers,
		WriteTimeout: cfg.Audit.WriteTimeout,
	})

	cache := policy.NewPolicyCache(cfg.PolicyCache.MaxSize, cfg.PolicyCache.TTL)
	d.Policies = policy.NewPolicyService(d.Repos.Policies, cache, d.Audit, d.Logger)

	notifier := notification.NewLogNotifier(d.Logger)

	d.Bookings = booking.NewBookingService(booking.Dependencies{
		Repos:    d.Repos,
		TxMgr:    d.TxManager,
		Policies: d.Policies,
		Engine:   compliance.NewEvaluator(nil),
		Router:   routing.NewRouter(routing.NewDirectory(d.Repos.Users), d.Logger),
		Notifier: notifier,
		Audit:    d.Audit,
		Metrics:  d.Metrics,
		Logger:   d.Logger,
	}, booking.Config{DefaultCurrency: cfg.Booking.DefaultCurrency})

	d.Approvals = approval.NewApprovalService(approval.Dependencies{
		Repos:    d.Repos,
		TxMgr:    d.TxManager,
		Notifier: notifier,
		Audit:    d.Audit,
		Metrics:  d.Metrics,
		Logger:   d.Logger,
	})

	d.Trips = trip.NewTripService(d.Repos.Trips, d.Audit, d.Logger)
	d.Expenses = expense.NewExpenseService(d.Repos.Expenses, d.Repos.Trips, d.Audit, d.Logger,
		expense.Config{DefaultCurrency: cfg.Booking.DefaultCurrency})
	d.Directory = directory.NewDirectoryService(d.Repos.Users, d.Repos.Companies, d.Audit, d.Logger)

	d.Logger.Info("services initialized")
}

func (d *Dependencies) initAuth() {
	authCfg := auth.Config{
		Secret:   []byte(d.Config.Auth.Secret),
		Issuer:   d.Config.Auth.Issuer,
		Audience: d.Config.Auth.Audience,
		TTL:      d.Config.Auth.TokenTTL,
		Leeway:   tokenLeeway,
	}
	d.TokenValidator = auth.NewValidator(authCfg)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.TokenValidator, d.Directory, d.Logger)

	if d.Config.Auth.DevTokens {
		d.TokenIssuer = auth.NewIssuer(authCfg)
		d.Logger.Warn("development token endpoint enabled")
	}
}

func (d *Dependencies) initHandlers() {
	d.Handlers = Handlers{
		Health:    handlers.NewHealthHandler(d.DB.DB, d.Config.Version, d.Config.Environment, d.Logger).WithStats(d.Metrics),
		Policy:    handlers.NewPolicyHandler(d.Policies, d.Logger),
		Booking:   handlers.NewBookingHandler(d.Bookings, d.Logger),
		Approval:  handlers.NewApprovalHandler(d.Approvals, d.Logger),
		Trip:      handlers.NewTripHandler(d.Trips, d.Logger),
		Expense:   handlers.NewExpenseHandler(d.Expenses, d.Logger),
		Directory: handlers.NewDirectoryHandler(d.Directory, d.Logger),
		Audit:     handlers.NewAuditHandler(d.Audit, d.Logger),
	}
	if d.TokenIssuer != nil {
		d.Handlers.Token = handlers.NewTokenHandler(d.TokenIssuer, d.Directory, d.Logger)
	}
}

// Start launches the background workers: the audit writer and the policy cache sweeper
func (d *Dependencies) Start() error {
	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}
	go d.Policies.StartCacheCleanup(d.Config.PolicyCache.CleanupInterval, d.stopCleanup)
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error

	d.closeOnce.Do(func() {
		d.Logger.Info("shutting down dependencies")
		close(d.stopCleanup)

		if d.Audit != nil {
			timeout := d.Config.Audit.WriteTimeout
			if deadline, ok := ctx.Deadline(); ok {
				timeout = time.Until(deadline)
			}
			if d.Audit.GetStats().Started {
				if err := d.Audit.Stop(timeout); err != nil {
					errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
				}
			}
		}

		if d.RepoFactory != nil {
			if err := d.RepoFactory.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close database: %w", err))
			} else {
				d.Logger.Info("database connection closed")
			}
		}

		if d.Logger != nil {
			_ = d.Logger.Sync()
		}
	})

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
