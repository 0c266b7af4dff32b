package app

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/upb/catalog-inventory/config"
	"github.com/upb/catalog-inventory/internal/auth"
	"github.com/upb/catalog-inventory/internal/observability"
	"github.com/upb/catalog-inventory/middleware"
	"github.com/upb/catalog-inventory/repositories"
	"github.com/upb/catalog-inventory/repositories/memory"
	"github.com/upb/catalog-inventory/repositories/postgres"
	"github.com/upb/catalog-inventory/services"
	"github.com/upb/catalog-inventory/services/audit"
	"github.com/upb/catalog-inventory/services/books"
	"github.com/upb/catalog-inventory/services/ratelimit"
	"github.com/upb/catalog-inventory/services/users"
	"go.uber.org/zap"
)

// throttleCleanupInterval is how often expired login failures are purged
const throttleCleanupInterval = 5 * time.Minute

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB // nil with the memory driver
	Logger  *zap.Logger
	Clock   clock.Clock
	Metrics *observability.Metrics

	// Repository Factory (postgres driver only)
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users         repositories.UserRepository
	Books         repositories.BookRepository
	AuditLogs     repositories.AuditRepository
	LoginAttempts repositories.LoginAttemptRepository
	TxManager     repositories.TransactionManager

	// Auth core
	Codec         *auth.TokenCodec
	Authority     *auth.TokenAuthority
	Validator     *auth.CredentialValidator
	Authenticator *auth.Authenticator

	// Services
	AuditService  *audit.AuditService
	LoginThrottle *ratelimit.LoginThrottle
	AuthService   *services.AuthService
	BookService   *books.Service
	UserService   *users.Service

	AuthMiddleware *middleware.AuthMiddleware

	stopWorkers context.CancelFunc
}

// Option customizes NewDependencies
type Option func(*Dependencies)

// WithClock replaces the wall clock used by the token and throttle components
func WithClock(clk clock.Clock) Option {
	return func(d *Dependencies) {
		d.Clock = clk
	}
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Clock:   clock.New(),
		Metrics: observability.NewMetrics(),
	}
	for _, opt := range opts {
		opt(deps)
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initAuth(cfg); err != nil {
		_ = deps.closeDatabase()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("db_driver", cfg.Database.Driver))
	return deps, nil
}

// initDatabase opens the configured store and initializes the repositories
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.IsMemory() {
		store := memory.NewStore()
		d.setRepositories(store.Repositories(), store.TransactionManager())
		d.Logger.Warn("using in-memory store, data is lost on shutdown")
		return nil
	}

	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if cfg.Database.AutoMigrate {
		if err := d.DB.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return err
		}
	}

	d.setRepositories(factory.NewRepositories(), factory.GetTransactionManager())
	return nil
}

func (d *Dependencies) setRepositories(repos *repositories.Repositories, txManager repositories.TransactionManager) {
	d.Users = repos.Users
	d.Books = repos.Books
	d.AuditLogs = repos.AuditLogs
	d.LoginAttempts = repos.LoginAttempts
	d.TxManager = txManager

	d.Logger.Info("repositories initialized")
}

// initAuth builds the token codec, authority and credential checks
func (d *Dependencies) initAuth(cfg *config.Config) error {
	codecCfg, err := cfg.Auth.CodecConfig()
	if err != nil {
		return err
	}

	d.Codec, err = auth.NewTokenCodec(codecCfg)
	if err != nil {
		return err
	}

	store := users.NewCredentialStore(d.Users)
	d.Validator, err = auth.NewCredentialValidator(store)
	if err != nil {
		return err
	}

	d.Authority = auth.NewTokenAuthority(d.Codec, d.Clock, cfg.Auth.RefreshMinRemaining)
	d.Authenticator = auth.NewAuthenticator(d.Codec, store, d.Clock)

	d.Logger.Info("auth initialized",
		zap.Duration("token_ttl", cfg.Auth.TokenTTL),
		zap.Duration("refresh_min_remaining", cfg.Auth.RefreshMinRemaining))
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) {
	d.AuditService = audit.NewAuditService(d.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})

	d.LoginThrottle = ratelimit.NewLoginThrottle(d.LoginAttempts, ratelimit.Config{
		MaxFailures: cfg.Auth.LoginMaxFailures,
		Window:      cfg.Auth.LoginFailureWindow,
	}, d.Clock, d.Logger)

	d.AuthService = services.NewAuthService(d.Validator, d.Authority, d.LoginThrottle, d.AuditService, d.Metrics, d.Logger)
	d.BookService = books.NewService(d.Books, d.TxManager, d.Logger)
	d.UserService = users.NewService(d.Users, d.TxManager, cfg.Auth.BcryptCost, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Authenticator, d.AuditService, d.Metrics, d.Logger)
}

// Start launches the background workers
func (d *Dependencies) Start(ctx context.Context) error {
	if err := d.AuditService.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	d.stopWorkers = cancel
	go d.LoginThrottle.StartCleanupWorker(workerCtx, throttleCleanupInterval)

	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.stopWorkers != nil {
		d.stopWorkers()
	}

	if d.AuditService != nil && d.AuditService.GetStats().Started {
		timeout := 5 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.AuditService.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if err := d.closeDatabase(); err != nil {
		errs = append(errs, err)
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}

func (d *Dependencies) closeDatabase() error {
	if d.RepoFactory == nil {
		return nil
	}
	if err := d.RepoFactory.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	d.Logger.Info("database connection closed")
	return nil
}
