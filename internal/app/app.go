package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sekkot/portal/internal/authctx"
	"github.com/sekkot/portal/internal/authz"
	"github.com/sekkot/portal/internal/config"
	"github.com/sekkot/portal/internal/db"
	"github.com/sekkot/portal/internal/realtime"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/session"
	"github.com/sekkot/portal/internal/storage"
)

const (
	sessionPurgeInterval = time.Hour
	sessionRetention     = 24 * time.Hour
)

type App struct {
	Cfg   *config.Config
	DB    *sqlx.DB
	Redis *redis.Client

	Broker   realtime.Broker
	Sessions *session.Store
	Auth     *authctx.Provider
	Admins   *authz.Resolver

	AuthService         *service.AuthService
	EmailService        *service.EmailService
	FileService         *service.FileService
	NotificationService *service.NotificationService
	RequirementService  *service.RequirementService
	ProductService      *service.ProductService
	CatalogService      *service.CatalogService
	PageService         *service.PageService
	SitemapService      *service.SitemapService

	cancel context.CancelFunc
	done   chan struct{}
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a := &App{Cfg: cfg, DB: database}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	sessionRepository := repository.NewSessionRepository(database)
	adminRepository := repository.NewAdminRepository(database)
	requirementRepository := repository.NewRequirementRepository(database)
	notificationRepository := repository.NewNotificationRepository(database)
	productRepository := repository.NewProductRepository(database)

	// Storage
	fileStorage, err := storage.New(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Realtime
	if cfg.RedisURL != "" {
		a.Redis, err = realtime.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.Broker = realtime.NewRedisBroker(a.Redis)
		slog.Info("realtime broker", "type", "redis")
	} else {
		a.Broker = realtime.NewMemoryBroker()
		slog.Info("realtime broker", "type", "memory")
	}

	// Services
	a.EmailService = service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	a.AuthService = service.NewAuthService(
		userRepository,
		tokenRepository,
		a.EmailService,
		cfg.TokenEmailVerifyExpiry,
		cfg.TokenPasswordResetExpiry,
	)
	a.FileService = service.NewFileService(fileStorage, cfg.S3PresignExpiryPrivate)
	a.NotificationService = service.NewNotificationService(notificationRepository, a.Broker)
	a.RequirementService = service.NewRequirementService(
		requirementRepository,
		userRepository,
		a.FileService,
		a.NotificationService,
		a.EmailService,
		cfg.AdminEmail,
	)
	a.ProductService = service.NewProductService(productRepository, a.FileService, a.EmailService, cfg.AdminEmail)
	a.CatalogService = service.NewCatalogService(productRepository, requirementRepository)

	a.PageService = service.NewPageService(cfg.ContentPath, cfg.IsDevelopment())
	err = a.PageService.Load()
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	a.SitemapService = service.NewSitemapService(a.PageService, productRepository, cfg.AppURL)

	// Sessions and auth state
	a.Sessions = session.NewStore(a.AuthService, sessionRepository, session.Options{
		JWTSecret:     cfg.JWTSecret,
		AccessExpiry:  cfg.JWTExpiry,
		SessionExpiry: cfg.SessionExpiry,
		AutoConfirm:   cfg.AuthAutoConfirm,
		Secure:        cfg.IsProduction(),
		RefreshGrace:  cfg.RefreshGrace,
	})
	a.Admins = authz.NewResolver(adminRepository)
	a.Auth = authctx.New(a.Sessions, a.Admins, authctx.WithAdminTTL(cfg.AdminFlagTTL))

	return a, nil
}

// Start begins the background work: the auth state subscription and the
// expired session purge. Close stops it.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})

	a.Auth.Start(ctx)
	go a.purgeSessions(ctx)
}

func (a *App) purgeSessions(ctx context.Context) {
	defer close(a.done)

	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Sessions.PurgeExpired(ctx, sessionRetention)
			if err != nil {
				slog.Error("failed to purge sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired sessions", "count", n)
			}
		}
	}
}

func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	if a.Auth != nil {
		a.Auth.Close()
	}

	var errs []error
	// The redis broker owns the client.
	if a.Broker != nil {
		errs = append(errs, a.Broker.Close())
	} else if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
