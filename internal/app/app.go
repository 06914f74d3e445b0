package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/substitute-finder/internal/repository"
	"github.com/noah-isme/substitute-finder/internal/service"
	"github.com/noah-isme/substitute-finder/pkg/config"
	"github.com/noah-isme/substitute-finder/pkg/database"
	"github.com/noah-isme/substitute-finder/pkg/notify"
)

// App holds the store and every service built on it. Both binaries share it.
type App struct {
	Config  *config.Config
	DB      *sqlx.DB
	Store   *repository.Store
	Metrics *service.MetricsService

	Organizations *service.OrganizationService
	Classes       *service.ClassService
	Users         *service.UserService
	Auth          *service.AuthService
	Requests      *service.SubstituteRequestService
	Notifications *service.NotificationService
	Settings      *service.SettingService
	Export        *service.ExportService
	Seed          *service.SeedService

	closers []func() error
}

// New migrates the schema, opens the store and wires the services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	version, err := database.Migrate(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("schema ready", zap.String("driver", cfg.Database.Driver), zap.Uint("version", version))

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{Config: cfg, DB: db, Metrics: service.NewMetricsService()}
	a.closers = append(a.closers, db.Close)

	sink, closeSink, err := notify.New(ctx, cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("notification sink: %w", err)
	}
	a.closers = append(a.closers, closeSink)

	a.Store = repository.NewStore(db, cfg.Database.LockTimeout)
	a.Store.ObserveWait(a.Metrics.ObserveStoreWait)

	orgRepo := repository.NewOrganizationRepository(a.Store)
	classRepo := repository.NewClassRepository(a.Store)
	userRepo := repository.NewUserRepository(a.Store)
	requestRepo := repository.NewSubstituteRequestRepository(a.Store)
	logRepo := repository.NewNotificationLogRepository(a.Store)
	settingRepo := repository.NewSettingRepository(a.Store)

	validate := validator.New()
	a.Organizations = service.NewOrganizationService(orgRepo, validate, logger)
	a.Classes = service.NewClassService(classRepo, orgRepo, validate, logger)
	a.Users = service.NewUserService(userRepo, orgRepo, validate, logger, cfg.Auth.BcryptCost)
	a.Auth = service.NewAuthService(userRepo, validate, logger)
	a.Requests = service.NewSubstituteRequestService(requestRepo, classRepo, userRepo, a.Metrics, validate, logger)
	a.Notifications = service.NewNotificationService(sink, logRepo, requestRepo, classRepo, userRepo, a.Metrics, validate, logger,
		service.NotificationServiceConfig{Concurrency: cfg.Notify.Concurrency})
	a.Settings = service.NewSettingService(settingRepo, validate, logger)
	a.Export = service.NewExportService(requestRepo, logger)
	a.Seed = service.NewSeedService(a.Organizations, a.Classes, a.Users, a.Requests, logger)

	logger.Info("services ready", zap.String("notify_sink", sink.Kind()))
	return a, nil
}

// Close releases the sink and the database, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
