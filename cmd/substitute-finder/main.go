package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/substitute-finder/api/swagger"
	"github.com/noah-isme/substitute-finder/internal/app"
	"github.com/noah-isme/substitute-finder/internal/handler"
	"github.com/noah-isme/substitute-finder/internal/middleware"
	"github.com/noah-isme/substitute-finder/pkg/config"
	"github.com/noah-isme/substitute-finder/pkg/logger"
	corsmiddleware "github.com/noah-isme/substitute-finder/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/substitute-finder/pkg/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

// @title Substitute Finder API
// @version 1.0.0
// @description Tracks substitute teacher requests from open to filled or cancelled and notifies candidate substitutes.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close() //nolint:errcheck

	if cfg.Seed.OnStart {
		res, err := a.Seed.Seed(ctx, cfg.Seed.AdminPassword)
		if err != nil {
			logr.Fatal("seed failed", zap.Error(err))
		}
		if res.Password != "" {
			logr.Warn("demo accounts created with a generated password; set SEED_ADMIN_PASSWORD to choose one",
				zap.Strings("usernames", res.Usernames), zap.String("password", res.Password))
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.Metrics))

	metricsHandler := handler.NewMetricsHandler(a.Metrics, a.Store)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requests := handler.NewSubstituteRequestHandler(a.Requests, a.Export, nil, logr)
	if cfg.Notify.OnCreate {
		requests = handler.NewSubstituteRequestHandler(a.Requests, a.Export, a.Notifications, logr)
	}
	handler.Register(r.Group(cfg.APIPrefix), handler.Handlers{
		Organizations: handler.NewOrganizationHandler(a.Organizations),
		Classes:       handler.NewClassHandler(a.Classes),
		Users:         handler.NewUserHandler(a.Users),
		Auth:          handler.NewAuthHandler(a.Auth),
		Requests:      requests,
		Notifications: handler.NewNotificationHandler(a.Notifications),
		Settings:      handler.NewSettingHandler(a.Settings),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "api_prefix", cfg.APIPrefix)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
		}
	case <-ctx.Done():
		logr.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Sugar().Errorw("graceful shutdown failed", "error", err)
		}
	}
}

