package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/multistate/internal/config"
	"github.com/ehr/multistate/internal/domain/augment"
	"github.com/ehr/multistate/internal/domain/polish"
	"github.com/ehr/multistate/internal/domain/run"
	"github.com/ehr/multistate/internal/platform/auth"
	"github.com/ehr/multistate/internal/platform/db"
	"github.com/ehr/multistate/internal/platform/metrics"
	"github.com/ehr/multistate/internal/platform/middleware"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the augmentation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// serverDeps are the collaborators of the HTTP server. Runs and DBHealth are
// optional; without them the run routes and /health/db are not mounted.
type serverDeps struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Runs     *run.Service
	DBHealth echo.HandlerFunc
}

func newServer(d serverDeps) *echo.Echo {
	cfg := d.Config
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.Logger))
	e.Use(middleware.Recovery(d.Logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.DBHealth != nil {
		e.GET("/health/db", d.DBHealth)
	}
	e.GET("/metrics", d.Metrics.Handler())

	apiV1 := e.Group("/api/v1",
		middleware.BodyLimit(cfg.BodyLimit),
		middleware.RequestTimeout(cfg.RequestTimeout),
	)
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}
	if cfg.RateLimitRPS > 0 {
		apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}))
	}

	augment.NewHandler(d.Logger, d.Metrics, cfg.Vocabulary(), cfg.Workers()).RegisterRoutes(apiV1)
	polish.NewHandler(d.Metrics).RegisterRoutes(apiV1)
	if d.Runs != nil {
		run.NewHandler(d.Runs).RegisterRoutes(apiV1)
	}
	return e
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: every API request is served as admin without authentication")
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	m := metrics.New(nil)
	runs := newRunService(pool, m, logger, cfg)
	e := newServer(serverDeps{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Runs:     runs,
		DBHealth: db.HealthHandler(pool),
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
