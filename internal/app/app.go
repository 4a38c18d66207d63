// Package app wires certforge's modules together and runs the process in
// one of three modes: the tenant-facing API, the generation worker, or
// the preview sweeper.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/certforge/certforge/internal/authedge"
	"github.com/certforge/certforge/internal/config"
	"github.com/certforge/certforge/internal/httpserver"
	"github.com/certforge/certforge/internal/platform"
	"github.com/certforge/certforge/internal/telemetry"
	"github.com/certforge/certforge/pkg/certificate"
	"github.com/certforge/certforge/pkg/customer"
	"github.com/certforge/certforge/pkg/genqueue"
	"github.com/certforge/certforge/pkg/genworker"
	"github.com/certforge/certforge/pkg/objectstore"
	"github.com/certforge/certforge/pkg/pdfrender"
	"github.com/certforge/certforge/pkg/sweeper"
	"github.com/certforge/certforge/pkg/template"
	"github.com/certforge/certforge/pkg/tenant"
	"github.com/certforge/certforge/pkg/verification"
)

// Run reads config, connects to infrastructure, and starts the mode
// selected by cfg.Mode.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting certforge", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunGlobalMigrations(cfg.DatabaseURL, cfg.MigrationsGlobalDir); err != nil {
		return fmt.Errorf("running global migrations: %w", err)
	}
	logger.Info("global migrations applied")

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing object store: %w", err)
	}
	if err := objects.EnsureBucket(ctx, cfg.S3Bucket); err != nil {
		return fmt.Errorf("ensuring bucket: %w", err)
	}

	customers := customer.NewRegistry(db, cfg.DatabaseURL, cfg.MigrationsTenantDir, logger)

	consumerName := cfg.QueueConsumerName
	if consumerName == "" {
		consumerName = cfg.Mode + "-" + uuid.New().String()
	}
	queue := genqueue.New(rdb, consumerName, genqueue.WithMaxDeliveries(cfg.QueueMaxDeliveries))

	renderer := pdfrender.NewRenderer(cfg.BaseURL, cfg.RenderTimeout)

	engine := &certificate.Engine{
		Pool:      db,
		Customers: customers,
		Renderer:  renderer,
		Objects:   objects,
		Queue:     queue,
		Bucket:    cfg.S3Bucket,
		BaseURL:   cfg.BaseURL,
		Logger:    logger,
	}

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg, customers, engine, queue)
	case "worker":
		return runWorker(ctx, logger, queue, engine)
	case "sweeper":
		return runSweeper(ctx, cfg, logger, db, customers, objects)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	// S3Bucket always has a default, so endpoint presence is the signal:
	// no endpoint configured means no real object store was provisioned.
	if cfg.S3Endpoint == "" {
		return objectstore.NewMemoryStore(), nil
	}
	return objectstore.NewS3Store(ctx, objectstore.S3Config{
		Region:     cfg.S3Region,
		Endpoint:   cfg.S3Endpoint,
		PathStyle:  cfg.S3ForcePathStyle,
		DefaultTTL: cfg.S3PresignDefault,
	})
}

func runAPI(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *pgxpool.Pool,
	rdb *redis.Client,
	metricsReg *prometheus.Registry,
	customers *customer.Registry,
	engine *certificate.Engine,
	queue *genqueue.Queue,
) error {
	if err := queue.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("ensuring queue consumer group: %w", err)
	}

	tenantMW := tenant.Middleware(db, tenant.HeaderResolver{}, customers, logger)
	authMW := authedge.Middleware(authedge.HeaderResolver{})

	srv := httpserver.NewServer(cfg.CORSAllowedOrigins, logger, db, rdb, metricsReg, telemetry.HTTPRequestDuration, tenantMW, authMW)

	// Public, tenant-less routes: onboarding and verification.
	customerHandler := customer.NewHandler(customers)
	srv.Router.Mount("/api/v1/customers", customerHandler.Routes())

	verifyService := &verification.Service{Pool: db, Customers: customers, Logger: logger}
	verifyHandler := verification.NewHandler(verifyService)
	srv.Router.Mount("/api/certificates/verify", verifyHandler.Routes())

	// Tenant-scoped domain routes.
	templateHandler := template.NewHandler(db)
	srv.APIRouter.Mount("/templates", templateHandler.Routes())

	certHandler := certificate.NewHandler(engine)
	srv.APIRouter.Mount("/certificates", certHandler.Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runWorker(ctx context.Context, logger *slog.Logger, queue *genqueue.Queue, engine *certificate.Engine) error {
	w := genworker.New(queue, engine, logger)
	return w.Run(ctx)
}

func runSweeper(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, customers *customer.Registry, objects objectstore.Store) error {
	s := &sweeper.Sweeper{
		Pool:          db,
		Customers:     customers,
		Objects:       objects,
		Bucket:        cfg.S3Bucket,
		Logger:        logger,
		MaxPreviewAge: cfg.MaxPreviewAge,
	}
	s.RunLoop(ctx, cfg.SweepInterval)
	return nil
}
