package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/momentworks/consultbook/cmd/mainconfig"
	"github.com/momentworks/consultbook/internal/api/router"
	"github.com/momentworks/consultbook/internal/app/bootstrap"
	"github.com/momentworks/consultbook/internal/bookings"
	"github.com/momentworks/consultbook/internal/cms"
	appconfig "github.com/momentworks/consultbook/internal/config"
	"github.com/momentworks/consultbook/internal/consultants"
	httpmiddleware "github.com/momentworks/consultbook/internal/http/middleware"
	"github.com/momentworks/consultbook/internal/notify"
	"github.com/momentworks/consultbook/internal/observability/metrics"
	"github.com/momentworks/consultbook/internal/payments"
	"github.com/momentworks/consultbook/pkg/logging"
)

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		logging.Default().Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := appconfig.Load()

	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting consultbook API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"email_provider", cfg.EmailProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	sesClient, err := buildSESClient(ctx, cfg)
	if err != nil {
		return err
	}
	sender, err := bootstrap.BuildEmailSender(cfg, sesClient, logger)
	if err != nil {
		return err
	}

	metricsHandler, bookingMetrics := setupMetrics()
	deps, err := buildApp(cfg, pool, redisClient, sender, bookingMetrics, logger)
	if err != nil {
		return err
	}
	deps.routes.MetricsHandler = metricsHandler

	srv := newHTTPServer(cfg.Port, router.New(deps.routes))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		deps.deliverer.Run(gctx)
		return nil
	})
	g.Go(func() error {
		deps.limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type app struct {
	routes    *router.Config
	deliverer *notify.Deliverer
	limiter   *httpmiddleware.RateLimiter
}

func buildApp(
	cfg *appconfig.Config,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	sender notify.EmailSender,
	m *metrics.BookingMetrics,
	logger *logging.Logger,
) (*app, error) {
	consultantsRepo := consultants.NewPostgresRepository(pool)
	bookingStore := bookings.NewPostgresStore(pool)
	outbox := notify.NewOutboxStore(pool)

	gateway := notify.NewGateway(sender, notify.GatewayConfig{
		Brand:        cfg.EmailFromName,
		SupportEmail: cfg.SupportEmail,
	}, m, logger)

	bookingService := bookings.NewService(bookingStore, consultantsRepo, gateway, m, logger)
	webhook := payments.NewStripeWebhookHandler(payments.WebhookConfig{
		Secret:    cfg.StripeWebhookSecret,
		Tolerance: cfg.StripeSignatureTolerance,
	}, bookingStore, consultantsRepo, gateway, outbox, m, logger).
		WithEventLedger(payments.NewProcessedStore(pool))

	cmsReader, err := bootstrap.BuildCMSReader(cfg, redisClient, logger)
	if err != nil {
		return nil, err
	}

	deliverer := notify.NewDeliverer(outbox, bookingStore, consultantsRepo, gateway, logger).
		WithMaxAttempts(cfg.NotifyRetryMaxAttempts).
		WithBaseDelay(cfg.NotifyRetryBaseDelay).
		WithInterval(cfg.NotifyRetryInterval)
	limiter := httpmiddleware.NewRateLimiter(cfg.BookingRateLimitRPS, cfg.BookingRateLimitBurst)

	return &app{
		routes: &router.Config{
			Logger:             logger,
			Bookings:           bookings.NewHandler(bookingService, logger),
			Consultants:        consultants.NewHandler(consultantsRepo, logger),
			StripeWebhook:      webhook,
			CMS:                cms.NewHandler(cmsReader, logger),
			AdminAuthSecret:    cfg.AdminJWTSecret,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			BookingLimiter:     limiter,
		},
		deliverer: deliverer,
		limiter:   limiter,
	}, nil
}

func buildSESClient(ctx context.Context, cfg *appconfig.Config) (*sesv2.Client, error) {
	if cfg.EmailProvider != appconfig.EmailProviderSES {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return mainconfig.NewSESClient(awsCfg, cfg), nil
}

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

const serverWriteTimeout = 15 * time.Second

func newHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
