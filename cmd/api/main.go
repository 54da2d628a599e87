package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/BruksfildServices01/salon-scheduler/internal/audit"
	"github.com/BruksfildServices01/salon-scheduler/internal/clock"
	"github.com/BruksfildServices01/salon-scheduler/internal/config"
	dbpkg "github.com/BruksfildServices01/salon-scheduler/internal/db"
	"github.com/BruksfildServices01/salon-scheduler/internal/infra/archive"
	"github.com/BruksfildServices01/salon-scheduler/internal/infra/cache"
	"github.com/BruksfildServices01/salon-scheduler/internal/infra/notify"
	infraPayment "github.com/BruksfildServices01/salon-scheduler/internal/infra/payment"
	"github.com/BruksfildServices01/salon-scheduler/internal/metrics"
	"github.com/BruksfildServices01/salon-scheduler/internal/routes"
	"github.com/BruksfildServices01/salon-scheduler/internal/timezone"
	ucPayment "github.com/BruksfildServices01/salon-scheduler/internal/usecase/payment"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

func main() {
	// .env is optional; real deployments use the process environment.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := dbpkg.NewDB(cfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}

	clk := clock.System()
	loc := timezone.Location(cfg.Timezone)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	availabilityCache, redisClient := buildCache(ctx, cfg, logger)

	awsCfg, awsErr := loadAWSConfig(ctx, cfg)
	if awsErr != nil {
		logger.Warn("aws config unavailable", "error", awsErr)
	}

	sender := buildEmailSender(cfg, awsCfg, awsErr == nil, logger)
	notifier := notify.NewEmailNotifier(sender, loc, cfg.SalonName)

	provider, err := buildPaymentProvider(cfg, logger)
	if err != nil {
		logger.Error("payment provider unavailable", "error", err)
		os.Exit(1)
	}

	var webhookArchive ucPayment.WebhookArchive
	if cfg.WebhookArchiveBucket != "" && awsErr == nil {
		store := archive.NewStore(s3.NewFromConfig(awsCfg), cfg.WebhookArchiveBucket, clk, logger)
		if store.Enabled() {
			webhookArchive = store
		}
	}

	auditDispatcher := audit.NewDispatcher(audit.New(db), logger, 256)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	routes.RegisterRoutes(r, db, cfg, routes.Infra{
		Cache:    availabilityCache,
		Notifier: notifier,
		Payments: provider,
		Archive:  webhookArchive,
		Audit:    auditDispatcher,
		Metrics:  bookingMetrics,
		Gatherer: registry,
		Clock:    clk,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server running", "addr", cfg.Addr(), "payment_provider", cfg.PaymentProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	auditDispatcher.Close()

	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// buildCache falls back to no caching when Redis is not configured or down.
func buildCache(ctx context.Context, cfg *config.Config, logger *logging.Logger) (cache.Cache, *redis.Client) {
	if cfg.RedisAddr == "" {
		return cache.NewNoop(), nil
	}

	client, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, availability cache disabled", "addr", cfg.RedisAddr, "error", err)
		return cache.NewNoop(), nil
	}
	return cache.NewRedis(client, "salon:"), client
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

func buildEmailSender(cfg *config.Config, awsCfg aws.Config, awsOK bool, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); s != nil {
			return s
		}
	case "ses":
		if awsOK {
			return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.EmailFrom,
				FromName:  cfg.EmailFromName,
			}, logger)
		}
		logger.Warn("ses selected without aws config, emails will be logged only")
	}
	return notify.NewStubEmailSender(logger)
}

func buildPaymentProvider(cfg *config.Config, logger *logging.Logger) (ucPayment.Provider, error) {
	switch cfg.PaymentProvider {
	case "stripe":
		if cfg.StripeSecretKey == "" {
			logger.Warn("STRIPE_SECRET_KEY not set, deposit checkout disabled")
			return nil, nil
		}
		return infraPayment.NewStripeProvider(
			cfg.StripeSecretKey,
			cfg.StripeWebhookSecret,
			cfg.CheckoutSuccessURL,
			cfg.CheckoutCancelURL,
			logger,
		), nil
	case "mercadopago":
		mp, err := infraPayment.NewMercadoPagoProvider(infraPayment.MercadoPagoOptions{
			AccessToken:     cfg.MercadoPagoAccessToken,
			WebhookSecret:   cfg.MercadoPagoWebhookSecret,
			SuccessURL:      cfg.CheckoutSuccessURL,
			FailureURL:      cfg.CheckoutCancelURL,
			NotificationURL: cfg.PaymentNotificationURL,
		}, logger)
		if err != nil {
			return nil, err
		}
		return mp, nil
	default:
		return nil, nil
	}
}
