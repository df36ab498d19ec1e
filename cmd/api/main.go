package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/app"
	"github.com/ganapathi9191/farmhouse-backend/internal/clock"
	"github.com/ganapathi9191/farmhouse-backend/internal/config"
	"github.com/ganapathi9191/farmhouse-backend/internal/notify"
	"github.com/ganapathi9191/farmhouse-backend/internal/payment"
	"github.com/ganapathi9191/farmhouse-backend/internal/storage/postgres"
	"github.com/ganapathi9191/farmhouse-backend/internal/storage/redis"
	transporthttp "github.com/ganapathi9191/farmhouse-backend/internal/transport/http"
	"github.com/ganapathi9191/farmhouse-backend/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	startupTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	configureLogger(logger, cfg)
	for _, key := range cfg.Defaulted {
		logger.WithField("key", key).Warn("setting not found, using default")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.WithError(err).Fatal("db ping")
	}
	applied, err := migrations.Apply(startupCtx, pool)
	if err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}
	for _, name := range applied {
		logger.WithField("migration", name).Info("applied migration")
	}

	clk := clock.NewSystem()
	readiness := []transporthttp.Pinger{pool}

	catalogRepo := postgres.NewCatalogRepository(pool)
	holdRepo := postgres.NewHoldRepository(pool)
	reservationRepo := postgres.NewReservationRepository(pool)

	availabilityOpts := []app.AvailabilityServiceOption{app.WithAvailabilityLogger(logger)}
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("redis client")
		}
		defer client.Close()
		cache := redis.NewLedgerCache(client, redis.WithTTL(cfg.CacheTTL))
		if err := cache.Ping(startupCtx); err != nil {
			logger.WithError(err).Warn("redis unreachable, ledger reads will fall through to postgres")
		}
		availabilityOpts = append(availabilityOpts, app.WithLedgerCache(cache))
		readiness = append(readiness, cache)
	}
	availability := app.NewAvailabilityService(catalogRepo, clk, availabilityOpts...)

	var notifier app.Notifier = notify.NewLogNotifier(logger)
	if cfg.AMQPURL != "" {
		publisher, err := notify.DialPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.WithError(err).Fatal("connect to broker")
		}
		defer publisher.Close()
		notifier = publisher
	}

	var gateway app.PaymentGateway = payment.Unconfigured{}
	if cfg.PaymentsConfigured() {
		gateway = payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	} else {
		logger.Warn("RAZORPAY_KEY_ID not set, commits and refunds will fail")
	}

	fees := app.NewFeeService(postgres.NewFeeRepository(pool), clk, cfg.Policy.FeeConfig())
	holds := app.NewHoldService(holdRepo, availability, fees, clk, app.WithHoldTTL(cfg.Policy.HoldTTL))
	bookings := app.NewBookingService(postgres.NewBookingRepository(pool), gateway, clk,
		app.WithBookingNotifier(notifier),
		app.WithBookingInvalidator(availability),
		app.WithBookingLogger(logger),
		app.WithCurrency(cfg.Currency),
	)
	cancellations := app.NewCancellationService(reservationRepo, gateway, clk,
		app.WithRefundPolicy(cfg.Policy.RefundPolicy()),
		app.WithCancellationNotifier(notifier),
		app.WithCancellationInvalidator(availability),
		app.WithCancellationLogger(logger),
	)
	sweeper := app.NewSweeper(holdRepo, reservationRepo, clk, cfg.SweepInterval, logger)

	router := transporthttp.NewRouter(transporthttp.Services{
		Catalog:      app.NewCatalogService(catalogRepo, clk),
		Fees:         fees,
		Availability: availability,
		Holds:        holds,
		Bookings:     bookings,
		Cancellation: cancellations,
		Reservations: app.NewReservationService(reservationRepo),
		Readiness:    readiness,
	})
	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, router), logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("port", cfg.Port).Info("api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server error")
	}
	logger.Info("server stopped")
}

func configureLogger(logger *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
