package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"rentme/internal/app/bootstrap"
	"rentme/internal/app/policies"
	"rentme/internal/infra/broker/kafka"
	"rentme/internal/infra/calendarfeed"
	"rentme/internal/infra/config"
	ginserver "rentme/internal/infra/http/gin"
	redislock "rentme/internal/infra/lock/redis"
	"rentme/internal/infra/obs"
	infraoutbox "rentme/internal/infra/outbox"
	"rentme/internal/infra/payments"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV")).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage unavailable", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.close(context.Background())

	locker, closeLocker, err := buildLocker(ctx, cfg, logger)
	if err != nil {
		logger.Error("lock backend unavailable", "error", err)
		os.Exit(1)
	}
	defer closeLocker()

	pay := buildPayments(cfg, logger)
	buses := bootstrap.NewBuses(bootstrap.Dependencies{
		UoW:         store.uow,
		Outbox:      store.outbox,
		Idempotency: store.idempotency,
		Locker:      locker,
		Payments:    pay,
		Feed:        calendarfeed.NewFetcher(10 * time.Second),
		Logger:      logger,
	})

	var wg sync.WaitGroup
	runBackground := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "worker", name, "error", err)
			}
		}()
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			logger.Error("kafka producer unavailable", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		worker := &infraoutbox.Worker{
			Store:       store.queue,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Source:      "rentme/booking",
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
		}
		runBackground("outbox", worker.Run)

		results := &kafka.PaymentResultsHandler{Bus: buses.Commands, Queries: buses.Queries, Payments: pay, Inbox: store.inbox, Logger: logger}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, results, logger)
		if err != nil {
			logger.Error("kafka consumer unavailable", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
		runBackground("payment-results", func(ctx context.Context) error {
			return consumer.Run(ctx, []string{cfg.KafkaPaymentsTopic})
		})
	} else {
		logger.Info("kafka not configured, outbox records stay pending")
	}

	if cfg.CalendarSyncInterval > 0 {
		syncer := &calendarfeed.Syncer{UoW: store.uow, Commands: buses.Commands, Interval: cfg.CalendarSyncInterval, Logger: logger}
		runBackground("calendar-sync", syncer.Run)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: store.ready}, ginserver.Handlers{
		Property:     ginserver.PropertyHandler{Commands: buses.Commands, Queries: buses.Queries},
		Pricing:      ginserver.PricingHandler{Commands: buses.Commands, Queries: buses.Queries},
		Availability: ginserver.AvailabilityHandler{Commands: buses.Commands, Queries: buses.Queries},
		Booking:      ginserver.BookingHandler{Commands: buses.Commands, Queries: buses.Queries},
		Me:           ginserver.MeHandler{Queries: buses.Queries},
		Host:         ginserver.HostHandler{Queries: buses.Queries},
		Identity:     ginserver.Identity(),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
		wg.Wait()
		os.Exit(1)
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
}

func buildLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (policies.PropertyLocker, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-process property locks")
		return newMemoryLocker(), func() {}, nil
	}
	client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return redislock.NewLocker(client, cfg.LockTTL), func() { _ = client.Close() }, nil
}

func buildPayments(cfg config.Config, logger *slog.Logger) policies.PaymentsPort {
	if cfg.PaymentsURL == "" {
		logger.Warn("PAYMENTS_URL not set, using sandbox processor")
		return payments.NewSandbox(0)
	}
	return payments.NewClient(cfg.PaymentsURL, cfg.PaymentsTimeout, logger)
}
