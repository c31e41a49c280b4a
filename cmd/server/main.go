package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"watchtower/internal/alert"
	"watchtower/internal/alert/ratecounter"
	"watchtower/internal/alert/rules"
	alertstore "watchtower/internal/alert/store"
	"watchtower/internal/alert/suppress"
	alertworker "watchtower/internal/alert/worker"
	"watchtower/internal/audit"
	auditstore "watchtower/internal/audit/store"
	auditworker "watchtower/internal/audit/worker"
	"watchtower/internal/notify"
	"watchtower/internal/platform/config"
	"watchtower/internal/platform/httpserver"
	"watchtower/internal/platform/kafka"
	"watchtower/internal/platform/logger"
	"watchtower/internal/platform/metrics"
	"watchtower/internal/platform/postgres"
	"watchtower/internal/platform/redis"
	"watchtower/internal/queue"
	"watchtower/internal/retention"
	httptransport "watchtower/internal/transport/http"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	if err := kafka.EnsureTopics(ctx, cfg.Kafka, queue.SerialTopics(), queue.Topics()...); err != nil {
		return err
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	defer producer.Close()

	m := metrics.New()
	jobs := queue.NewKafka(producer)

	auditStore := auditstore.NewPostgres(db)
	auditService := audit.NewService(auditStore)

	alertStore := alertstore.NewPostgres(db)
	dedup := suppress.NewRedis(rdb.Client)
	alertService := alert.NewService(alertStore, dedup, cfg.Alerting.SuppressionWindow, log, m)

	engine := rules.NewEvaluator(rules.Catalog(), ratecounter.NewRedis(rdb.Client))

	persister := auditworker.NewPersister(auditStore, jobs, log, m)
	evaluator := alertworker.NewEvaluator(engine, alertService, jobs, cfg.Alerting.WebhookURL, log)
	webhook := notify.NewWebhook(cfg.Alerting.WebhookURL, cfg.Alerting.WebhookTimeout, log, m)
	purger := retention.NewPurger(auditStore, log, m)

	archiver := retention.NewArchiver(auditStore, jobs, cfg.Retention, log, m)
	scheduler := retention.NewScheduler(archiver, cfg.Retention.Interval, log)

	runners := map[string]*queue.Runner{
		queue.TopicAuditWrite:      queue.NewRunner(queue.TopicAuditWrite, persister.Handle, queue.RetryPolicy{MaxAttempts: 1}, log, m),
		queue.TopicAlertEvaluate:   queue.NewRunner(queue.TopicAlertEvaluate, evaluator.Handle, queue.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second}, log, m),
		queue.TopicWebhookSend:     queue.NewRunner(queue.TopicWebhookSend, webhook.Handle, queue.RetryPolicy{MaxAttempts: cfg.Alerting.WebhookMaxAttempts, BaseDelay: cfg.Alerting.WebhookBaseDelay}, log, m),
		queue.TopicRetentionDelete: queue.NewRunner(queue.TopicRetentionDelete, purger.Handle, queue.RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second}, log, m),
	}

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Audit:         httptransport.NewAuditHandler(auditService, log),
		Alerts:        httptransport.NewAlertsHandler(alertService, log),
		Logger:        log,
		JWTSigningKey: cfg.JWTSigningKey,
		HealthChecks: map[string]httptransport.HealthCheck{
			"postgres": db.PingContext,
			"redis":    rdb.Health,
		},
	})
	srv := httpserver.New(cfg.HTTPAddr, router)

	g, gctx := errgroup.WithContext(ctx)

	for topic, runner := range runners {
		consumer, err := kafka.NewConsumer(cfg.Kafka, topic, log)
		if err != nil {
			return err
		}
		defer consumer.Close()
		g.Go(func() error {
			log.Info("consumer started", "topic", topic)
			if err := consumer.Run(gctx, runner); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		if err := scheduler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("watchtower pipeline up")
	return g.Wait()
}
