package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/dormdeals/internal/config"
	"github.com/joao-fontenele/dormdeals/internal/messaging"
	"github.com/joao-fontenele/dormdeals/internal/notifications"
	"github.com/joao-fontenele/dormdeals/internal/telemetry"
	"github.com/joao-fontenele/dormdeals/internal/users"
	"github.com/joao-fontenele/dormdeals/internal/worker"
)

const (
	serviceName    = "dormdeals-worker"
	serviceVersion = "0.1.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.Log)

	if !cfg.Kafka.Enabled() {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Otel, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	db, err := telemetry.OpenPostgres(cfg.Postgres)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URL))
	if err != nil {
		logger.Error("failed to connect to mongo", "error", err)
		os.Exit(1)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	store := notifications.NewMongoStore(mongoClient.Database(cfg.Mongo.Database))
	fanOut := notifications.NewService(store, users.NewUserRepository(db), telemetry.MustCounters(), logger)
	handler := worker.NewNotificationHandler(fanOut, logger)

	consumerFor := func(topic string) *messaging.Consumer {
		return messaging.NewConsumer(messaging.ConsumerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        topic,
			GroupID:      cfg.Kafka.ConsumerGroupID,
			MaxAttempts:  cfg.Kafka.MaxAttempts,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		}, logger)
	}
	orderConsumer := consumerFor(cfg.Kafka.OrderTopic)
	defer func() { _ = orderConsumer.Close() }()
	stockConsumer := consumerFor(cfg.Kafka.StockTopic)
	defer func() { _ = stockConsumer.Close() }()

	logger.Info("starting notification worker", "brokers", cfg.Kafka.Brokers,
		"topics", []string{orderConsumer.Topic(), stockConsumer.Topic()})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orderConsumer.Consume(gctx, handler.HandleOrderPlaced)
	})
	g.Go(func() error {
		return stockConsumer.Consume(gctx, handler.HandleStockLow)
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Info("consumers stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
