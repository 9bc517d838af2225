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

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/joao-fontenele/dormdeals/internal/admin"
	"github.com/joao-fontenele/dormdeals/internal/auth"
	"github.com/joao-fontenele/dormdeals/internal/cart"
	"github.com/joao-fontenele/dormdeals/internal/catalog"
	"github.com/joao-fontenele/dormdeals/internal/config"
	"github.com/joao-fontenele/dormdeals/internal/domain"
	"github.com/joao-fontenele/dormdeals/internal/messaging"
	"github.com/joao-fontenele/dormdeals/internal/notifications"
	"github.com/joao-fontenele/dormdeals/internal/orders"
	"github.com/joao-fontenele/dormdeals/internal/reviews"
	"github.com/joao-fontenele/dormdeals/internal/telemetry"
	"github.com/joao-fontenele/dormdeals/internal/users"
	"github.com/joao-fontenele/dormdeals/internal/web"
)

const (
	serviceName    = "dormdeals-api"
	serviceVersion = "0.1.0"
)

// eventNotifier is satisfied by both the in-process and the Kafka fan-out.
// Wait drains fan-outs still running in the background.
type eventNotifier interface {
	OrderPlaced(ctx context.Context, event domain.OrderPlacedEvent)
	StockLow(ctx context.Context, event domain.StockLowEvent)
	Wait()
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.Log)

	if cfg.Auth.JWTSecret == "" {
		logger.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Otel, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Otel, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime metrics", "error", err)
		os.Exit(1)
	}
	counters := telemetry.MustCounters()

	db, err := telemetry.OpenPostgres(cfg.Postgres)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URL))
	if err != nil {
		logger.Error("failed to connect to mongo", "error", err)
		os.Exit(1)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	notificationStore := notifications.NewMongoStore(mongoClient.Database(cfg.Mongo.Database))
	if err := notificationStore.EnsureIndexes(ctx); err != nil {
		logger.Error("failed to create notification indexes", "error", err)
		os.Exit(1)
	}

	userRepo := users.NewUserRepository(db)
	productRepo := catalog.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	cartRepo := cart.NewCartRepository(db)
	reviewRepo := reviews.NewReviewRepository(db)

	notificationSvc := notifications.NewService(notificationStore, userRepo, counters, logger)

	var notifier eventNotifier
	if cfg.Kafka.Enabled() {
		batching := messaging.WithBatchTimeout(cfg.Kafka.BatchTimeout)
		orderProducer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, batching)
		defer func() { _ = orderProducer.Close() }()
		stockProducer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.StockTopic, batching)
		defer func() { _ = stockProducer.Close() }()

		notifier = messaging.NewEventPublisher(orderProducer, stockProducer, logger)
		logger.Info("publishing fan-out events to kafka", "brokers", cfg.Kafka.Brokers)
	} else {
		notifier = notifications.NewAsyncNotifier(notificationSvc, logger)
		logger.Info("running fan-out in process")
	}

	authz, err := auth.NewAuthorizer()
	if err != nil {
		logger.Error("failed to load authorization policy", "error", err)
		os.Exit(1)
	}
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	cartSvc := cart.NewService(cartRepo, productRepo, logger)
	svcs := services{
		users:         users.NewService(userRepo, cartSvc, tokens, hasher, logger),
		catalog:       catalog.NewService(productRepo, notifier, cfg.LowStockThreshold, logger),
		cart:          cartSvc,
		orders:        orders.NewService(orderRepo, notifier, cartSvc, counters, logger),
		reviews:       reviews.NewService(reviewRepo, productRepo, orderRepo, authz, logger),
		notifications: notificationSvc,
		admin:         admin.NewService(userRepo, productRepo, orderRepo, cfg.LowStockThreshold, logger),
	}

	mw := auth.NewMiddleware(tokens, userRepo, authz, logger)
	mux := newRouter(svcs, mw, logger)
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", web.HealthHandler(logger, map[string]web.Check{
		"postgres": db.PingContext,
		"mongo": func(ctx context.Context) error {
			return mongoClient.Ping(ctx, nil)
		},
	}))

	server := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: otelhttp.NewHandler(mux, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting api", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	notifier.Wait()
}
