package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/api/rest"
	"github.com/vladislavdragonenkov/ims/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/ims/internal/health"
	"github.com/vladislavdragonenkov/ims/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ims/internal/metrics"
	"github.com/vladislavdragonenkov/ims/internal/service/idempotency"
	"github.com/vladislavdragonenkov/ims/internal/service/ledger"
	"github.com/vladislavdragonenkov/ims/internal/service/movement"
	"github.com/vladislavdragonenkov/ims/internal/service/order"
	"github.com/vladislavdragonenkov/ims/internal/service/outbox"
	"github.com/vladislavdragonenkov/ims/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run собирает зависимости и запускает сервис до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	stockMetrics := metrics.NewStockMetrics()
	httpMetrics := metrics.NewHTTPMetrics()

	notifier := ledger.NewNotifier(
		[]domain.StockObserver{
			ledger.NewLogObserver(logger.WithField("component", "stock-alerts")),
			ledger.NewOutboxObserver(deps.outbox, logger.WithField("component", "stock-alerts")),
		},
		ledger.WithNotifierLogger(logger.WithField("component", "stock-notifier")),
		ledger.WithNotifierMetrics(stockMetrics),
	)

	stockLedger := ledger.New(deps.products,
		ledger.WithLogger(logger.WithField("component", "ledger")),
		ledger.WithMetrics(stockMetrics),
		ledger.WithNotifier(notifier),
		ledger.WithLockTimeout(cfg.StockLockTimeout),
		ledger.WithLowStockThreshold(cfg.LowStockThreshold),
	)

	workflow := order.NewWorkflow(deps.orders, deps.customers, deps.products, stockLedger,
		order.WithLogger(logger.WithField("component", "order-workflow")),
		order.WithOutbox(deps.outbox),
		order.WithRestockOnCompletedDelete(cfg.RestockOnCompletedDelete),
	)

	recorder := movement.NewRecorder(deps.movements, deps.products, deps.users, stockLedger,
		movement.WithLogger(logger.WithField("component", "movement-recorder")),
		movement.WithMetrics(stockMetrics),
		movement.WithOutbox(deps.outbox),
	)

	// Kafka опционален: без брокеров outbox-сообщения остаются pending.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	if kafkaProducer == nil {
		logger.Info("kafka is not configured, outbox messages will stay pending")
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	notifierDone := make(chan struct{})
	go func() {
		defer close(notifierDone)
		notifier.Run(workerCtx)
	}()

	var outboxDone chan struct{}
	if kafkaProducer != nil {
		worker := outbox.NewWorker(
			deps.outbox,
			kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicStockEvents),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		outboxDone = make(chan struct{})
		go func() {
			defer close(outboxDone)
			worker.Run(workerCtx)
		}()
	}

	cleanupWorker := idempotency.NewCleanupWorker(deps.idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	cleanupDone := make(chan struct{})
	go func() {
		defer close(cleanupDone)
		cleanupWorker.Run(workerCtx)
	}()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiServer := rest.NewServer(rest.Deps{
		Products:   deps.products,
		Categories: deps.categories,
		Customers:  deps.customers,
		Users:      deps.users,
		Orders:     workflow,
		Movements:  recorder,
	},
		rest.WithLogger(logger.WithField("layer", "http")),
		rest.WithMetrics(httpMetrics),
		rest.WithIdempotency(deps.idempotency),
	)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	shutdown := func() {
		shutdownHTTP(httpSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		cancelWorkers()
		waitWorker(notifierDone, "stock-notifier", logger)
		waitWorker(outboxDone, "outbox-worker", logger)
		waitWorker(cleanupDone, "idempotency-cleanup", logger)
		closeKafkaProducer(kafkaProducer, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис")
		shutdown()
		return ctx.Err()
	case err := <-errCh:
		shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// waitWorker дожидается завершения фонового воркера с таймаутом.
func waitWorker(done <-chan struct{}, name string, logger *log.Entry) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.WithField("worker", name).Warn("worker did not stop in time")
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics и health-проб.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
