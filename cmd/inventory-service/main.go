package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/app"
)

// Переменные окружения сервиса.
const (
	envHTTPAddr                    = "IMS_HTTP_ADDR"
	envMetricsAddr                 = "IMS_METRICS_ADDR"
	envStorageDriver               = "IMS_STORAGE_DRIVER"
	envPostgresDSN                 = "IMS_POSTGRES_DSN"
	envPostgresAutoMigrate         = "IMS_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers                = "IMS_KAFKA_BROKERS"
	envKafkaBrokersLegacy          = "KAFKA_BROKERS"
	envOutboxPollInterval          = "IMS_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize             = "IMS_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts           = "IMS_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay            = "IMS_OUTBOX_RETRY_DELAY"
	envIdempotencyCleanupInterval  = "IMS_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "IMS_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
	envLowStockThreshold           = "IMS_LOW_STOCK_THRESHOLD"
	envStockLockTimeout            = "IMS_STOCK_LOCK_TIMEOUT"
	envRestockOnCompletedDelete    = "IMS_RESTOCK_ON_COMPLETED_DELETE"
)

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv строит конфигурацию из переменных окружения поверх
// дефолтов. Невалидные значения не прерывают запуск, а возвращаются
// предупреждениями.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, raw, err))
	}

	if raw, ok := lookup(envHTTPAddr); ok && strings.TrimSpace(raw) != "" {
		cfg.HTTPAddr = strings.TrimSpace(raw)
	}
	if raw, ok := lookup(envMetricsAddr); ok && strings.TrimSpace(raw) != "" {
		cfg.MetricsAddr = strings.TrimSpace(raw)
	}
	if raw, ok := lookup(envStorageDriver); ok && strings.TrimSpace(raw) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(raw))
	}
	if raw, ok := lookup(envPostgresDSN); ok && strings.TrimSpace(raw) != "" {
		cfg.PostgresDSN = strings.TrimSpace(raw)
	}
	if raw, ok := lookup(envPostgresAutoMigrate); ok {
		if value, err := parseBool(raw); err != nil {
			warn(envPostgresAutoMigrate, raw, err)
		} else {
			cfg.PostgresAutoMigrate = value
		}
	}
	if raw, ok := lookup(envKafkaBrokers); ok && strings.TrimSpace(raw) != "" {
		cfg.KafkaBrokers = strings.TrimSpace(raw)
	} else if raw, ok := lookup(envKafkaBrokersLegacy); ok && strings.TrimSpace(raw) != "" {
		cfg.KafkaBrokers = strings.TrimSpace(raw)
	}
	if raw, ok := lookup(envOutboxPollInterval); ok {
		if value, err := parseDuration(raw, func(v time.Duration) bool { return v > 0 }, "must be > 0"); err != nil {
			warn(envOutboxPollInterval, raw, err)
		} else {
			cfg.OutboxPollInterval = value
		}
	}
	if raw, ok := lookup(envOutboxBatchSize); ok {
		if value, err := parseInt(raw, func(v int) bool { return v > 0 }, "must be > 0"); err != nil {
			warn(envOutboxBatchSize, raw, err)
		} else {
			cfg.OutboxBatchSize = value
		}
	}
	if raw, ok := lookup(envOutboxMaxAttempts); ok {
		if value, err := parseInt(raw, func(v int) bool { return v > 0 }, "must be > 0"); err != nil {
			warn(envOutboxMaxAttempts, raw, err)
		} else {
			cfg.OutboxMaxAttempts = value
		}
	}
	if raw, ok := lookup(envOutboxRetryDelay); ok {
		if value, err := parseDuration(raw, func(v time.Duration) bool { return v >= 0 }, "must be >= 0"); err != nil {
			warn(envOutboxRetryDelay, raw, err)
		} else {
			cfg.OutboxRetryDelay = value
		}
	}
	if raw, ok := lookup(envIdempotencyCleanupInterval); ok {
		if value, err := parseDuration(raw, func(v time.Duration) bool { return v > 0 }, "must be > 0"); err != nil {
			warn(envIdempotencyCleanupInterval, raw, err)
		} else {
			cfg.IdempotencyCleanupInterval = value
		}
	}
	if raw, ok := lookup(envIdempotencyCleanupBatchSize); ok {
		if value, err := parseInt(raw, func(v int) bool { return v > 0 }, "must be > 0"); err != nil {
			warn(envIdempotencyCleanupBatchSize, raw, err)
		} else {
			cfg.IdempotencyCleanupBatchSize = value
		}
	}
	if raw, ok := lookup(envLowStockThreshold); ok {
		if value, err := parseInt64(raw, func(v int64) bool { return v >= 0 }, "must be >= 0"); err != nil {
			warn(envLowStockThreshold, raw, err)
		} else {
			cfg.LowStockThreshold = value
		}
	}
	if raw, ok := lookup(envStockLockTimeout); ok {
		if value, err := parseDuration(raw, func(v time.Duration) bool { return v > 0 }, "must be > 0"); err != nil {
			warn(envStockLockTimeout, raw, err)
		} else {
			cfg.StockLockTimeout = value
		}
	}
	if raw, ok := lookup(envRestockOnCompletedDelete); ok {
		if value, err := parseBool(raw); err != nil {
			warn(envRestockOnCompletedDelete, raw, err)
		} else {
			cfg.RestockOnCompletedDelete = value
		}
	}

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value")
	}
}

func parseInt(raw string, valid func(int) bool, requirement string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value")
	}
	if !valid(value) {
		return 0, errors.New(requirement)
	}
	return value, nil
}

func parseInt64(raw string, valid func(int64) bool, requirement string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid int value")
	}
	if !valid(value) {
		return 0, errors.New(requirement)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, requirement string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value")
	}
	if !valid(value) {
		return 0, errors.New(requirement)
	}
	return value, nil
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
	}).Info("запускаем inventory service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("сервис завершился с ошибкой")
	}

	log.Info("inventory service остановлен")
}
