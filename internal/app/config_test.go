package app

import (
	"testing"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected HTTPAddr :8080, got %s", cfg.HTTPAddr)
	}

	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected MetricsAddr :9090, got %s", cfg.MetricsAddr)
	}

	if cfg.StorageDriver != StorageDriverMemory {
		t.Errorf("expected StorageDriver %s, got %s", StorageDriverMemory, cfg.StorageDriver)
	}

	if !cfg.PostgresAutoMigrate {
		t.Error("expected PostgresAutoMigrate to be true")
	}
	if cfg.OutboxPollInterval <= 0 {
		t.Error("expected OutboxPollInterval to be > 0")
	}
	if cfg.OutboxBatchSize <= 0 {
		t.Error("expected OutboxBatchSize to be > 0")
	}
	if cfg.OutboxMaxAttempts <= 0 {
		t.Error("expected OutboxMaxAttempts to be > 0")
	}
	if cfg.OutboxRetryDelay < 0 {
		t.Error("expected OutboxRetryDelay to be >= 0")
	}
	if cfg.IdempotencyCleanupInterval <= 0 {
		t.Error("expected IdempotencyCleanupInterval to be > 0")
	}
	if cfg.IdempotencyCleanupBatchSize <= 0 {
		t.Error("expected IdempotencyCleanupBatchSize to be > 0")
	}
	if cfg.LowStockThreshold < 0 {
		t.Error("expected LowStockThreshold to be >= 0")
	}
	if cfg.StockLockTimeout <= 0 {
		t.Error("expected StockLockTimeout to be > 0")
	}
	if cfg.RestockOnCompletedDelete {
		t.Error("expected RestockOnCompletedDelete to be false by default")
	}
	if cfg.KafkaBrokers != "" {
		t.Error("expected KafkaBrokers to be empty by default")
	}
}

func TestConfig_Copy(t *testing.T) {
	original := DefaultConfig()
	clone := original

	clone.HTTPAddr = ":8181"

	// Значения копируются, оригинал не меняется.
	if original.HTTPAddr != ":8080" {
		t.Error("original config was modified")
	}
	if clone.HTTPAddr != ":8181" {
		t.Error("copy was not modified")
	}
}
