package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/messaging/kafka"
)

const defaultGroupID = "ims-stock-alerts"

// outboxEnvelope — формат сообщения, публикуемого outbox worker'ом.
type outboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

type config struct {
	brokers []string
	groupID string
	withDLQ bool
}

func readConfig() (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	flag.StringVar(&cfg.groupID, "group", defaultGroupID, "consumer group id")
	flag.BoolVar(&cfg.withDLQ, "dlq", true, "send poison messages to DLQ after retries")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("KAFKA_BROKERS")
	}

	for _, chunk := range strings.Split(brokersRaw, ",") {
		broker := strings.TrimSpace(chunk)
		if broker != "" {
			cfg.brokers = append(cfg.brokers, broker)
		}
	}
	if len(cfg.brokers) == 0 {
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	}
	if strings.TrimSpace(cfg.groupID) == "" {
		return config{}, fmt.Errorf("group is required")
	}

	return cfg, nil
}

// handleStockMessage разбирает событие остатков и пишет алёрт в лог.
func handleStockMessage(logger *log.Entry) kafka.MessageHandler {
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		var envelope outboxEnvelope
		if err := json.Unmarshal(message.Value, &envelope); err != nil {
			return fmt.Errorf("decode envelope: %w", err)
		}

		var event kafka.StockEvent
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return fmt.Errorf("decode stock event: %w", err)
		}

		switch event.EventType {
		case kafka.EventTypeStockLow:
			logger.WithFields(log.Fields{
				"product_id": event.ProductID,
				"quantity":   event.Quantity,
				"threshold":  event.Threshold,
			}).Warn("low stock alert")
		case kafka.EventTypeStockMovement:
			logger.WithFields(log.Fields{
				"product_id":      event.ProductID,
				"movement_id":     event.MovementID,
				"movement_type":   event.MovementType,
				"quantity_before": event.QuantityBefore,
				"quantity_after":  event.QuantityAfter,
			}).Info("stock movement recorded")
		default:
			logger.WithFields(log.Fields{
				"event_type": event.EventType,
				"offset":     message.Offset,
			}).Debug("skip unknown stock event")
		}

		return nil
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := log.WithField("component", "stock-alerts")

	var dlqProducer *kafka.Producer
	if cfg.withDLQ {
		producer, err := kafka.NewProducer(cfg.brokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create dlq producer, continuing without dlq")
		} else {
			dlqProducer = producer
			defer func() { _ = producer.Close() }()
		}
	}

	consumer, err := kafka.NewConsumerWithDLQ(
		cfg.brokers,
		cfg.groupID,
		[]string{kafka.TopicStockEvents},
		handleStockMessage(logger),
		dlqProducer,
		3,
	)
	if err != nil {
		logger.WithError(err).Fatal("failed to create kafka consumer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("failed to start kafka consumer")
	}

	<-ctx.Done()
	logger.Info("останавливаем stock-alerts consumer")

	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Error("consumer stopped with error")
	}
}
