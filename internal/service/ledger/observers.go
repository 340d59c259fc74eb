package ledger

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/messaging/kafka"
)

// LogObserver пишет предупреждение в лог при падении остатка ниже порога.
type LogObserver struct {
	logger *log.Entry
}

var _ domain.StockObserver = (*LogObserver)(nil)

// NewLogObserver создаёт наблюдателя, пишущего в лог.
func NewLogObserver(logger *log.Entry) *LogObserver {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &LogObserver{logger: logger.WithField("component", "low_stock_log")}
}

// OnLowStock реализует domain.StockObserver.
func (o *LogObserver) OnLowStock(alert domain.StockAlert) {
	o.logger.WithFields(log.Fields{
		"product_id": alert.ProductID,
		"product":    alert.Name,
		"quantity":   alert.Quantity,
		"threshold":  alert.Threshold,
	}).Warn("product stock below threshold")
}

// OutboxObserver кладёт событие stock.low в transactional outbox,
// откуда его заберёт outbox worker и опубликует в брокер.
type OutboxObserver struct {
	outbox domain.OutboxRepository
	logger *log.Entry
}

var _ domain.StockObserver = (*OutboxObserver)(nil)

// NewOutboxObserver создаёт наблюдателя, публикующего события через outbox.
func NewOutboxObserver(outbox domain.OutboxRepository, logger *log.Entry) *OutboxObserver {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &OutboxObserver{
		outbox: outbox,
		logger: logger.WithField("component", "low_stock_outbox"),
	}
}

// OnLowStock реализует domain.StockObserver.
func (o *OutboxObserver) OnLowStock(alert domain.StockAlert) {
	event := kafka.NewLowStockEvent(alert.ProductID, alert.Quantity, alert.Threshold)
	payload, err := json.Marshal(event)
	if err != nil {
		o.logger.WithError(err).Error("failed to marshal low stock event")
		return
	}

	if _, err := o.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "product",
		AggregateID:   alert.ProductID,
		EventType:     string(kafka.EventTypeStockLow),
		Payload:       payload,
	}); err != nil {
		o.logger.WithError(err).WithField("product_id", alert.ProductID).
			Error("failed to enqueue low stock event")
	}
}
