package movement

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ims/internal/metrics"
	"github.com/vladislavdragonenkov/ims/internal/service/ledger"
)

// StockLedger ограничивает recorder единственной точкой изменения остатков.
type StockLedger interface {
	ApplyDelta(productID string, delta int64) (ledger.Adjustment, error)
}

// Options задаёт параметры Transaction Recorder.
type Options struct {
	Logger  *log.Entry
	Metrics *metrics.StockMetrics
	Outbox  domain.OutboxRepository
}

// Option настраивает Recorder.
type Option func(*Options)

// WithLogger задаёт logger для recorder.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики движений.
func WithMetrics(m *metrics.StockMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithOutbox задаёт transactional outbox для событий движений.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = outbox
	}
}

// Recorder ведёт append-only журнал движений остатков (sale/return/transfer).
// Каждое движение сначала проводится через Stock Ledger, затем фиксируется в
// журнале со снимком остатка до и после.
type Recorder struct {
	movements domain.MovementRepository
	products  domain.ProductRepository
	users     domain.UserRepository
	ledger    StockLedger
	outbox    domain.OutboxRepository
	logger    *log.Entry
	metrics   *metrics.StockMetrics
}

// NewRecorder создаёт Transaction Recorder.
func NewRecorder(
	movements domain.MovementRepository,
	products domain.ProductRepository,
	users domain.UserRepository,
	stockLedger StockLedger,
	options ...Option,
) *Recorder {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	return &Recorder{
		movements: movements,
		products:  products,
		users:     users,
		ledger:    stockLedger,
		outbox:    opts.Outbox,
		logger:    logger.WithField("component", "movement_recorder"),
		metrics:   opts.Metrics,
	}
}

// RecordInput описывает записываемое движение.
type RecordInput struct {
	ProductID string
	ActorID   string
	Type      string
	Quantity  int64
}

// Record применяет движение к остатку и фиксирует его в журнале.
// Отклонённая дельта (нехватка остатка, lock timeout) движения не создаёт.
func (r *Recorder) Record(input RecordInput) (domain.StockMovement, error) {
	if input.Quantity <= 0 {
		return domain.StockMovement{}, domain.ErrMovementQtyInvalid
	}
	if strings.TrimSpace(input.ActorID) == "" {
		return domain.StockMovement{}, domain.ErrActorRequired
	}

	movementType, err := domain.ParseMovementType(input.Type)
	if err != nil {
		return domain.StockMovement{}, err
	}
	if _, err := r.users.Get(input.ActorID); err != nil {
		return domain.StockMovement{}, err
	}
	if _, err := r.products.Get(input.ProductID); err != nil {
		return domain.StockMovement{}, err
	}

	delta := movementType.Direction() * input.Quantity
	adjustment, err := r.ledger.ApplyDelta(input.ProductID, delta)
	if err != nil {
		return domain.StockMovement{}, err
	}

	movement := domain.StockMovement{
		ID:             uuid.NewString(),
		ProductID:      input.ProductID,
		ActorID:        input.ActorID,
		Type:           movementType,
		Quantity:       input.Quantity,
		QuantityBefore: adjustment.QuantityBefore,
		QuantityAfter:  adjustment.QuantityAfter,
		OccurredAt:     time.Now().UTC(),
	}

	if err := r.movements.Insert(movement); err != nil {
		// Журнал и остаток должны сходиться: не записанное движение
		// откатывается в ledger.
		if _, rollbackErr := r.ledger.ApplyDelta(input.ProductID, -delta); rollbackErr != nil {
			r.logger.WithError(rollbackErr).WithField("product_id", input.ProductID).
				Error("rollback failed, stock requires reconciliation")
		}
		return domain.StockMovement{}, fmt.Errorf("persist movement: %w", err)
	}

	if r.metrics != nil {
		r.metrics.RecordMovement(string(movementType))
	}
	r.enqueueEvent(movement)
	r.logger.WithFields(log.Fields{
		"movement_id":     movement.ID,
		"product_id":      movement.ProductID,
		"type":            movement.Type,
		"quantity":        movement.Quantity,
		"quantity_before": movement.QuantityBefore,
		"quantity_after":  movement.QuantityAfter,
	}).Info("stock movement recorded")

	return movement, nil
}

// Get возвращает движение по идентификатору.
func (r *Recorder) Get(movementID string) (domain.StockMovement, error) {
	return r.movements.Get(movementID)
}

// HasMovements сообщает, ссылается ли журнал на товар. Пока ссылки есть,
// товар удалять нельзя.
func (r *Recorder) HasMovements(productID string) (bool, error) {
	return r.movements.ExistsForProduct(productID)
}

// List возвращает страницу журнала движений, новые первыми.
func (r *Recorder) List(filter domain.MovementFilter, page domain.Page) ([]domain.StockMovement, int, error) {
	if filter.ProductID != "" {
		if _, err := r.products.Get(filter.ProductID); err != nil {
			return nil, 0, err
		}
	}
	if filter.ActorID != "" {
		if _, err := r.users.Get(filter.ActorID); err != nil {
			return nil, 0, err
		}
	}
	return r.movements.List(filter, page)
}

func (r *Recorder) enqueueEvent(movement domain.StockMovement) {
	if r.outbox == nil {
		return
	}

	event := kafka.NewMovementEvent(
		movement.ID,
		movement.ProductID,
		string(movement.Type),
		movement.Quantity,
		movement.QuantityBefore,
		movement.QuantityAfter,
	)
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.WithError(err).Error("failed to marshal movement event")
		return
	}

	if _, err := r.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "product",
		AggregateID:   movement.ProductID,
		EventType:     string(kafka.EventTypeStockMovement),
		Payload:       payload,
	}); err != nil {
		r.logger.WithError(err).WithField("movement_id", movement.ID).
			Error("failed to enqueue movement event")
	}
}
