package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ims/internal/service/ledger"
)

// StockLedger ограничивает workflow единственной точкой изменения остатков.
type StockLedger interface {
	ApplyDelta(productID string, delta int64) (ledger.Adjustment, error)
}

// Options задаёт параметры Order Workflow.
type Options struct {
	Logger *log.Entry
	Outbox domain.OutboxRepository

	// RestockOnCompletedDelete управляет возвратом остатка при удалении
	// завершённого заказа. Бизнес-политика не определена, поэтому поведение
	// вынесено в конфигурацию, по умолчанию выключено.
	RestockOnCompletedDelete bool
}

// Option настраивает Workflow.
type Option func(*Options)

// WithLogger задаёт logger для workflow.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithOutbox задаёт transactional outbox для событий заказов.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = outbox
	}
}

// WithRestockOnCompletedDelete включает возврат остатка при удалении
// завершённого заказа.
func WithRestockOnCompletedDelete(enabled bool) Option {
	return func(opts *Options) {
		opts.RestockOnCompletedDelete = enabled
	}
}

// Workflow управляет жизненным циклом заказа: создание, переходы статусов,
// удаление. Все изменения остатков идут через Stock Ledger.
type Workflow struct {
	orders    domain.OrderRepository
	customers domain.CustomerRepository
	products  domain.ProductRepository
	ledger    StockLedger
	outbox    domain.OutboxRepository
	logger    *log.Entry

	restockOnCompletedDelete bool
}

// NewWorkflow создаёт Order Workflow.
func NewWorkflow(
	orders domain.OrderRepository,
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	stockLedger StockLedger,
	options ...Option,
) *Workflow {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	return &Workflow{
		orders:                   orders,
		customers:                customers,
		products:                 products,
		ledger:                   stockLedger,
		outbox:                   opts.Outbox,
		logger:                   logger.WithField("component", "order_workflow"),
		restockOnCompletedDelete: opts.RestockOnCompletedDelete,
	}
}

// ItemInput описывает позицию создаваемого заказа.
type ItemInput struct {
	ProductID string
	Quantity  int64
}

// CreateInput описывает создаваемый заказ.
type CreateInput struct {
	CustomerID    string
	OrderDate     time.Time
	PaymentMethod string
	Items         []ItemInput
}

// Create создаёт заказ целиком или не создаёт вовсе: сначала проверяется
// доступность всех позиций, затем списываются остатки; при любом сбое уже
// списанные позиции возвращаются обратно и заказ не сохраняется.
func (w *Workflow) Create(input CreateInput) (domain.Order, error) {
	now := time.Now().UTC()
	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = now
	}

	order := domain.Order{
		ID:            uuid.NewString(),
		CustomerID:    input.CustomerID,
		OrderDate:     orderDate,
		PaymentMethod: input.PaymentMethod,
		Status:        domain.OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, item := range input.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			CreatedAt: now,
		})
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errors.Join(errs...)
	}
	if _, err := w.customers.Get(order.CustomerID); err != nil {
		return domain.Order{}, err
	}

	// Pre-check всей корзины: частичные заказы запрещены.
	for _, item := range order.Items {
		product, err := w.products.Get(item.ProductID)
		if err != nil {
			return domain.Order{}, err
		}
		if product.Quantity < item.Quantity {
			return domain.Order{}, fmt.Errorf("product %q: %w", product.Name, domain.ErrInsufficientStock)
		}
	}

	applied := make([]domain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if _, err := w.ledger.ApplyDelta(item.ProductID, -item.Quantity); err != nil {
			w.restock(applied)
			return domain.Order{}, fmt.Errorf("reserve product %s: %w", item.ProductID, err)
		}
		applied = append(applied, item)
	}

	if err := w.orders.Create(order); err != nil {
		w.restock(order.Items)
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	w.enqueueEvent(kafka.EventTypeOrderCreated, order)
	w.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"items":       len(order.Items),
	}).Info("order created")

	return order, nil
}

// Get возвращает заказ по идентификатору.
func (w *Workflow) Get(orderID string) (domain.Order, error) {
	return w.orders.Get(orderID)
}

// List возвращает заказы, опционально по клиенту, новые первыми.
func (w *Workflow) List(customerID string, limit int) ([]domain.Order, error) {
	if customerID != "" {
		if _, err := w.customers.Get(customerID); err != nil {
			return nil, err
		}
	}
	return w.orders.List(customerID, limit)
}

// UpdateStatus переводит заказ в новый статус. Разрешены только переходы
// Pending→Completed и Pending→Cancelled; отмена возвращает остатки всех
// позиций ровно в том объёме, в котором их списало создание заказа.
// Запись статуса выполняется через compare-and-set репозитория: из двух
// конкурентных отмен остатки возвращает ровно одна, проигравшая получает
// ErrInvalidTransition и откатывает свой возврат.
func (w *Workflow) UpdateStatus(orderID string, next domain.OrderStatus) (domain.Order, error) {
	if !next.Valid() {
		return domain.Order{}, fmt.Errorf("status %q: %w", next, domain.ErrInvalidStatus)
	}

	order, err := w.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Status.CanTransition(next) {
		return domain.Order{}, fmt.Errorf("%s -> %s: %w", order.Status, next, domain.ErrInvalidTransition)
	}

	if next == domain.OrderStatusCancelled {
		if err := w.restockAll(order.Items); err != nil {
			return domain.Order{}, err
		}
	}

	if err := w.orders.UpdateStatus(orderID, order.Status, next); err != nil {
		if next == domain.OrderStatusCancelled {
			w.unrestock(order.Items)
		}
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("persist status: %w", err)
	}
	order.Status = next

	switch next {
	case domain.OrderStatusCompleted:
		w.enqueueEvent(kafka.EventTypeOrderCompleted, order)
	case domain.OrderStatusCancelled:
		w.enqueueEvent(kafka.EventTypeOrderCancelled, order)
	}
	w.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"status":   next,
	}).Info("order status updated")

	return order, nil
}

// Delete удаляет заказ. Pending и Cancelled удаляются без влияния на остатки:
// Cancelled уже вернул остатки при отмене. Для Completed возврат остатков
// выполняется только при включённом RestockOnCompletedDelete.
func (w *Workflow) Delete(orderID string) error {
	order, err := w.orders.Get(orderID)
	if err != nil {
		return err
	}

	restocked := order.Status == domain.OrderStatusCompleted && w.restockOnCompletedDelete
	if restocked {
		if err := w.restockAll(order.Items); err != nil {
			return err
		}
	}

	if err := w.orders.Delete(orderID); err != nil {
		if restocked {
			w.unrestock(order.Items)
		}
		return fmt.Errorf("delete order: %w", err)
	}

	w.enqueueEvent(kafka.EventTypeOrderDeleted, order)
	w.logger.WithFields(log.Fields{
		"order_id":  order.ID,
		"status":    order.Status,
		"restocked": restocked,
	}).Info("order deleted")

	return nil
}

// restockAll возвращает остатки всех позиций; при частичном сбое уже
// возвращённые позиции списываются обратно и возвращается ошибка.
func (w *Workflow) restockAll(items []domain.OrderItem) error {
	restocked := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if _, err := w.ledger.ApplyDelta(item.ProductID, item.Quantity); err != nil {
			w.unrestock(restocked)
			return fmt.Errorf("restock product %s: %w", item.ProductID, err)
		}
		restocked = append(restocked, item)
	}
	return nil
}

// restock компенсирует списания при сбое создания заказа. Best effort:
// ошибка компенсации логируется, остаток может потребовать ручной сверки.
func (w *Workflow) restock(items []domain.OrderItem) {
	for _, item := range items {
		if _, err := w.ledger.ApplyDelta(item.ProductID, item.Quantity); err != nil {
			w.logger.WithError(err).WithFields(log.Fields{
				"product_id": item.ProductID,
				"quantity":   item.Quantity,
			}).Error("compensation failed, stock requires reconciliation")
		}
	}
}

// unrestock откатывает возврат остатков. Best effort.
func (w *Workflow) unrestock(items []domain.OrderItem) {
	for _, item := range items {
		if _, err := w.ledger.ApplyDelta(item.ProductID, -item.Quantity); err != nil {
			w.logger.WithError(err).WithFields(log.Fields{
				"product_id": item.ProductID,
				"quantity":   item.Quantity,
			}).Error("compensation failed, stock requires reconciliation")
		}
	}
}

func (w *Workflow) enqueueEvent(eventType kafka.EventType, order domain.Order) {
	if w.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.CustomerID, string(order.Status))
	payload, err := json.Marshal(event)
	if err != nil {
		w.logger.WithError(err).Error("failed to marshal order event")
		return
	}

	if _, err := w.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		w.logger.WithError(err).WithField("order_id", order.ID).
			Error("failed to enqueue order event")
	}
}
