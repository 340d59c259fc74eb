package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Stock события
	EventTypeStockLow      EventType = "stock.low"
	EventTypeStockMovement EventType = "stock.movement"

	// Order события
	EventTypeOrderCreated   EventType = "order.created"
	EventTypeOrderCompleted EventType = "order.completed"
	EventTypeOrderCancelled EventType = "order.cancelled"
	EventTypeOrderDeleted   EventType = "order.deleted"
)

// Topics для Kafka
const (
	TopicStockEvents     = "ims.stock.events"
	TopicOrderEvents     = "ims.order.events"
	TopicDeadLetterQueue = "ims.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// StockEvent представляет событие журнала остатков
type StockEvent struct {
	EventType EventType `json:"event_type"`
	ProductID string    `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`

	// Только для stock.low
	Threshold int64 `json:"threshold,omitempty"`

	// Только для stock.movement
	MovementID     string `json:"movement_id,omitempty"`
	MovementType   string `json:"movement_type,omitempty"`
	QuantityBefore int64  `json:"quantity_before,omitempty"`
	QuantityAfter  int64  `json:"quantity_after,omitempty"`
}

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType  EventType `json:"event_type"`
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewLowStockEvent создает событие падения остатка ниже порога
func NewLowStockEvent(productID string, quantity, threshold int64) *StockEvent {
	return &StockEvent{
		EventType: EventTypeStockLow,
		ProductID: productID,
		Quantity:  quantity,
		Threshold: threshold,
		Timestamp: time.Now(),
	}
}

// NewMovementEvent создает событие записанного движения по журналу
func NewMovementEvent(movementID, productID, movementType string, quantity, before, after int64) *StockEvent {
	return &StockEvent{
		EventType:      EventTypeStockMovement,
		ProductID:      productID,
		Quantity:       quantity,
		MovementID:     movementID,
		MovementType:   movementType,
		QuantityBefore: before,
		QuantityAfter:  after,
		Timestamp:      time.Now(),
	}
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, customerID, status string) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		CustomerID: customerID,
		Status:     status,
		Timestamp:  time.Now(),
	}
}
