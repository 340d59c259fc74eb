package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, остаток уже списан, исполнение не завершено.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusCompleted — заказ исполнен; дополнительных складских эффектов нет.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled — заказ отменён, списанный остаток возвращён на склад.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransition проверяет допустимость перехода между статусами.
// Переходы определены только из pending; конечные статусы не меняются.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return s == OrderStatusPending && (to == OrderStatusCompleted || to == OrderStatusCancelled)
}

// OrderItem представляет одну позицию заказа. После оформления позиция неизменяема.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int64
	CreatedAt time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID            string
	CustomerID    string
	OrderDate     time.Time
	PaymentMethod string
	Status        OrderStatus
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}

	// Позиции с нулевым количеством и дубли одного товара недопустимы.
	seen := make(map[string]bool, len(o.Items))
	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if seen[item.ProductID] {
			errs = append(errs, ErrItemDuplicateProduct)
		}
		seen[item.ProductID] = true
	}

	return errs
}
