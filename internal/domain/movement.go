package domain

import (
	"strings"
	"time"
)

// MovementType определяет вид складской операции.
type MovementType string

const (
	// MovementSale — продажа, уменьшает остаток.
	MovementSale MovementType = "sale"
	// MovementReturn — возврат, увеличивает остаток.
	MovementReturn MovementType = "return"
	// MovementTransfer — перемещение на склад, увеличивает остаток.
	// Исходная система фиксирует только входящую сторону перемещения.
	MovementTransfer MovementType = "transfer"
)

// ParseMovementType нормализует строковое представление типа операции.
func ParseMovementType(raw string) (MovementType, error) {
	switch MovementType(strings.ToLower(strings.TrimSpace(raw))) {
	case MovementSale:
		return MovementSale, nil
	case MovementReturn:
		return MovementReturn, nil
	case MovementTransfer:
		return MovementTransfer, nil
	default:
		return "", ErrMovementTypeInvalid
	}
}

// Direction возвращает знак дельты остатка для данного типа операции.
func (t MovementType) Direction() int64 {
	if t == MovementSale {
		return -1
	}
	return 1
}

// StockMovement — неизменяемая запись журнала складских операций.
// Создаётся только после того, как Stock Ledger принял дельту.
type StockMovement struct {
	ID        string
	ProductID string
	// ActorID — пользователь, от имени которого зафиксирована операция.
	ActorID  string
	Type     MovementType
	Quantity int64
	// QuantityBefore/QuantityAfter фиксируют остаток до и после применения дельты.
	QuantityBefore int64
	QuantityAfter  int64
	OccurredAt     time.Time
}

// MovementFilter задаёт условия выборки журнала операций.
type MovementFilter struct {
	ProductID string
	ActorID   string
	Type      MovementType
	// From/To ограничивают период; To трактуется включительно до конца дня.
	From *time.Time
	To   *time.Time
}
