package domain

import "errors"

var (
	// Ошибка отсутствующего имени категории.
	ErrCategoryNameRequired = errors.New("category name is required")
	// Ошибка отсутствующего имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отсутствующей категории у товара.
	ErrCategoryRequired = errors.New("category_id is required")
	// Ошибка отрицательной цены товара.
	ErrPriceNegative = errors.New("price must be non-negative")
	// Ошибка отрицательного остатка.
	ErrQuantityNegative = errors.New("quantity must be non-negative")
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего имени покупателя.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// Ошибка отсутствующего логина пользователя.
	ErrUsernameRequired = errors.New("username is required")
	// Ошибка неподдерживаемой роли пользователя.
	ErrUserRoleInvalid = errors.New("user role must be admin or staff")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка позиции без ссылки на товар.
	ErrItemProductRequired = errors.New("item product_id is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка повторения одного товара в нескольких позициях заказа.
	ErrItemDuplicateProduct = errors.New("order contains duplicate product")

	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound возвращается, если категория не найдена.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCustomerNotFound возвращается, если покупатель не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrMovementNotFound возвращается, если запись журнала не найдена.
	ErrMovementNotFound = errors.New("stock movement not found")
	// ErrOrderAlreadyExists — заказ с таким идентификатором уже сохранён.
	ErrOrderAlreadyExists = errors.New("order already exists")

	// ErrProductNameTaken — товар с таким именем уже существует.
	ErrProductNameTaken = errors.New("product name already exists")
	// ErrCategoryNameTaken — категория с таким именем уже существует.
	ErrCategoryNameTaken = errors.New("category name already exists")
	// ErrUsernameTaken — логин уже занят.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrProductHasMovements — товар нельзя удалить, пока на него ссылается журнал операций.
	ErrProductHasMovements = errors.New("product has stock movements")
	// ErrProductInOrders — товар нельзя удалить, пока на него ссылаются позиции заказов.
	ErrProductInOrders = errors.New("product is referenced by order items")
	// ErrCategoryHasProducts — категорию нельзя удалить, пока в ней есть товары.
	ErrCategoryHasProducts = errors.New("category has products")

	// ErrInvalidDelta — нулевая дельта не является операцией.
	ErrInvalidDelta = errors.New("delta must be non-zero")
	// ErrInsufficientStock — дельта увела бы остаток в минус; изменение не применено.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrLockTimeout — не удалось получить блокировку товара за отведённое время.
	// Ошибка считается retryable.
	ErrLockTimeout = errors.New("stock lock timeout")

	// ErrInvalidStatus — неизвестный статус заказа.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidTransition — переход между статусами не разрешён.
	ErrInvalidTransition = errors.New("order status transition is not allowed")

	// ErrMovementTypeInvalid — неподдерживаемый тип складской операции.
	ErrMovementTypeInvalid = errors.New("movement type must be sale, return or transfer")
	// ErrMovementQtyInvalid — количество в складской операции должно быть положительным.
	ErrMovementQtyInvalid = errors.New("movement quantity must be greater than zero")
	// ErrActorRequired — складская операция требует актора.
	ErrActorRequired = errors.New("actor_id is required")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хэш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — запись с таким ключом уже существует.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ уже использован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key request hash mismatch")
	// ErrIdempotencyKeyNotFound — запись с таким ключом не найдена.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsRetryable сообщает, имеет ли смысл повторить операцию без изменений запроса.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
