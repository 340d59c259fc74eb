package domain

// ProductRepository описывает требования к хранилищу товаров.
type ProductRepository interface {
	// Create сохраняет новый товар. Возвращает ErrProductNameTaken при конфликте имени.
	Create(product Product) error
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(id string) (Product, error)
	// List возвращает страницу товаров и общее число записей под фильтром.
	List(filter ProductFilter, sort ProductSort, page Page) ([]Product, int, error)
	// Update применяет изменения имени, цены и категории. Остаток не трогает.
	Update(product Product) error
	// Delete удаляет товар. Проверка ссылок из журнала операций — на вызывающем;
	// postgres-реализация дополнительно возвращает ErrProductHasMovements или
	// ErrProductInOrders по нарушенному FK.
	Delete(id string) error
	// AdjustQuantity атомарно применяет дельту к остатку одного товара.
	// Возвращает товар с обновлённым остатком, ErrInsufficientStock если дельта
	// увела бы остаток в минус (без изменений), ErrLockTimeout при невозможности
	// получить блокировку строки за отведённое время.
	AdjustQuantity(id string, delta int64) (Product, error)
}

// CategoryRepository описывает требования к хранилищу категорий.
type CategoryRepository interface {
	Create(category Category) error
	Get(id string) (Category, error)
	GetByName(name string) (Category, error)
	List() ([]Category, error)
	Update(category Category) error
	// Delete возвращает ErrCategoryHasProducts, если в категории остались товары.
	Delete(id string) error
}

// CustomerRepository описывает требования к хранилищу покупателей.
type CustomerRepository interface {
	Create(customer Customer) error
	Get(id string) (Customer, error)
	List() ([]Customer, error)
	Update(customer Customer) error
	Delete(id string) error
}

// UserRepository описывает требования к хранилищу пользователей.
type UserRepository interface {
	Create(user User) error
	Get(id string) (User, error)
	List() ([]User, error)
	Update(user User) error
	Delete(id string) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями в одной транзакции.
	Create(order Order) error
	// Get возвращает заказ с позициями или ErrOrderNotFound.
	Get(id string) (Order, error)
	// List возвращает заказы, опционально по клиенту, новые первыми.
	List(customerID string, limit int) ([]Order, error)
	// UpdateStatus меняет статус заказа по принципу compare-and-set: запись
	// применяется, только если текущий статус равен from. Возвращает
	// ErrOrderNotFound для отсутствующего заказа и ErrInvalidTransition, если
	// статус уже изменён конкурентным запросом.
	UpdateStatus(id string, from, to OrderStatus) error
	// Delete удаляет заказ вместе с позициями.
	Delete(id string) error
}

// MovementRepository описывает требования к журналу складских операций.
// Журнал append-only: операций изменения и удаления записей нет.
type MovementRepository interface {
	Insert(movement StockMovement) error
	Get(id string) (StockMovement, error)
	// List возвращает страницу журнала под фильтром, новые первыми, и общее число записей.
	List(filter MovementFilter, page Page) ([]StockMovement, int, error)
	// ExistsForProduct сообщает, ссылается ли журнал на товар.
	ExistsForProduct(productID string) (bool, error)
}
