package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category группирует товары каталога.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Validate проверяет обязательные поля категории.
func (c *Category) Validate() []error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ErrCategoryNameRequired)
	}
	return errs
}

// Product описывает товар и его остаток на складе.
// Поле Quantity изменяется только через Stock Ledger.
type Product struct {
	ID         string
	Name       string
	Price      decimal.Decimal
	CategoryID string
	Quantity   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate проверяет базовые инварианты товара.
func (p *Product) Validate() []error {
	var errs []error

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.CategoryID == "" {
		errs = append(errs, ErrCategoryRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrPriceNegative)
	}
	if p.Quantity < 0 {
		errs = append(errs, ErrQuantityNegative)
	}

	return errs
}

// ProductFilter задаёт условия выборки товаров.
type ProductFilter struct {
	// Name — подстрока имени товара (case-insensitive).
	Name string
	// CategoryName — точное имя категории.
	CategoryName string
	// MinPrice/MaxPrice ограничивают цену; nil означает "без ограничения".
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// ProductSortField перечисляет поддерживаемые поля сортировки товаров.
type ProductSortField string

const (
	ProductSortByID       ProductSortField = "id"
	ProductSortByName     ProductSortField = "name"
	ProductSortByPrice    ProductSortField = "price"
	ProductSortByQuantity ProductSortField = "quantity"
)

// Valid проверяет, что поле сортировки поддерживается.
func (f ProductSortField) Valid() bool {
	switch f {
	case ProductSortByID, ProductSortByName, ProductSortByPrice, ProductSortByQuantity:
		return true
	default:
		return false
	}
}

// ProductSort задаёт порядок выдачи списка товаров.
type ProductSort struct {
	Field      ProductSortField
	Descending bool
}

// Page описывает параметры постраничной выборки.
type Page struct {
	Number int
	Size   int
}

// Offset возвращает смещение для выборки с учётом нормализации параметров.
func (p Page) Offset() int {
	n := p.Number
	if n < 1 {
		n = 1
	}
	return (n - 1) * p.Limit()
}

// Limit возвращает размер страницы, подставляя дефолт для некорректных значений.
func (p Page) Limit() int {
	if p.Size < 1 {
		return DefaultPageSize
	}
	return p.Size
}

// DefaultPageSize — размер страницы по умолчанию для списочных выборок.
const DefaultPageSize = 40
