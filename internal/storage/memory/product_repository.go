package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// productRepositoryInMemory — in-memory реализация ProductRepository.
// Мьютекс сериализует в том числе AdjustQuantity, поэтому read-modify-write
// остатка безопасен при конкурентных вызовах.
type productRepositoryInMemory struct {
	mu         sync.RWMutex
	items      map[string]domain.Product
	categories domain.CategoryRepository
}

// NewProductRepository возвращает in-memory репозиторий для локальной разработки и тестов.
// Репозиторий категорий нужен для фильтрации по имени категории.
func NewProductRepository(categories domain.CategoryRepository) domain.ProductRepository {
	return &productRepositoryInMemory{
		items:      make(map[string]domain.Product),
		categories: categories,
	}
}

// Create сохраняет новый товар, отклоняя дубликаты имени.
func (r *productRepositoryInMemory) Create(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if strings.EqualFold(existing.Name, product.Name) {
			return domain.ErrProductNameTaken
		}
	}
	r.items[product.ID] = product
	return nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepositoryInMemory) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List возвращает страницу товаров под фильтром и общее число подходящих записей.
func (r *productRepositoryInMemory) List(filter domain.ProductFilter, sortBy domain.ProductSort, page domain.Page) ([]domain.Product, int, error) {
	categoryID := ""
	if filter.CategoryName != "" && r.categories != nil {
		category, err := r.categories.GetByName(filter.CategoryName)
		if err != nil {
			// Неизвестная категория — пустая выборка, не ошибка.
			return []domain.Product{}, 0, nil
		}
		categoryID = category.ID
	}

	r.mu.RLock()
	matched := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		if !matchProduct(product, filter, categoryID) {
			continue
		}
		matched = append(matched, product)
	}
	r.mu.RUnlock()

	sortProducts(matched, sortBy)

	total := len(matched)
	offset := page.Offset()
	if offset >= total {
		return []domain.Product{}, total, nil
	}
	end := offset + page.Limit()
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// Update применяет изменения имени, цены и категории; остаток сохраняется.
func (r *productRepositoryInMemory) Update(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	for id, existing := range r.items {
		if id != product.ID && strings.EqualFold(existing.Name, product.Name) {
			return domain.ErrProductNameTaken
		}
	}

	current.Name = product.Name
	current.Price = product.Price
	current.CategoryID = product.CategoryID
	current.UpdatedAt = time.Now().UTC()
	r.items[product.ID] = current
	return nil
}

// Delete удаляет товар.
func (r *productRepositoryInMemory) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.items, id)
	return nil
}

// AdjustQuantity атомарно применяет дельту к остатку; отрицательный результат
// отклоняется без изменений.
func (r *productRepositoryInMemory) AdjustQuantity(id string, delta int64) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}

	next := product.Quantity + delta
	if next < 0 {
		return domain.Product{}, domain.ErrInsufficientStock
	}

	product.Quantity = next
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return product, nil
}

func matchProduct(product domain.Product, filter domain.ProductFilter, categoryID string) bool {
	if filter.Name != "" && !strings.Contains(strings.ToLower(product.Name), strings.ToLower(filter.Name)) {
		return false
	}
	if filter.CategoryName != "" && product.CategoryID != categoryID {
		return false
	}
	if filter.MinPrice != nil && product.Price.LessThan(*filter.MinPrice) {
		return false
	}
	if filter.MaxPrice != nil && product.Price.GreaterThan(*filter.MaxPrice) {
		return false
	}
	return true
}

func sortProducts(products []domain.Product, sortBy domain.ProductSort) {
	field := sortBy.Field
	if !field.Valid() {
		field = domain.ProductSortByID
	}

	less := func(a, b domain.Product) bool {
		switch field {
		case domain.ProductSortByName:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		case domain.ProductSortByPrice:
			return a.Price.LessThan(b.Price)
		case domain.ProductSortByQuantity:
			return a.Quantity < b.Quantity
		default:
			return a.ID < b.ID
		}
	}

	sort.SliceStable(products, func(i, j int) bool {
		if sortBy.Descending {
			return less(products[j], products[i])
		}
		return less(products[i], products[j])
	})
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
