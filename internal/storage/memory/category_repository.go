package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// categoryRepositoryInMemory — in-memory реализация CategoryRepository.
type categoryRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Category
}

// NewCategoryRepository возвращает in-memory репозиторий категорий.
func NewCategoryRepository() domain.CategoryRepository {
	return &categoryRepositoryInMemory{items: make(map[string]domain.Category)}
}

// Create сохраняет новую категорию, отклоняя дубликаты имени.
func (r *categoryRepositoryInMemory) Create(category domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if strings.EqualFold(existing.Name, category.Name) {
			return domain.ErrCategoryNameTaken
		}
	}
	r.items[category.ID] = category
	return nil
}

// Get возвращает категорию или ErrCategoryNotFound.
func (r *categoryRepositoryInMemory) Get(id string) (domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	category, ok := r.items[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return category, nil
}

// GetByName ищет категорию по точному имени (case-insensitive).
func (r *categoryRepositoryInMemory) GetByName(name string) (domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, category := range r.items {
		if strings.EqualFold(category.Name, name) {
			return category, nil
		}
	}
	return domain.Category{}, domain.ErrCategoryNotFound
}

// List возвращает категории, упорядоченные по имени.
func (r *categoryRepositoryInMemory) List() ([]domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Category, 0, len(r.items))
	for _, category := range r.items {
		result = append(result, category)
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

// Update переименовывает категорию.
func (r *categoryRepositoryInMemory) Update(category domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[category.ID]
	if !ok {
		return domain.ErrCategoryNotFound
	}
	for id, existing := range r.items {
		if id != category.ID && strings.EqualFold(existing.Name, category.Name) {
			return domain.ErrCategoryNameTaken
		}
	}
	current.Name = category.Name
	r.items[category.ID] = current
	return nil
}

// Delete удаляет категорию.
func (r *categoryRepositoryInMemory) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.CategoryRepository = (*categoryRepositoryInMemory)(nil)
