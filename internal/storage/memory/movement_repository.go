package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// movementRepositoryInMemory — in-memory журнал складских операций.
// Записи неизменяемы: репозиторий не предоставляет update/delete.
type movementRepositoryInMemory struct {
	mu    sync.RWMutex
	items []domain.StockMovement
	byID  map[string]int
}

// NewMovementRepository возвращает in-memory журнал складских операций.
func NewMovementRepository() domain.MovementRepository {
	return &movementRepositoryInMemory{byID: make(map[string]int)}
}

// Insert добавляет запись в журнал.
func (r *movementRepositoryInMemory) Insert(movement domain.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[movement.ID] = len(r.items)
	r.items = append(r.items, movement)
	return nil
}

// Get возвращает запись журнала или ErrMovementNotFound.
func (r *movementRepositoryInMemory) Get(id string) (domain.StockMovement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return domain.StockMovement{}, domain.ErrMovementNotFound
	}
	return r.items[idx], nil
}

// List возвращает страницу журнала под фильтром, новые первыми.
func (r *movementRepositoryInMemory) List(filter domain.MovementFilter, page domain.Page) ([]domain.StockMovement, int, error) {
	r.mu.RLock()
	matched := make([]domain.StockMovement, 0, len(r.items))
	for _, movement := range r.items {
		if !matchMovement(movement, filter) {
			continue
		}
		matched = append(matched, movement)
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].OccurredAt.After(matched[j].OccurredAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	offset := page.Offset()
	if offset >= total {
		return []domain.StockMovement{}, total, nil
	}
	end := offset + page.Limit()
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// ExistsForProduct сообщает, есть ли в журнале записи по товару.
func (r *movementRepositoryInMemory) ExistsForProduct(productID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, movement := range r.items {
		if movement.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func matchMovement(movement domain.StockMovement, filter domain.MovementFilter) bool {
	if filter.ProductID != "" && movement.ProductID != filter.ProductID {
		return false
	}
	if filter.ActorID != "" && movement.ActorID != filter.ActorID {
		return false
	}
	if filter.Type != "" && movement.Type != filter.Type {
		return false
	}
	if filter.From != nil && movement.OccurredAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil {
		// Конец периода трактуется включительно до конца дня.
		endOfDay := filter.To.AddDate(0, 0, 1).Add(-time.Nanosecond)
		if movement.OccurredAt.After(endOfDay) {
			return false
		}
	}
	return true
}

var _ domain.MovementRepository = (*movementRepositoryInMemory)(nil)
