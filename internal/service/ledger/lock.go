package ledger

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

// keyedLock выдаёт по одной блокировке на ключ (товар) с ограниченным ожиданием.
// Запись с активным держателем или ожидающими всегда имеет refs > 0 и не
// удаляется из map, поэтому все конкуренты соревнуются за один семафор.
type keyedLock struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{entries: make(map[string]*lockEntry)}
}

// Acquire захватывает блокировку по ключу, ожидая не дольше timeout.
// По истечении timeout возвращает domain.ErrLockTimeout.
func (l *keyedLock) Acquire(key string, timeout time.Duration) error {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
		return nil
	case <-timer.C:
		l.release(key, entry, false)
		return domain.ErrLockTimeout
	}
}

// Release освобождает блокировку. Вызывается только текущим держателем.
func (l *keyedLock) Release(key string) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	l.release(key, entry, true)
}

func (l *keyedLock) release(key string, entry *lockEntry, held bool) {
	if held {
		<-entry.sem
	}
	l.mu.Lock()
	entry.refs--
	if entry.refs <= 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}
