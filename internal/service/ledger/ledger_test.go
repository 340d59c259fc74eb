package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/service/ledger"
	"github.com/vladislavdragonenkov/ims/internal/storage/memory"
)

func newProducts(t *testing.T, quantity int64) domain.ProductRepository {
	t.Helper()

	categories := memory.NewCategoryRepository()
	products := memory.NewProductRepository(categories)

	require.NoError(t, categories.Create(domain.Category{ID: "cat-1", Name: "Electronics"}))
	require.NoError(t, products.Create(domain.Product{
		ID:         "p-laptop",
		Name:       "Laptop",
		Price:      decimal.NewFromInt(1200),
		CategoryID: "cat-1",
		Quantity:   quantity,
	}))

	return products
}

func TestLedger_ApplyDelta(t *testing.T) {
	products := newProducts(t, 20)
	stockLedger := ledger.New(products)

	adjustment, err := stockLedger.ApplyDelta("p-laptop", -5)
	require.NoError(t, err)

	assert.Equal(t, "p-laptop", adjustment.ProductID)
	assert.Equal(t, int64(-5), adjustment.Delta)
	assert.Equal(t, int64(20), adjustment.QuantityBefore)
	assert.Equal(t, int64(15), adjustment.QuantityAfter)

	adjustment, err = stockLedger.ApplyDelta("p-laptop", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(15), adjustment.QuantityBefore)
	assert.Equal(t, int64(17), adjustment.QuantityAfter)
}

func TestLedger_RejectsZeroDelta(t *testing.T) {
	stockLedger := ledger.New(newProducts(t, 20))

	_, err := stockLedger.ApplyDelta("p-laptop", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidDelta)
}

func TestLedger_InsufficientStock(t *testing.T) {
	products := newProducts(t, 17)
	stockLedger := ledger.New(products)

	_, err := stockLedger.ApplyDelta("p-laptop", -100)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Отклонённая дельта не меняет остаток.
	product, err := products.Get("p-laptop")
	require.NoError(t, err)
	assert.Equal(t, int64(17), product.Quantity)
}

func TestLedger_ProductNotFound(t *testing.T) {
	stockLedger := ledger.New(newProducts(t, 20))

	_, err := stockLedger.ApplyDelta("missing", -1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = stockLedger.ApplyDelta("  ", -1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestLedger_ConcurrentDeltasNeverOversell(t *testing.T) {
	const (
		initial = 100
		workers = 150
	)

	products := newProducts(t, initial)
	stockLedger := ledger.New(products, ledger.WithLockTimeout(10*time.Second))

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		applied      int
		insufficient int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := stockLedger.ApplyDelta("p-laptop", -1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				applied++
			case assert.ErrorIs(t, err, domain.ErrInsufficientStock):
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, initial, applied)
	assert.Equal(t, workers-initial, insufficient)

	product, err := products.Get("p-laptop")
	require.NoError(t, err)
	assert.Equal(t, int64(0), product.Quantity)
}

type blockingProducts struct {
	domain.ProductRepository
	proceed chan struct{}
}

func (b *blockingProducts) AdjustQuantity(productID string, delta int64) (domain.Product, error) {
	<-b.proceed
	return b.ProductRepository.AdjustQuantity(productID, delta)
}

func TestLedger_LockTimeout(t *testing.T) {
	blocking := &blockingProducts{
		ProductRepository: newProducts(t, 20),
		proceed:           make(chan struct{}),
	}
	stockLedger := ledger.New(blocking, ledger.WithLockTimeout(30*time.Millisecond))

	holderDone := make(chan error, 1)
	go func() {
		_, err := stockLedger.ApplyDelta("p-laptop", -1)
		holderDone <- err
	}()

	// Даём первому вызову захватить блокировку и застрять в репозитории.
	time.Sleep(10 * time.Millisecond)

	_, err := stockLedger.ApplyDelta("p-laptop", -1)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)

	close(blocking.proceed)
	require.NoError(t, <-holderDone)
}

type recordingObserver struct {
	mu     sync.Mutex
	alerts []domain.StockAlert
}

func (o *recordingObserver) OnLowStock(alert domain.StockAlert) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.alerts = append(o.alerts, alert)
}

func (o *recordingObserver) snapshot() []domain.StockAlert {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.StockAlert(nil), o.alerts...)
}

func TestLedger_LowStockAlert(t *testing.T) {
	products := newProducts(t, 6)
	observer := &recordingObserver{}
	notifier := ledger.NewNotifier([]domain.StockObserver{observer})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		notifier.Run(ctx)
	}()

	stockLedger := ledger.New(products,
		ledger.WithNotifier(notifier),
		ledger.WithLowStockThreshold(5),
	)

	// 6 -> 5: порог достигнут, уведомление уходит.
	_, err := stockLedger.ApplyDelta("p-laptop", -1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(observer.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	alert := observer.snapshot()[0]
	assert.Equal(t, "p-laptop", alert.ProductID)
	assert.Equal(t, int64(5), alert.Quantity)
	assert.Equal(t, int64(5), alert.Threshold)

	cancel()
	<-done
}

func TestLedger_NoAlertAboveThreshold(t *testing.T) {
	products := newProducts(t, 20)
	observer := &recordingObserver{}
	notifier := ledger.NewNotifier([]domain.StockObserver{observer})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		notifier.Run(ctx)
	}()

	stockLedger := ledger.New(products,
		ledger.WithNotifier(notifier),
		ledger.WithLowStockThreshold(5),
	)

	_, err := stockLedger.ApplyDelta("p-laptop", -3)
	require.NoError(t, err)

	cancel()
	<-done

	assert.Empty(t, observer.snapshot())
}
