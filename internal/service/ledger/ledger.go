package ledger

import (
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/metrics"
)

const (
	defaultLockTimeout       = 2 * time.Second
	defaultLowStockThreshold = 10
)

// Adjustment описывает результат применённой дельты.
type Adjustment struct {
	ProductID      string
	ProductName    string
	Delta          int64
	QuantityBefore int64
	QuantityAfter  int64
}

// Options задаёт параметры Stock Ledger.
type Options struct {
	Logger            *log.Entry
	Metrics           *metrics.StockMetrics
	Notifier          *Notifier
	LockTimeout       time.Duration
	LowStockThreshold int64
}

// Option настраивает Ledger.
type Option func(*Options)

// WithLogger задаёт logger для журнала остатков.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики журнала остатков.
func WithMetrics(m *metrics.StockMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithNotifier задаёт получателя low-stock уведомлений.
func WithNotifier(notifier *Notifier) Option {
	return func(opts *Options) {
		opts.Notifier = notifier
	}
}

// WithLockTimeout задаёт предел ожидания блокировки товара.
func WithLockTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.LockTimeout = timeout
	}
}

// WithLowStockThreshold задаёт порог, ниже которого рассылаются уведомления.
func WithLowStockThreshold(threshold int64) Option {
	return func(opts *Options) {
		opts.LowStockThreshold = threshold
	}
}

// Ledger сериализует изменения остатка по каждому товару и является
// единственной точкой записи количества. Остаток никогда не уходит ниже нуля.
type Ledger struct {
	products  domain.ProductRepository
	locks     *keyedLock
	notifier  *Notifier
	logger    *log.Entry
	metrics   *metrics.StockMetrics
	timeout   time.Duration
	threshold int64
}

// New создаёт Stock Ledger поверх репозитория товаров.
func New(products domain.ProductRepository, options ...Option) *Ledger {
	opts := Options{
		LockTimeout:       defaultLockTimeout,
		LowStockThreshold: defaultLowStockThreshold,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}

	return &Ledger{
		products:  products,
		locks:     newKeyedLock(),
		notifier:  opts.Notifier,
		logger:    logger.WithField("component", "stock_ledger"),
		metrics:   opts.Metrics,
		timeout:   opts.LockTimeout,
		threshold: opts.LowStockThreshold,
	}
}

// ApplyDelta применяет дельту к остатку товара. Дельты по одному товару
// сериализуются: конкурирующий вызов ждёт не дольше lock timeout и получает
// domain.ErrLockTimeout, если не дождался. Отклонённая дельта не меняет остаток.
func (l *Ledger) ApplyDelta(productID string, delta int64) (Adjustment, error) {
	if strings.TrimSpace(productID) == "" {
		l.recordRejected("product_not_found")
		return Adjustment{}, domain.ErrProductNotFound
	}
	if delta == 0 {
		l.recordRejected("invalid_delta")
		return Adjustment{}, domain.ErrInvalidDelta
	}

	waitStart := time.Now()
	if err := l.locks.Acquire(productID, l.timeout); err != nil {
		l.recordRejected("lock_timeout")
		l.logger.WithFields(log.Fields{
			"product_id": productID,
			"delta":      delta,
			"waited":     time.Since(waitStart),
		}).Warn("lock wait exceeded timeout")
		return Adjustment{}, err
	}
	if l.metrics != nil {
		l.metrics.RecordLockWait(time.Since(waitStart))
		l.metrics.RecordLockAcquired()
	}
	defer func() {
		l.locks.Release(productID)
		if l.metrics != nil {
			l.metrics.RecordLockReleased()
		}
	}()

	product, err := l.products.AdjustQuantity(productID, delta)
	if err != nil {
		l.recordRejected(rejectionReason(err))
		return Adjustment{}, err
	}

	adjustment := Adjustment{
		ProductID:      product.ID,
		ProductName:    product.Name,
		Delta:          delta,
		QuantityBefore: product.Quantity - delta,
		QuantityAfter:  product.Quantity,
	}

	if l.metrics != nil {
		l.metrics.RecordDeltaApplied(delta)
	}
	l.logger.WithFields(log.Fields{
		"product_id":      product.ID,
		"delta":           delta,
		"quantity_before": adjustment.QuantityBefore,
		"quantity_after":  adjustment.QuantityAfter,
	}).Debug("stock delta applied")

	if l.notifier != nil && product.Quantity <= l.threshold {
		l.notifier.Notify(domain.StockAlert{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  product.Quantity,
			Threshold: l.threshold,
		})
	}

	return adjustment, nil
}

// LowStockThreshold возвращает порог уведомлений.
func (l *Ledger) LowStockThreshold() int64 {
	return l.threshold
}

func (l *Ledger) recordRejected(reason string) {
	if l.metrics != nil {
		l.metrics.RecordDeltaRejected(reason)
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrLockTimeout):
		return "lock_timeout"
	default:
		return "persistence"
	}
}
