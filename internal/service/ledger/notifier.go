package ledger

import (
	"context"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ims/internal/domain"
	"github.com/vladislavdragonenkov/ims/internal/metrics"
)

const defaultAlertBuffer = 64

// NotifierOptions задаёт параметры рассылки уведомлений.
type NotifierOptions struct {
	Logger  *log.Entry
	Metrics *metrics.StockMetrics
	Buffer  int
}

// NotifierOption настраивает Notifier.
type NotifierOption func(*NotifierOptions)

// WithNotifierLogger задаёт logger для рассылки.
func WithNotifierLogger(logger *log.Entry) NotifierOption {
	return func(opts *NotifierOptions) {
		opts.Logger = logger
	}
}

// WithNotifierMetrics задаёт метрики рассылки.
func WithNotifierMetrics(m *metrics.StockMetrics) NotifierOption {
	return func(opts *NotifierOptions) {
		opts.Metrics = m
	}
}

// WithAlertBuffer задаёт размер буфера уведомлений.
func WithAlertBuffer(size int) NotifierOption {
	return func(opts *NotifierOptions) {
		opts.Buffer = size
	}
}

// Notifier доставляет low-stock уведомления наблюдателям через буферизованный
// канал. Отправка никогда не блокирует журнал: при переполненном буфере
// уведомление теряется и учитывается в метриках.
type Notifier struct {
	observers []domain.StockObserver
	alerts    chan domain.StockAlert
	logger    *log.Entry
	metrics   *metrics.StockMetrics
	stopped   atomic.Bool
}

// NewNotifier создаёт рассылку поверх набора наблюдателей.
func NewNotifier(observers []domain.StockObserver, options ...NotifierOption) *Notifier {
	opts := NotifierOptions{Buffer: defaultAlertBuffer}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultAlertBuffer
	}

	return &Notifier{
		observers: observers,
		alerts:    make(chan domain.StockAlert, opts.Buffer),
		logger:    logger.WithField("component", "low_stock_notifier"),
		metrics:   opts.Metrics,
	}
}

// Notify ставит уведомление в очередь доставки, не блокируясь. После
// остановки рассылки уведомление учитывается как потерянное.
func (n *Notifier) Notify(alert domain.StockAlert) {
	if n.stopped.Load() {
		n.recordDrop(alert)
		return
	}
	select {
	case n.alerts <- alert:
	default:
		n.recordDrop(alert)
	}
}

// Run доставляет уведомления до отмены контекста, затем добирает остаток буфера.
func (n *Notifier) Run(ctx context.Context) {
	n.logger.Info("low stock notifier started")
	for {
		select {
		case <-ctx.Done():
			n.stopped.Store(true)
			n.drain()
			n.dropRemaining()
			n.logger.Info("low stock notifier stopped")
			return
		case alert := <-n.alerts:
			n.dispatch(alert)
		}
	}
}

func (n *Notifier) drain() {
	for {
		select {
		case alert := <-n.alerts:
			n.dispatch(alert)
		default:
			return
		}
	}
}

// dropRemaining учитывает уведомления, проскочившие проверку флага остановки
// и попавшие в буфер уже после финальной доставки.
func (n *Notifier) dropRemaining() {
	for {
		select {
		case alert := <-n.alerts:
			n.recordDrop(alert)
		default:
			return
		}
	}
}

func (n *Notifier) recordDrop(alert domain.StockAlert) {
	if n.metrics != nil {
		n.metrics.RecordAlertDropped()
	}
	n.logger.WithFields(log.Fields{
		"product_id": alert.ProductID,
		"quantity":   alert.Quantity,
	}).Warn("low stock alert dropped")
}

func (n *Notifier) dispatch(alert domain.StockAlert) {
	for _, observer := range n.observers {
		observer.OnLowStock(alert)
	}
	if n.metrics != nil {
		n.metrics.RecordAlertEmitted()
	}
}
