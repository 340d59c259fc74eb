package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StockMetrics содержит метрики журнала остатков.
type StockMetrics struct {
	// Счётчики применённых и отклонённых дельт
	deltasApplied  *prometheus.CounterVec
	deltasRejected *prometheus.CounterVec

	// Гистограмма ожидания блокировки товара
	lockWait prometheus.Histogram

	// Счётчики low-stock уведомлений
	alertsEmitted prometheus.Counter
	alertsDropped prometheus.Counter

	// Счётчик движений по журналу
	movementsRecorded *prometheus.CounterVec

	// Gauge для активных блокировок
	activeLocks prometheus.Gauge
}

// NewStockMetrics создаёт новый экземпляр метрик журнала остатков.
func NewStockMetrics() *StockMetrics {
	return newStockMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newStockMetricsWithRegisterer(registerer prometheus.Registerer) *StockMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StockMetrics{
		deltasApplied: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ims_stock_deltas_applied_total",
			Help: "Total number of stock deltas applied to the ledger",
		}, []string{"direction"}),
		deltasRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ims_stock_deltas_rejected_total",
			Help: "Total number of stock deltas rejected by the ledger",
		}, []string{"reason"}),
		lockWait: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "ims_stock_lock_wait_seconds",
			Help:    "Time spent waiting for the per-product ledger lock",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		alertsEmitted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_low_stock_alerts_emitted_total",
			Help: "Total number of low stock alerts delivered to observers",
		}),
		alertsDropped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "ims_low_stock_alerts_dropped_total",
			Help: "Total number of low stock alerts dropped due to a full buffer",
		}),
		movementsRecorded: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ims_stock_movements_recorded_total",
			Help: "Total number of stock movements recorded in the journal",
		}, []string{"type"}),
		activeLocks: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "ims_stock_active_locks",
			Help: "Number of per-product ledger locks currently held",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordDeltaApplied увеличивает счётчик применённых дельт.
func (m *StockMetrics) RecordDeltaApplied(delta int64) {
	direction := "increase"
	if delta < 0 {
		direction = "decrease"
	}
	m.deltasApplied.WithLabelValues(direction).Inc()
}

// RecordDeltaRejected увеличивает счётчик отклонённых дельт.
func (m *StockMetrics) RecordDeltaRejected(reason string) {
	m.deltasRejected.WithLabelValues(reason).Inc()
}

// RecordLockWait записывает время ожидания блокировки товара.
func (m *StockMetrics) RecordLockWait(duration time.Duration) {
	m.lockWait.Observe(duration.Seconds())
}

// RecordAlertEmitted увеличивает счётчик доставленных уведомлений.
func (m *StockMetrics) RecordAlertEmitted() {
	m.alertsEmitted.Inc()
}

// RecordAlertDropped увеличивает счётчик потерянных уведомлений.
func (m *StockMetrics) RecordAlertDropped() {
	m.alertsDropped.Inc()
}

// RecordMovement увеличивает счётчик записанных движений.
func (m *StockMetrics) RecordMovement(movementType string) {
	m.movementsRecorded.WithLabelValues(movementType).Inc()
}

// RecordLockAcquired увеличивает количество удерживаемых блокировок.
func (m *StockMetrics) RecordLockAcquired() {
	m.activeLocks.Inc()
}

// RecordLockReleased уменьшает количество удерживаемых блокировок.
func (m *StockMetrics) RecordLockReleased() {
	m.activeLocks.Dec()
}
