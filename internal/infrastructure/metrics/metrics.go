package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the relay service
type Metrics struct {
	// Relay metrics
	RelaysTotal   *prometheus.CounterVec
	RelayDuration prometheus.Histogram
	BackupsTotal  *prometheus.CounterVec
	GroupFallback prometheus.Counter

	// Batch metrics
	BatchItemsTotal *prometheus.CounterVec
	BatchesTotal    *prometheus.CounterVec

	// Session metrics
	LoginsTotal     *prometheus.CounterVec
	PoolConnections prometheus.Gauge
	ProviderFloods  prometheus.Counter

	// Scheduler metrics
	TasksRunning   prometheus.Gauge
	TasksCancelled prometheus.Counter

	// Event producer metrics
	EventsProduced prometheus.Counter
	EventErrors    prometheus.Counter
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

func init() {
	GetDefaultMetrics()
}

// NewMetrics registers all collectors on the default registry
func NewMetrics() *Metrics {
	return &Metrics{
		RelaysTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_relay_relays_total",
				Help: "Relayed items by media kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		RelayDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "media_relay_relay_duration_seconds",
			Help:    "End-to-end duration of a relay pipeline run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 900},
		}),
		BackupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_relay_backups_total",
				Help: "Backup channel copies by mode",
			},
			[]string{"mode"},
		),
		GroupFallback: promauto.NewCounter(prometheus.CounterOpts{
			Name: "media_relay_group_fallbacks_total",
			Help: "Albums that degraded from bulk to sequential upload",
		}),
		BatchItemsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_relay_batch_items_total",
				Help: "Batch items by outcome",
			},
			[]string{"outcome"},
		),
		BatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_relay_batches_total",
				Help: "Batch jobs by result",
			},
			[]string{"result"},
		),
		LoginsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_relay_logins_total",
				Help: "Login transitions by step and result",
			},
			[]string{"step", "result"},
		),
		PoolConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "media_relay_pool_connections",
			Help: "Durable connections currently held by the pool",
		}),
		ProviderFloods: promauto.NewCounter(prometheus.CounterOpts{
			Name: "media_relay_provider_flood_waits_total",
			Help: "Rate limit responses received from Telegram",
		}),
		TasksRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "media_relay_tasks_running",
			Help: "Tasks currently holding a scheduler permit",
		}),
		TasksCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "media_relay_tasks_cancelled_total",
			Help: "Tasks cancelled through cancel-all",
		}),
		EventsProduced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "media_relay_events_produced_total",
			Help: "Relay events written to Kafka",
		}),
		EventErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "media_relay_event_errors_total",
			Help: "Relay events that failed to be written",
		}),
	}
}

// RecordRelay records a finished pipeline run
func (m *Metrics) RecordRelay(kind, outcome string, seconds float64) {
	if kind == "" {
		kind = "unknown"
	}
	m.RelaysTotal.WithLabelValues(kind, outcome).Inc()
	m.RelayDuration.Observe(seconds)
}

// RecordBackup records a backup attempt by mode
func (m *Metrics) RecordBackup(mode string) {
	m.BackupsTotal.WithLabelValues(mode).Inc()
}

// RecordGroupFallback records an album that fell back to per-item upload
func (m *Metrics) RecordGroupFallback() {
	m.GroupFallback.Inc()
}

// RecordBatch records batch totals
func (m *Metrics) RecordBatch(downloaded, skipped, failed int, cancelled bool) {
	addPositive(m.BatchItemsTotal.WithLabelValues("downloaded"), downloaded)
	addPositive(m.BatchItemsTotal.WithLabelValues("skipped"), skipped)
	addPositive(m.BatchItemsTotal.WithLabelValues("failed"), failed)

	result := "completed"
	if cancelled {
		result = "cancelled"
	}
	m.BatchesTotal.WithLabelValues(result).Inc()
}

// RecordLogin records one login step result
func (m *Metrics) RecordLogin(step, result string) {
	m.LoginsTotal.WithLabelValues(step, result).Inc()
}

// RecordFloodWait records a provider rate limit
func (m *Metrics) RecordFloodWait() {
	m.ProviderFloods.Inc()
}

// UpdatePool sets the pool size gauge
func (m *Metrics) UpdatePool(size int) {
	m.PoolConnections.Set(float64(size))
}

// UpdateRunning sets the running tasks gauge
func (m *Metrics) UpdateRunning(n int) {
	m.TasksRunning.Set(float64(n))
}

// RecordCancelled records tasks cancelled by cancel-all
func (m *Metrics) RecordCancelled(n int) {
	addPositive(m.TasksCancelled, n)
}

// RecordEvent records a produced event or a produce error
func (m *Metrics) RecordEvent(err error) {
	if err != nil {
		m.EventErrors.Inc()
		return
	}
	m.EventsProduced.Inc()
}

// addPositive never lets a counter go backwards
func addPositive(c prometheus.Counter, n int) {
	if n > 0 {
		c.Add(float64(n))
	}
}
