package transfer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Результаты обработки одной ссылки на контейнер
const (
	resultApplied      = "applied"
	resultNotContainer = "not_container"
	resultNoInventory  = "no_inventory"
	resultUnknownOp    = "unknown_operation"
	resultExpired      = "deadline"
)

// Metrics - счётчики движка переноса
type Metrics struct {
	requests   *prometheus.CounterVec
	containers *prometheus.CounterVec
	items      *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics создаёт и регистрирует метрики движка в reg.
// Если reg == nil, используется глобальный регистр Prometheus.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stackattack",
			Subsystem: "transfer",
			Name:      "requests_total",
			Help:      "Число обработанных запросов по видам операций.",
		}, []string{"operation"}),
		containers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stackattack",
			Subsystem: "transfer",
			Name:      "containers_total",
			Help:      "Ссылки на контейнеры по результату обработки.",
		}, []string{"result"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stackattack",
			Subsystem: "transfer",
			Name:      "items_moved_total",
			Help:      "Перенесённое количество предметов (merge - слияние, relocate - перенос в пустой слот).",
		}, []string{"operation", "mode"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stackattack",
			Subsystem: "transfer",
			Name:      "request_duration_seconds",
			Help:      "Время обработки запроса целиком.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.containers, m.items, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
