package network

import (
	"github.com/annel0/stackattack/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - метрики игрового сервера
type Metrics struct {
	connections prometheus.Gauge
	accepted    *prometheus.CounterVec
	frames      *prometheus.CounterVec
	authFailed  prometheus.Counter
}

// NewMetrics создаёт и регистрирует метрики сервера в reg.
// Если reg == nil, используется глобальный регистр Prometheus.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stackattack",
			Subsystem: "network",
			Name:      "connections",
			Help:      "Активные игровые соединения.",
		}),
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stackattack",
			Subsystem: "network",
			Name:      "connections_total",
			Help:      "Входящие соединения по результату (accepted, rejected).",
		}, []string{"result"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stackattack",
			Subsystem: "network",
			Name:      "frames_received_total",
			Help:      "Полученные кадры по типу сообщения.",
		}, []string{"type"}),
		authFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stackattack",
			Subsystem: "network",
			Name:      "auth_failures_total",
			Help:      "Отклонённые попытки аутентификации.",
		}),
	}

	for _, c := range []prometheus.Collector{m.connections, m.accepted, m.frames, m.authFailed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) frame(t protocol.MessageType) {
	if m != nil {
		m.frames.WithLabelValues(t.String()).Inc()
	}
}

func (m *Metrics) connection(accepted bool) {
	if m == nil {
		return
	}
	if accepted {
		m.accepted.WithLabelValues("accepted").Inc()
		m.connections.Inc()
	} else {
		m.accepted.WithLabelValues("rejected").Inc()
	}
}

func (m *Metrics) disconnected() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) authFailure() {
	if m != nil {
		m.authFailed.Inc()
	}
}
