package social

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts graph mutations by action and result.
type Metrics struct {
	ops *prometheus.CounterVec
}

// NewMetrics builds the counters and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Subsystem: "social",
			Name:      "graph_ops_total",
			Help:      "Follow and unfollow calls by result.",
		}, []string{"action", "result"}),
	}
	if reg != nil {
		if err := reg.Register(m.ops); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(action, result string) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(action, result).Inc()
}
