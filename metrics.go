package atomix

import "github.com/prometheus/client_golang/prometheus"

// metricsRecorder wraps the optional Prometheus registry a Context was
// constructed with. Every method is nil-safe so the core never has to
// branch on whether metrics are enabled.
type metricsRecorder struct {
	term        prometheus.Gauge
	commitIndex prometheus.Gauge
	roleTransitions *prometheus.CounterVec
}

func newMetricsRecorder(reg *prometheus.Registry) *metricsRecorder {
	if reg == nil {
		return nil
	}
	m := &metricsRecorder{
		term: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "atomix",
			Name:      "term",
			Help:      "Current election term observed by this replica.",
		}),
		commitIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "atomix",
			Name:      "commit_index",
			Help:      "Highest log index known committed by this replica.",
		}),
		roleTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atomix",
			Name:      "role_transitions_total",
			Help:      "Count of role transitions by destination role.",
		}, []string{"role"}),
	}
	reg.MustRegister(m.term, m.commitIndex, m.roleTransitions)
	return m
}

func (m *metricsRecorder) observeTerm(t uint64) {
	if m == nil {
		return
	}
	m.term.Set(float64(t))
}

func (m *metricsRecorder) observeCommitIndex(i uint64) {
	if m == nil {
		return
	}
	m.commitIndex.Set(float64(i))
}

func (m *metricsRecorder) observeRoleTransition(kind RoleKind) {
	if m == nil {
		return
	}
	m.roleTransitions.WithLabelValues(kind.String()).Inc()
}
