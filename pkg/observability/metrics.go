package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/arbor/pkg/domain"
)

// Metrics tracks editor activity.
//
// Metrics:
//   - <ns>_commits_total: Committed actions by action type
//   - <ns>_rejections_total: Rejected actions by action type and error code
//   - <ns>_commit_duration_seconds: Time from request to commit
//   - <ns>_tree_nodes: Number of nodes in the committed tree, per document
type Metrics struct {
	commitsTotal    *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	commitDuration  *prometheus.HistogramVec
	treeNodes       *prometheus.GaugeVec
}

// NewMetrics creates and registers the editor metrics with the provided registry.
func NewMetrics(namespace string, registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		commitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commits_total",
				Help:      "Total number of committed editor actions",
			},
			[]string{"action"},
		),
		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "Total number of rejected editor actions",
			},
			[]string{"action", "code"},
		),
		commitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "commit_duration_seconds",
				Help:      "Duration of editor actions up to their commit, in seconds",
				// Actions are in-memory and should stay well below a millisecond.
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"action"},
		),
		treeNodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tree_nodes",
				Help:      "Number of nodes in the committed tree",
			},
			[]string{"document"},
		),
	}

	registry.MustRegister(
		m.commitsTotal,
		m.rejectionsTotal,
		m.commitDuration,
		m.treeNodes,
	)
	return m
}

// Hooks returns lifecycle hooks recording into m for the named document.
func (m *Metrics) Hooks(document string) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(c *domain.Commit) {
			action := string(c.Action)
			m.commitsTotal.WithLabelValues(action).Inc()
			m.commitDuration.WithLabelValues(action).Observe(c.Duration.Seconds())
			if c.State != nil && c.State.Current != nil {
				m.treeNodes.WithLabelValues(document).Set(float64(len(c.State.Current.Nodes)))
			}
		},
		OnReject: func(r *domain.Rejection) {
			code := string(r.Code())
			if code == "" {
				code = "unknown"
			}
			m.rejectionsTotal.WithLabelValues(string(r.Action), code).Inc()
		},
	}
}

// Forget drops the per-document series of a closed document.
func (m *Metrics) Forget(document string) {
	m.treeNodes.DeleteLabelValues(document)
}
