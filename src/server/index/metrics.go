package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "semanticdb_lsp"
	indexSubsystem   = "index"
)

// Query kinds and outcomes used as label values
const (
	QueryReferences = "references"
	QueryDefinition = "definition"

	OutcomeHit         = "hit"
	OutcomeAlternative = "alternative"
	OutcomeMiss        = "miss"
)

// Metrics holds the prometheus collectors of one SymbolIndex.
// All operations are safe for concurrent use.
type Metrics struct {
	// DocumentsIndexed counts committed IndexDocument calls
	DocumentsIndexed prometheus.Counter
	// DocumentsRejected counts documents that failed validation
	DocumentsRejected prometheus.Counter
	// StaleCommits counts passes superseded by a newer pass for the same uri
	StaleCommits prometheus.Counter

	Documents   prometheus.Gauge
	Symbols     prometheus.Gauge
	Occurrences prometheus.Gauge

	// Queries counts lookups. Labels: kind (references, definition), outcome (hit, alternative, miss)
	Queries *prometheus.CounterVec

	CommitDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: indexSubsystem,
			Name:      "documents_indexed_total",
			Help:      "Total number of semantic documents committed to the index.",
		}),
		DocumentsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: indexSubsystem,
			Name:      "documents_rejected_total",
			Help:      "Total number of malformed semantic documents rejected.",
		}),
		StaleCommits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: indexSubsystem,
			Name:      "stale_commits_total",
			Help:      "Total number of indexing passes dropped because a newer pass for the same uri committed first.",
		}),
		Documents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: indexSubsystem,
			Name:      "documents",
			Help:      "Number of documents currently indexed.",
		}),
		Symbols: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: indexSubsystem,
			Name:      "symbols",
			Help:      "Number of symbols with at least one definition or reference.",
		}),
		Occurrences: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: indexSubsystem,
			Name:      "occurrences",
			Help:      "Number of occurrences across all indexed documents.",
		}),
		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: indexSubsystem,
			Name:      "queries_total",
			Help:      "Total number of symbol lookups by kind and outcome.",
		}, []string{"kind", "outcome"}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: indexSubsystem,
			Name:      "commit_seconds",
			Help:      "Time spent holding the commit lock for one document.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
}

func (m *Metrics) observeQuery(kind, outcome string) {
	m.Queries.WithLabelValues(kind, outcome).Inc()
}
