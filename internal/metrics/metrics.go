// Package metrics exposes Prometheus collectors for dedup runs. A nil
// *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "neardup"

// Recorder holds the run, embedding and outcome collectors.
type Recorder struct {
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	batches      *prometheus.CounterVec
	documents    *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	flaggedPairs prometheus.Counter
	clusters     prometheus.Counter
	suppressed   prometheus.Counter
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Dedup runs by mode and outcome.",
		}, []string{"mode", "status"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of dedup runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"mode"}),
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_batches_total",
			Help:      "Embedding batches completed by provider.",
		}, []string{"provider"}),
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Inputs processed by mode.",
		}, []string{"mode"}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_documents_total",
			Help:      "Inputs excluded from runs by stage.",
		}, []string{"stage"}),
		flaggedPairs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flagged_pairs_total",
			Help:      "Document pairs flagged as near-duplicates.",
		}),
		clusters: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_clusters_total",
			Help:      "Clusters with more than one member.",
		}),
		suppressed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressed_inputs_total",
			Help:      "Inputs collapsed into a representative.",
		}),
	}
}

// BatchEmbedded counts one completed embedding batch.
func (r *Recorder) BatchEmbedded(provider string) {
	if r == nil {
		return
	}
	r.batches.WithLabelValues(provider).Inc()
}

// RunFinished records a run's outcome and duration.
func (r *Recorder) RunFinished(mode string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.runs.WithLabelValues(mode, status).Inc()
	r.runDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// Documents counts processed inputs.
func (r *Recorder) Documents(mode string, n int) {
	if r == nil {
		return
	}
	r.documents.WithLabelValues(mode).Add(float64(n))
}

// Skipped counts an excluded input.
func (r *Recorder) Skipped(stage string) {
	if r == nil {
		return
	}
	r.skipped.WithLabelValues(stage).Inc()
}

// PairsFlagged counts flagged pairs.
func (r *Recorder) PairsFlagged(n int) {
	if r == nil {
		return
	}
	r.flaggedPairs.Add(float64(n))
}

// ClustersFound counts multi-member clusters and the inputs they suppressed.
func (r *Recorder) ClustersFound(clusters, suppressed int) {
	if r == nil {
		return
	}
	r.clusters.Add(float64(clusters))
	r.suppressed.Add(float64(suppressed))
}
