package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.BatchEmbedded("hash/8")
	r.BatchEmbedded("hash/8")
	r.RunFinished("pairs", nil, time.Second)
	r.RunFinished("pairs", errors.New("boom"), time.Second)
	r.PairsFlagged(3)
	r.ClustersFound(2, 5)
	r.Skipped("extract")
	r.Documents("clusters", 10)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.batches.WithLabelValues("hash/8")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("pairs", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("pairs", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.flaggedPairs))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.clusters))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.suppressed))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skipped.WithLabelValues("extract")))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.documents.WithLabelValues("clusters")))
}

func TestRecorder_nilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.BatchEmbedded("x")
		r.RunFinished("pairs", nil, time.Millisecond)
		r.PairsFlagged(1)
		r.ClustersFound(1, 1)
		r.Skipped("empty")
		r.Documents("pairs", 1)
	})
}
