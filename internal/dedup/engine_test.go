package dedup

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/hyperjump/neardup/internal/config"
	"github.com/hyperjump/neardup/internal/embedding"
	"github.com/hyperjump/neardup/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairsOpts(threshold float64) Options {
	return Options{Mode: models.ModePairs, Threshold: threshold, BatchSize: 2}
}

func clusterOpts(threshold float64, policy Policy) Options {
	return Options{Mode: models.ModeClusters, Threshold: threshold, Policy: policy, BatchSize: 2}
}

func TestEngine_pairsThreeDocuments(t *testing.T) {
	b := float32(math.Sqrt(1 - 0.95*0.95))
	p := newTableProvider(3).
		set("contract a", []float32{1, 0, 0}).
		set("contract b", []float32{0.95, b, 0}).
		set("invoice", []float32{0, 0, 1})
	docs := []*models.Document{
		doc(0, "c.txt", "invoice"),
		doc(1, "a.txt", "contract a"),
		doc(2, "b.txt", "contract b"),
	}

	res, err := NewEngine(p).Run(context.Background(), docs, pairsOpts(0.9))
	require.NoError(t, err)
	require.Len(t, res.Pairs, 3)

	top := res.Pairs[0]
	assert.Equal(t, "a.txt", top.A)
	assert.Equal(t, "b.txt", top.B)
	assert.InDelta(t, 0.95, top.DocSim, 1e-4)
	assert.True(t, top.Flagged)
	for _, pair := range res.Pairs[1:] {
		assert.Less(t, pair.A, pair.B)
		assert.False(t, pair.Flagged)
		assert.InDelta(t, 0, pair.DocSim, 1e-6)
	}
}

func TestEngine_pairsFlaggedByDocSimAlone(t *testing.T) {
	const dim = 32
	p := newTableProvider(dim)
	var chunks []string
	sum := map[int]float64{}
	for i := 0; i < 25; i++ {
		text := string(rune('A'+i)) + " clause"
		chunks = append(chunks, text)
		p.set(text, basis(dim, i))
		sum[i] = 1
	}
	// Mean of 25 orthogonal chunks against sum + c*e25 gives 5/sqrt(25+c^2) = 0.95.
	c := math.Sqrt(25/(0.95*0.95) - 25)
	sum[25] = c
	p.set("summary", combine(dim, sum))

	res, err := NewEngine(p).Run(context.Background(), []*models.Document{
		doc(0, "long.txt", chunks...),
		doc(1, "summary.txt", "summary"),
	}, pairsOpts(0.9))
	require.NoError(t, err)
	require.Len(t, res.Pairs, 1)
	pair := res.Pairs[0]
	assert.InDelta(t, 0.95, pair.DocSim, 1e-3)
	assert.InDelta(t, 0.19, pair.MaxChunkSim, 1e-3)
	assert.True(t, pair.Flagged, "doc similarity alone should flag")
}

func TestEngine_pairsFlaggedByChunkAlone(t *testing.T) {
	const dim = 8
	p := newTableProvider(dim)
	for i := 0; i < 7; i++ {
		p.set(string(rune('a'+i)), basis(dim, i))
	}
	res, err := NewEngine(p).Run(context.Background(), []*models.Document{
		doc(0, "x", "a", "b", "c", "d"),
		doc(1, "y", "a", "e", "f", "g"),
	}, pairsOpts(0.9))
	require.NoError(t, err)
	pair := res.Pairs[0]
	assert.InDelta(t, 0.25, pair.DocSim, 1e-4)
	assert.InDelta(t, 1.0, pair.MaxChunkSim, 1e-4)
	assert.True(t, pair.Flagged, "a shared clause should flag")
}

func TestEngine_pairsNeedTwoDocuments(t *testing.T) {
	p := newTableProvider(2).set("only", []float32{1, 0})
	res, err := NewEngine(p).Run(context.Background(), []*models.Document{doc(0, "a", "only")}, pairsOpts(0.9))
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)
	assert.Zero(t, p.calls)
}

func TestEngine_clustersAreTransitive(t *testing.T) {
	theta := math.Acos(0.93)
	p := newTableProvider(2).
		set("a", angle(0, theta)).
		set("b", angle(1, theta)).
		set("c", angle(2, theta)).
		set("z", angle(5, theta))
	docs := []*models.Document{row(0, "a"), row(1, "b"), row(2, "c"), row(3, "z")}

	res, err := NewEngine(p).Run(context.Background(), docs, clusterOpts(0.92, PolicyFirst))
	require.NoError(t, err)
	require.Len(t, res.Clusters, 2)

	chain := res.Clusters[0]
	assert.Equal(t, []int{0, 1, 2}, chain.Members)
	assert.Equal(t, 0, chain.Representative)
	// c links through b; its direct similarity to the kept row is below the threshold.
	assert.InDelta(t, 2*0.93*0.93-1, chain.Similarities[2], 1e-4)
	assert.Less(t, chain.Similarities[2], 0.92)

	assert.Equal(t, []int{3}, res.Clusters[1].Members)
	assert.Equal(t, []int{0, 3}, res.Kept)
	require.Len(t, res.Members, 2)
	assert.Equal(t, 1, res.Members[0].MemberIndex)
	assert.Equal(t, 2, res.Members[1].MemberIndex)
	assert.Equal(t, "a", res.Members[1].KeptText)
}

func TestEngine_exactDuplicatesEmbeddedOnce(t *testing.T) {
	p := newTableProvider(2).
		set("Hello World", []float32{1, 0}).
		set("unrelated", []float32{0, 1})
	docs := []*models.Document{
		row(0, "Hello World"),
		row(1, "unrelated"),
		row(2, "hello   world"),
		row(3, "HELLO WORLD"),
	}

	res, err := NewEngine(p).Run(context.Background(), docs, clusterOpts(0.92, PolicyFirst))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello World", "unrelated"}, p.embedded)
	assert.Equal(t, 2, res.ExactDuplicates)
	assert.Equal(t, []int{0, 1}, res.Kept)
	require.Len(t, res.Clusters, 2)
	assert.Equal(t, []int{0, 2, 3}, res.Clusters[0].Members)
	for _, m := range res.Members {
		assert.True(t, m.Exact)
		assert.InDelta(t, 1.0, m.Similarity, 1e-6)
	}
}

func TestEngine_longestPolicy(t *testing.T) {
	p := newTableProvider(2).
		set("net 30", []float32{1, 0}).
		set("payment net 30 days", []float32{0.99, 0.141}).
		set("pay in 30", []float32{0.995, 0.0998}).
		set("tie one", []float32{0, 1}).
		set("tie two", []float32{0.01, 1})
	docs := []*models.Document{
		row(0, "net 30"),
		row(1, "payment net 30 days"),
		row(2, "pay in 30"),
		row(3, "tie one"),
		row(4, "tie two"),
	}
	res, err := NewEngine(p).Run(context.Background(), docs, clusterOpts(0.92, PolicyLongest))
	require.NoError(t, err)
	require.Len(t, res.Clusters, 2)
	assert.Equal(t, 1, res.Clusters[0].Representative)
	assert.Equal(t, 3, res.Clusters[1].Representative, "equal lengths go to the lowest index")
	assert.Equal(t, []int{1, 3}, res.Kept)
}

func TestEngine_longestPolicyIgnoresCaseAndSpacing(t *testing.T) {
	p := newTableProvider(2).set("hello world", []float32{1, 0})
	docs := []*models.Document{
		row(0, "hello world"),
		row(1, "Hello\n\nWorld"),
	}
	res, err := NewEngine(p).Run(context.Background(), docs, clusterOpts(0.9, PolicyLongest))
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, 0, res.Clusters[0].Representative, "exact duplicates tie on length")
	assert.Equal(t, []int{0}, res.Kept)
}

func TestEngine_providerFailureAbortsRun(t *testing.T) {
	p := newTableProvider(2)
	var docs []*models.Document
	for i, text := range []string{"a", "b", "c", "d", "e", "f"} {
		p.set(text, angle(float64(i), 1))
		docs = append(docs, row(i, text))
	}
	p.failOn = 2

	res, err := NewEngine(p).Run(context.Background(), docs, clusterOpts(0.9, PolicyFirst))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, embedding.ErrProvider)
	var batchErr *embedding.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 2, batchErr.Batch)
	assert.Equal(t, 3, batchErr.Total)
	assert.Equal(t, 2, p.calls)
}

func TestEngine_invalidOptionsFailBeforeEmbedding(t *testing.T) {
	p := newTableProvider(2).set("a", []float32{1, 0})
	docs := []*models.Document{row(0, "a"), row(1, "a")}
	tests := []struct {
		name string
		opts Options
	}{
		{"threshold above one", clusterOpts(1.5, PolicyFirst)},
		{"threshold zero", pairsOpts(0)},
		{"unknown policy", clusterOpts(0.9, "random")},
		{"no mode", Options{Threshold: 0.9, BatchSize: 1}},
		{"no batch size", Options{Mode: models.ModePairs, Threshold: 0.9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(p).Run(context.Background(), docs, tt.opts)
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
			assert.Zero(t, p.calls)
		})
	}
}

func randomRows(t *testing.T, n int) (*tableProvider, func() []*models.Document) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	p := newTableProvider(3)
	centers := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	texts := make([]string, n)
	for i := range texts {
		c := centers[i%3]
		v := []float32{
			c[0] + float32(rng.NormFloat64()*0.15),
			c[1] + float32(rng.NormFloat64()*0.15),
			c[2] + float32(rng.NormFloat64()*0.15),
		}
		texts[i] = string(rune('a'+i%26)) + string(rune('a'+i/26))
		p.set(texts[i], v)
	}
	return p, func() []*models.Document {
		docs := make([]*models.Document, n)
		for i, text := range texts {
			docs[i] = row(i, text)
		}
		return docs
	}
}

func TestEngine_clustersPartitionInputsDeterministically(t *testing.T) {
	p, makeDocs := randomRows(t, 40)
	first, err := NewEngine(p).Run(context.Background(), makeDocs(), clusterOpts(0.95, PolicyFirst))
	require.NoError(t, err)
	second, err := NewEngine(p).Run(context.Background(), makeDocs(), clusterOpts(0.95, PolicyFirst))
	require.NoError(t, err)
	assert.Equal(t, first.Clusters, second.Clusters)
	assert.Equal(t, first.Kept, second.Kept)

	seen := map[int]int{}
	for _, c := range first.Clusters {
		assert.Contains(t, c.Members, c.Representative)
		assert.IsIncreasing(t, c.Members)
		for _, m := range c.Members {
			seen[m]++
		}
	}
	assert.Len(t, seen, 40)
	for idx, count := range seen {
		assert.Equal(t, 1, count, "input %d in more than one cluster", idx)
	}
	assert.Equal(t, 40, len(first.Kept)+len(first.Members))
}

func TestEngine_higherThresholdOnlySplitsClusters(t *testing.T) {
	p, makeDocs := randomRows(t, 30)
	loose, err := NewEngine(p).Run(context.Background(), makeDocs(), clusterOpts(0.8, PolicyFirst))
	require.NoError(t, err)
	strict, err := NewEngine(p).Run(context.Background(), makeDocs(), clusterOpts(0.97, PolicyFirst))
	require.NoError(t, err)

	looseOf := map[int]int{}
	for _, c := range loose.Clusters {
		for _, m := range c.Members {
			looseOf[m] = c.ID
		}
	}
	for _, c := range strict.Clusters {
		for _, m := range c.Members[1:] {
			assert.Equal(t, looseOf[c.Members[0]], looseOf[m], "strict cluster %d spans loose clusters", c.ID)
		}
	}
	assert.GreaterOrEqual(t, len(strict.Clusters), len(loose.Clusters))
}

func TestEngine_canceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTableProvider(2).set("a", []float32{1, 0}).set("b", []float32{0, 1})
	_, err := NewEngine(p).Run(ctx, []*models.Document{row(0, "a"), row(1, "b")}, pairsOpts(0.9))
	assert.True(t, errors.Is(err, context.Canceled))
}
